package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/bulk-resumes/constants"
)

// RegexStripper deletes every match of its pattern.
type RegexStripper struct {
	re *regexp.Regexp
}

func NewRegexStripper(pattern string) (*RegexStripper, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile trace pattern: %w", err)
	}
	return &RegexStripper{re: re}, nil
}

func (s *RegexStripper) Strip(text string) string {
	return s.re.ReplaceAllString(text, "")
}

// ThinkTagStripper removes <think>...</think> blocks, including multi-line ones.
// An unterminated <think> is left as is.
var ThinkTagStripper TraceStripper = &RegexStripper{re: regexp.MustCompile(`(?s)<think>.*?</think>`)}

// PassthroughStripper keeps the analysis untouched.
type PassthroughStripper struct{}

func (PassthroughStripper) Strip(text string) string { return text }

// StripCodeFence unwraps a ```json fenced block.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var freeTextFields = []string{"name", "mobile", "email", "justification"}

// NormalizeCandidateJSON
// - Replaces null or blank free-text values with "N/A"
// - Trims strings
// - Lowercases enum values ("Good" -> "good", "Other State" -> "other_state")
// Absent keys stay absent so they can be reported as missing.
func NormalizeCandidateJSON(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("normalize: decode: %w", err)
	}

	changed := make([]string, 0, 4)
	for _, k := range freeTextFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case nil:
			m[k] = constants.NotAvailable
			changed = append(changed, k+"(null)")
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
				s = constants.NotAvailable
			}
			if s != t {
				changed = append(changed, k)
			}
			m[k] = s
		case float64:
			// a bare numeric mobile number
			m[k] = strings.TrimSpace(fmt.Sprintf("%.0f", t))
			changed = append(changed, k+"(number)")
		}
	}

	if v, ok := m["category"].(string); ok {
		if cat, ok := constants.CanonicalizeCategory(v); ok && string(cat) != v {
			m["category"] = string(cat)
			changed = append(changed, "category")
		}
	}
	if v, ok := m["special_remarks"].(string); ok {
		if r, ok := constants.CanonicalizeRemark(v); ok && string(r) != v {
			m["special_remarks"] = string(r)
			changed = append(changed, "special_remarks")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("normalize: encode: %w", err)
	}
	return out, changed, nil
}

// MissingFields lists the candidate keys absent from a decoded document.
func MissingFields(raw []byte) ([]string, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	var missing []string
	for _, k := range CandidateFields {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing, nil
}
