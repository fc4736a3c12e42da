package constants

import (
	"strings"
)

// Category is the suitability tier assigned to a candidate.
type Category string

const (
	CategoryUnsuitable Category = "unsuitable"
	CategoryAverage    Category = "average"
	CategoryGood       Category = "good"
)

var allCategories = []Category{
	CategoryUnsuitable,
	CategoryAverage,
	CategoryGood,
}

// SpecialRemark flags the candidate's home region.
type SpecialRemark string

const (
	RemarkNortheast  SpecialRemark = "northeast"
	RemarkOtherState SpecialRemark = "other_state"
)

var allRemarks = []SpecialRemark{
	RemarkNortheast,
	RemarkOtherState,
}

// NortheastStates are the states that map to RemarkNortheast.
var NortheastStates = []string{
	"Arunachal Pradesh",
	"Assam",
	"Manipur",
	"Meghalaya",
	"Mizoram",
	"Nagaland",
	"Tripura",
}

// NotAvailable is stored in place of any value the resume does not provide.
const NotAvailable = "N/A"

func CategoryValues() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

func RemarkValues() []string {
	result := make([]string, len(allRemarks))
	for i, r := range allRemarks {
		result[i] = string(r)
	}
	return result
}

// CanonicalizeCategory maps loose model output ("Good", " AVERAGE ") onto a Category.
func CanonicalizeCategory(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}
	return "", false
}

// CanonicalizeRemark maps loose model output onto a SpecialRemark.
func CanonicalizeRemark(input string) (SpecialRemark, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, r := range allRemarks {
		if normalized == string(r) {
			return r, true
		}
	}
	return "", false
}
