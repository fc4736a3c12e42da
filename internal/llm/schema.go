package llm

import "github.com/joseph-ayodele/bulk-resumes/constants"

// CandidateSchemaName is the name the structured-output schema is registered under.
const CandidateSchemaName = "candidate_resume"

// CandidateFields lists the keys of a candidate record in output order.
var CandidateFields = []string{"name", "mobile", "email", "category", "justification", "special_remarks"}

// BuildCandidateJSONSchema returns the stage 2 JSON-Schema as a generic map.
// We send it as the response_format constraint and also validate locally with it.
func BuildCandidateJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             CandidateFields,
		"properties": map[string]any{
			"name":   stringProp("The name of the candidate."),
			"mobile": stringProp("The mobile number of the candidate."),
			"email":  stringProp("The email of the candidate."),
			"category": map[string]any{
				"type":        "string",
				"enum":        constants.CategoryValues(),
				"description": "Categorization of the candidate's suitability.",
			},
			"justification": stringProp("Details explaining the categorization of the candidate."),
			"special_remarks": map[string]any{
				"type":        "string",
				"enum":        constants.RemarkValues(),
				"description": "Notes regarding the candidate's location.",
			},
		},
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
