package ai

import (
	"encoding/json"
	"math"

	"github.com/xeipuuv/gojsonschema"
)

// analysisSchema is the JSON Schema an upstream analysis response is checked
// against. Validation failures do not abort the pipeline; they only mark the
// response as needing field-by-field defaulting.
const analysisSchema = `{
  "type": "object",
  "properties": {
    "candidate": {
      "type": "object",
      "properties": {
        "first_name": {"type": "string"},
        "last_name": {"type": "string"},
        "email": {"type": "string"},
        "phone": {"type": "string"},
        "location": {"type": "string"},
        "skills": {"type": "array", "items": {"type": "string"}},
        "education": {"type": "array", "items": {"type": "string"}},
        "certifications": {"type": "array", "items": {"type": "string"}},
        "summary": {"type": "string"}
      }
    },
    "overall_score": {"type": "number"},
    "confidence": {"type": "number"},
    "dimensions": {
      "type": "object",
      "properties": {
        "skills": {"type": "number"},
        "experience": {"type": "number"},
        "education": {"type": "number"},
        "certifications": {"type": "number"},
        "overall_fit": {"type": "number"}
      }
    },
    "summary": {"type": "string"},
    "matched_skills": {"type": "array", "items": {"type": "string"}},
    "missing_skills": {"type": "array", "items": {"type": "string"}},
    "highlights": {"type": "array", "items": {"type": "string"}},
    "concerns": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["candidate", "overall_score"]
}`

// rawAnalysis mirrors the upstream response shape with optional fields, so a
// partially malformed response can still be salvaged.
type rawAnalysis struct {
	Candidate     CandidateData       `json:"candidate"`
	OverallScore  *float64            `json:"overall_score"`
	Confidence    *float64            `json:"confidence"`
	Dimensions    map[string]*float64 `json:"dimensions"`
	Summary       string              `json:"summary"`
	MatchedSkills []string            `json:"matched_skills"`
	MissingSkills []string            `json:"missing_skills"`
	Highlights    []string            `json:"highlights"`
	Concerns      []string            `json:"concerns"`
}

// defaultScore is substituted for unknown or malformed score fields.
const defaultScore = 50

// ValidateAnalysisJSON checks a raw analysis payload against the schema.
func ValidateAnalysisJSON(payload string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(analysisSchema),
		gojsonschema.NewStringLoader(payload),
	)
	if err != nil {
		return err
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return &AnalysisError{Cause: &schemaViolation{description: errs[0].String()}}
		}
	}
	return nil
}

type schemaViolation struct {
	description string
}

func (e *schemaViolation) Error() string {
	return "analysis response violates schema: " + e.description
}

// parseAnalysisResponse turns an upstream JSON payload into a normalized
// Analysis. Unknown or out-of-range fields are defaulted rather than
// propagated as errors so a partially malformed response never aborts the
// pipeline. Only unparseable JSON is an error.
func parseAnalysisResponse(payload string, modelVersion string) (*Analysis, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, &AnalysisError{Cause: err}
	}

	a := &Analysis{
		Candidate:     raw.Candidate,
		OverallScore:  clampScore(raw.OverallScore),
		Confidence:    clampConfidence(raw.Confidence),
		Summary:       raw.Summary,
		MatchedSkills: raw.MatchedSkills,
		MissingSkills: raw.MissingSkills,
		Highlights:    raw.Highlights,
		Concerns:      raw.Concerns,
		ModelVersion:  modelVersion,
	}
	a.Dimensions = DimensionScores{
		Skills:         clampScore(raw.Dimensions["skills"]),
		Experience:     clampScore(raw.Dimensions["experience"]),
		Education:      clampScore(raw.Dimensions["education"]),
		Certifications: clampScore(raw.Dimensions["certifications"]),
		OverallFit:     clampScore(raw.Dimensions["overall_fit"]),
	}
	return a, nil
}

// clampScore rounds to an integer and clamps to [0,100]; nil or NaN becomes
// the default score.
func clampScore(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return defaultScore
	}
	n := int(math.Round(*v))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// clampConfidence clamps to [0,1]; nil or NaN becomes 0.5.
func clampConfidence(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0.5
	}
	if *v < 0 {
		return 0
	}
	if *v > 1 {
		return 1
	}
	return *v
}
