package entity

// SafetyCategory names the reason a query was refused.
type SafetyCategory string

const (
	SafetyCategoryNone           SafetyCategory = ""
	SafetyCategoryEmergency      SafetyCategory = "emergency"
	SafetyCategoryPersonalAdvice SafetyCategory = "personal_advice"
)

type SafetyVerdict struct {
	Safe     bool           `json:"safe"`
	Category SafetyCategory `json:"category,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "simple"
	ComplexityModerate ComplexityLevel = "moderate"
	ComplexityComplex  ComplexityLevel = "complex"
)

type Complexity struct {
	Level              ComplexityLevel `json:"level"`
	Score              int             `json:"score"`
	SuggestedDocCount  int             `json:"suggested_doc_count"`
	SuggestedThreshold float64         `json:"suggested_threshold"`
}
