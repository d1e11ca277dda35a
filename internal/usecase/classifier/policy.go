package classifier

import "github.com/futig/nelson-backend/internal/entity"

const (
	EmergencyAdvisory = "This sounds like it may be a medical emergency. Please call your local emergency number " +
		"(911 in the US) or go to the nearest emergency department right away. This assistant answers general " +
		"reference questions and cannot help in an emergency."

	PersonalAdviceAdvisory = "I can't give personal medical advice about a specific child. Please talk to your " +
		"pediatrician or another qualified healthcare provider who can evaluate the situation. I'm happy to answer " +
		"general questions about pediatric conditions and treatments from the textbook."
)

var emergencyLexicon = []string{
	"emergency",
	"overdose",
	"overdosed",
	"dying",
	"not breathing",
	"stopped breathing",
	"can't breathe",
	"cannot breathe",
	"unconscious",
	"unresponsive",
	"seizure right now",
	"choking",
	"poisoned",
	"suicide",
	"severe bleeding",
}

var personalAdviceLexicon = []string{
	"my child",
	"my baby",
	"my son",
	"my daughter",
	"my kid",
	"my infant",
	"my toddler",
	"should i",
	"should we",
	"what should i do",
	"can i give",
}

var clinicalKeywords = []string{
	"diagnosis",
	"diagnose",
	"differential",
	"treatment",
	"treat",
	"management",
	"dosing",
	"dosage",
	"dose",
	"pathophysiology",
	"prognosis",
	"complication",
	"etiology",
	"mechanism",
	"contraindication",
}

var comparisonKeywords = []string{
	"compare",
	"comparison",
	"difference",
	"differences",
	"versus",
	" vs ",
	" vs.",
	"distinguish",
}

// Tier is one row of the complexity policy table.
type Tier struct {
	Level     entity.ComplexityLevel
	MinScore  int
	DocCount  int
	Threshold float64
}

// Score weights used by Complexity.
const (
	longQueryWords     = 15
	veryLongQueryWords = 30
	weightLong         = 1
	weightVeryLong     = 1
	weightMultiQ       = 1
	weightClinical     = 1
	weightComparison   = 2
)

// tiers is ordered by descending MinScore; the first match wins.
var tiers = []Tier{
	{Level: entity.ComplexityComplex, MinScore: 4, DocCount: 8, Threshold: 0.65},
	{Level: entity.ComplexityModerate, MinScore: 2, DocCount: 5, Threshold: 0.7},
	{Level: entity.ComplexitySimple, MinScore: 0, DocCount: 3, Threshold: 0.75},
}

// Tiers returns a copy of the complexity policy table.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}
