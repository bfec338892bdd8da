package domain

// MutationCategory classifies the shape of an extracted code change.
// Classification is used for logging and for choosing an application
// strategy; it never affects the safety decision.
type MutationCategory string

const (
	CategoryImport   MutationCategory = "import"   // new import line(s)
	CategoryFunction MutationCategory = "function" // a function or method body
	CategoryType     MutationCategory = "type"     // a type declaration and its methods
	CategoryOther    MutationCategory = "other"    // anything unrecognized
)

// MutationCandidate is a parsed, safety-checked snippet proposed as a
// code change. Candidates are created per generation call and discarded
// if unsafe or unparsable.
type MutationCandidate struct {
	// RawText is the full free-text response the model produced.
	RawText string `json:"raw_text"`
	// Code is the extracted code block.
	Code string `json:"code"`
	// TargetFile is the file this mutation applies to.
	TargetFile string `json:"target_file"`
	// Category describes the snippet's shape.
	Category MutationCategory `json:"category"`
	// Symbol is the name of the declared function or type, when the
	// category identifies one. Empty otherwise.
	Symbol string `json:"symbol,omitempty"`
	// Safe records the denylist verdict.
	Safe bool `json:"safe"`
	// Modification and Reason are the prose sections of the structured
	// mutation format, kept for the evolution log.
	Modification string `json:"modification,omitempty"`
	Reason       string `json:"reason,omitempty"`
}
