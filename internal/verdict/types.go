// Package verdict orchestrates the red team/blue team adversarial debate
// that turns search evidence into a final truth verdict. Text generation is
// an external capability consumed through the Generator interface.
package verdict

import "context"

// Generator produces model text for a prompt. Implementations wrap whatever
// LLM backend is configured.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LogFunc receives per-step progress messages, tagged with the team
// ("blue", "red" or "final") that produced them.
type LogFunc func(team, message string)

// Decisions a team or the final aggregation can reach.
const (
	DecisionTrue         = "true"
	DecisionFalse        = "false"
	DecisionDepends      = "depends"
	DecisionInconclusive = "inconclusive"
	DecisionTooEarly     = "too_early"
)

// Team identifiers.
const (
	TeamBlue  = "blue"
	TeamRed   = "red"
	TeamFinal = "final"
)

// Decision is one evidence-based determination about a claim.
type Decision struct {
	Decision              string   `json:"decision"`
	Reason                string   `json:"reason"`
	Confidence            FlexInt  `json:"confidence"`
	ConfidenceExplanation string   `json:"confidence_explanation,omitempty"`
	KeyEvidence           []string `json:"key_evidence"`
	AdditionalQueries     []string `json:"additional_queries,omitempty"`
	SupportingEvidence    []string `json:"supporting_evidence,omitempty"`
	ContradictoryEvidence []string `json:"contradictory_evidence,omitempty"`
	InformationGaps       []string `json:"information_gaps,omitempty"`
}

// Result is the outcome of a full verification run.
type Result struct {
	Claim string   `json:"claim"`
	Final Decision `json:"final"`
	Blue  Decision `json:"blue"`
	Red   Decision `json:"red"`
}
