package domain

import "time"

// OpportunityStage enumerates pipeline stages.
type OpportunityStage string

const (
	StageProspecting   OpportunityStage = "Prospecting"
	StageQualification OpportunityStage = "Qualification"
	StageNeedsAnalysis OpportunityStage = "Needs Analysis"
	StageProposal      OpportunityStage = "Proposal"
	StageNegotiation   OpportunityStage = "Negotiation"
	StageClosedWon     OpportunityStage = "Closed Won"
	StageClosedLost    OpportunityStage = "Closed Lost"
)

var stageProbabilities = map[OpportunityStage]int{
	StageProspecting:   10,
	StageQualification: 20,
	StageNeedsAnalysis: 40,
	StageProposal:      60,
	StageNegotiation:   80,
	StageClosedWon:     100,
	StageClosedLost:    0,
}

// Probability returns the win probability associated with the stage, 0 when unknown.
func (s OpportunityStage) Probability() int {
	return stageProbabilities[s]
}

// Valid reports whether the stage is known.
func (s OpportunityStage) Valid() bool {
	_, ok := stageProbabilities[s]
	return ok
}

// Opportunity is a potential deal tied to an account.
type Opportunity struct {
	ID          int64
	Name        string
	AccountID   *int64
	Amount      float64
	Stage       OpportunityStage
	Probability int
	CloseDate   *time.Time
	Description string
	OwnerID     *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SetStage moves the opportunity and recomputes its probability.
func (o *Opportunity) SetStage(stage OpportunityStage) {
	o.Stage = stage
	o.Probability = stage.Probability()
}
