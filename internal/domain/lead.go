package domain

import "time"

// LeadStatus enumerates lead qualification states.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "New"
	LeadStatusContacted   LeadStatus = "Contacted"
	LeadStatusQualified   LeadStatus = "Qualified"
	LeadStatusUnqualified LeadStatus = "Unqualified"
	LeadStatusConverted   LeadStatus = "Converted"
)

// HighScoreThreshold is the score from which a lead is routed to the top of the pool.
const HighScoreThreshold = 80

// Lead is a prospective customer that has not been converted yet.
type Lead struct {
	ID                     int64
	FirstName              string
	LastName               string
	Company                string
	Title                  string
	Phone                  string
	Email                  string
	Status                 LeadStatus
	Score                  int
	Region                 string
	Source                 string
	Description            string
	OwnerID                *int64
	IsConverted            bool
	ConvertedAccountID     *int64
	ConvertedContactID     *int64
	ConvertedOpportunityID *int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// FullName joins first and last name.
func (l *Lead) FullName() string {
	return joinName(l.FirstName, l.LastName)
}

// IsHighScore reports whether the lead qualifies for priority routing.
func (l *Lead) IsHighScore() bool {
	return l.Score >= HighScoreThreshold
}

// MarkConverted moves the lead into its terminal converted state.
func (l *Lead) MarkConverted(accountID, contactID, opportunityID *int64) {
	l.IsConverted = true
	l.Status = LeadStatusConverted
	l.ConvertedAccountID = accountID
	l.ConvertedContactID = contactID
	l.ConvertedOpportunityID = opportunityID
}

// CurrentOwner returns the assigned owner, nil when unassigned.
func (l *Lead) CurrentOwner() *int64 { return l.OwnerID }

// NeedsPriorityRouting reports whether the lead skips round-robin.
func (l *Lead) NeedsPriorityRouting() bool { return l.IsHighScore() }
