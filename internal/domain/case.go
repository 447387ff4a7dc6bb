package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CaseStatus enumerates support case states.
type CaseStatus string

const (
	CaseStatusNew       CaseStatus = "New"
	CaseStatusWorking   CaseStatus = "Working"
	CaseStatusEscalated CaseStatus = "Escalated"
	CaseStatusClosed    CaseStatus = "Closed"
)

// CasePriority enumerates SLA urgency.
type CasePriority string

const (
	CasePriorityLow      CasePriority = "Low"
	CasePriorityMedium   CasePriority = "Medium"
	CasePriorityHigh     CasePriority = "High"
	CasePriorityCritical CasePriority = "Critical"
)

// CasePriorities lists priorities in ascending urgency.
var CasePriorities = []CasePriority{CasePriorityLow, CasePriorityMedium, CasePriorityHigh, CasePriorityCritical}

var slaWindows = map[CasePriority]time.Duration{
	CasePriorityCritical: 4 * time.Hour,
	CasePriorityHigh:     8 * time.Hour,
	CasePriorityMedium:   24 * time.Hour,
	CasePriorityLow:      48 * time.Hour,
}

// SLAWindow returns the response window for a priority; unknown priorities get the Medium window.
func SLAWindow(priority CasePriority) time.Duration {
	if window, ok := slaWindows[priority]; ok {
		return window
	}
	return slaWindows[CasePriorityMedium]
}

// ComputeSLADue returns the deadline for a case created at createdAt.
func ComputeSLADue(priority CasePriority, createdAt time.Time) time.Time {
	return createdAt.Add(SLAWindow(priority))
}

var caseNumberPattern = regexp.MustCompile(`^CS-[0-9A-F]{8}$`)

// NewCaseNumber generates a fresh CS- prefixed case number.
func NewCaseNumber() string {
	return "CS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// IsCaseNumber reports whether s has the case number format.
func IsCaseNumber(s string) bool {
	return caseNumberPattern.MatchString(s)
}

// Case is a customer support request.
type Case struct {
	ID          int64
	CaseNumber  string
	Subject     string
	Description string
	Status      CaseStatus
	Priority    CasePriority
	AccountID   *int64
	ContactID   *int64
	OwnerID     *int64
	IsEscalated bool
	EscalatedAt *time.Time
	SLADueDate  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsCritical reports whether the case bypasses round-robin assignment.
func (c *Case) IsCritical() bool {
	return c.Priority == CasePriorityCritical
}

// IsOverdue reports whether the case is open, not yet escalated and past its deadline.
func (c *Case) IsOverdue(now time.Time) bool {
	return !c.IsEscalated && c.Status != CaseStatusClosed && c.SLADueDate.Before(now)
}

// Escalate flags the case. Repeated calls re-stamp the timestamp.
func (c *Case) Escalate(now time.Time) {
	c.IsEscalated = true
	c.EscalatedAt = &now
	c.Status = CaseStatusEscalated
}

// MergeMarker is appended to the description of a case merged into master.
func MergeMarker(masterNumber string) string {
	return fmt.Sprintf("[Merged into %s]", masterNumber)
}

// CloseAsMerged closes the case and records which case absorbed it.
func (c *Case) CloseAsMerged(masterNumber string) {
	c.Status = CaseStatusClosed
	if c.Description == "" {
		c.Description = MergeMarker(masterNumber)
		return
	}
	c.Description = c.Description + "\n\n" + MergeMarker(masterNumber)
}

// CurrentOwner returns the assigned owner, nil when unassigned.
func (c *Case) CurrentOwner() *int64 { return c.OwnerID }

// NeedsPriorityRouting reports whether the case skips round-robin.
func (c *Case) NeedsPriorityRouting() bool { return c.IsCritical() }
