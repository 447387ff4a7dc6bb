package events

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLeadCreated   EventType = "lead_created"
	EventLeadAssigned  EventType = "lead_assigned"
	EventLeadConverted EventType = "lead_converted"
	EventCaseCreated   EventType = "case_created"
	EventCaseAssigned  EventType = "case_assigned"
	EventCaseEscalated EventType = "case_escalated"
	EventCasesMerged   EventType = "cases_merged"
)

// AllEventTypes lists every event the service publishes.
var AllEventTypes = []EventType{
	EventLeadCreated,
	EventLeadAssigned,
	EventLeadConverted,
	EventCaseCreated,
	EventCaseAssigned,
	EventCaseEscalated,
	EventCasesMerged,
}

// Event represents a domain event emitted by services after their transaction commits.
type Event struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	Record    domain.RecordRef `json:"-"`
	ActorID   *int64           `json:"actor_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   interface{}      `json:"payload"`
}

// LeadCreatedPayload payload.
type LeadCreatedPayload struct {
	Score   int    `json:"score"`
	Company string `json:"company,omitempty"`
}

// AssignedPayload is shared by lead and case assignment events.
type AssignedPayload struct {
	OwnerID int64  `json:"owner_id"`
	Rule    string `json:"rule"`
}

// LeadConvertedPayload payload.
type LeadConvertedPayload struct {
	AccountID     *int64 `json:"account_id,omitempty"`
	ContactID     int64  `json:"contact_id"`
	OpportunityID *int64 `json:"opportunity_id,omitempty"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	CaseNumber string              `json:"case_number"`
	Priority   domain.CasePriority `json:"priority"`
	SLADueDate time.Time           `json:"sla_due_date"`
}

// Escalation triggers.
const (
	TriggerManual = "manual"
	TriggerSLA    = "sla"
)

// CaseEscalatedPayload payload.
type CaseEscalatedPayload struct {
	CaseNumber string    `json:"case_number"`
	Subject    string    `json:"subject"`
	OwnerID    *int64    `json:"owner_id,omitempty"`
	Trigger    string    `json:"trigger"`
	SLADueDate time.Time `json:"sla_due_date"`
}

// CasesMergedPayload payload.
type CasesMergedPayload struct {
	MasterCaseNumber string   `json:"master_case_number"`
	MergedCaseIDs    []int64  `json:"merged_case_ids"`
	MergedNumbers    []string `json:"merged_case_numbers"`
}
