package dto

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

// ConvertLeadRequest payload. Missing booleans default to true.
type ConvertLeadRequest struct {
	CreateAccount     *bool    `json:"create_account"`
	CreateOpportunity *bool    `json:"create_opportunity"`
	AccountName       string   `json:"account_name" validate:"max=200"`
	OpportunityName   string   `json:"opportunity_name" validate:"max=200"`
	OpportunityAmount *float64 `json:"opportunity_amount" validate:"omitempty,gte=0"`
	OwnerID           *int64   `json:"owner_id" validate:"omitempty,gt=0"`
}

// ConvertLeadResponse reports the records created by a conversion.
type ConvertLeadResponse struct {
	Success       bool   `json:"success"`
	LeadID        int64  `json:"lead_id"`
	AccountID     *int64 `json:"account_id"`
	ContactID     int64  `json:"contact_id"`
	OpportunityID *int64 `json:"opportunity_id"`
}

// DuplicateCheckRequest may arrive as query parameters or JSON.
type DuplicateCheckRequest struct {
	Email string `json:"email" query:"email" validate:"omitempty,max=200"`
	Phone string `json:"phone" query:"phone" validate:"omitempty,max=50"`
}

// MergeCasesRequest payload.
type MergeCasesRequest struct {
	CaseIDs      []int64 `json:"case_ids" validate:"dive,gt=0"`
	MasterCaseID int64   `json:"master_case_id" validate:"required,gt=0"`
}

// SLASweepResponse lists the cases escalated by one sweep.
type SLASweepResponse struct {
	EscalatedCount int      `json:"escalated_count"`
	EscalatedCases []string `json:"escalated_cases"`
}

// ActivityRequest logs a manual activity against a record.
type ActivityRequest struct {
	RecordType   string              `json:"record_type" validate:"required"`
	RecordID     int64               `json:"record_id" validate:"required,gt=0"`
	ActivityType domain.ActivityType `json:"activity_type" validate:"required"`
	Subject      string              `json:"subject" validate:"required,max=200"`
	Details      string              `json:"details"`
}

// ActivityResponse payload.
type ActivityResponse struct {
	ID           int64               `json:"id"`
	RecordType   domain.RecordKind   `json:"record_type"`
	RecordID     int64               `json:"record_id"`
	ActivityType domain.ActivityType `json:"activity_type"`
	Subject      string              `json:"subject"`
	Details      string              `json:"details"`
	CreatedBy    *int64              `json:"created_by"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewActivityResponse maps an activity.
func NewActivityResponse(a *domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:           a.ID,
		RecordType:   a.Record.Kind,
		RecordID:     a.Record.ID,
		ActivityType: a.Type,
		Subject:      a.Subject,
		Details:      a.Details,
		CreatedBy:    a.CreatedBy,
		CreatedAt:    a.CreatedAt,
	}
}

// RecentRecordResponse payload.
type RecentRecordResponse struct {
	RecordType domain.RecordKind `json:"record_type"`
	RecordID   int64             `json:"record_id"`
	RecordName string            `json:"record_name"`
	AccessedAt time.Time         `json:"accessed_at"`
}

// NewRecentRecordResponses maps recent records.
func NewRecentRecordResponses(records []domain.RecentRecord) []RecentRecordResponse {
	out := make([]RecentRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, RecentRecordResponse{
			RecordType: r.Record.Kind,
			RecordID:   r.Record.ID,
			RecordName: r.RecordName,
			AccessedAt: r.AccessedAt,
		})
	}
	return out
}

// DashboardStatsResponse payload.
type DashboardStatsResponse struct {
	LeadsCount         int                         `json:"leads_count"`
	OpportunitiesCount int                         `json:"opportunities_count"`
	ContactsCount      int                         `json:"contacts_count"`
	CasesByPriority    map[domain.CasePriority]int `json:"cases_by_priority"`
	RecentRecords      []RecentRecordResponse      `json:"recent_records"`
}

// SearchQuery parameters for global search.
type SearchQuery struct {
	Q     string `query:"q" validate:"required,max=200"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

// AuditLogQuery filters the audit log.
type AuditLogQuery struct {
	Page        int    `query:"page" validate:"gte=0"`
	PageSize    int    `query:"page_size" validate:"gte=0,lte=100"`
	UserID      int64  `query:"user_id" validate:"gte=0"`
	TargetTable string `query:"target_table" validate:"omitempty,oneof=users accounts contacts leads opportunities cases"`
	TargetID    int64  `query:"target_id" validate:"gte=0"`
}

// AuditLogResponse payload.
type AuditLogResponse struct {
	ID          int64              `json:"id"`
	UserID      *int64             `json:"user_id"`
	Action      domain.AuditAction `json:"action"`
	TargetTable string             `json:"target_table"`
	TargetID    *int64             `json:"target_id"`
	OldValues   map[string]any     `json:"old_values,omitempty"`
	NewValues   map[string]any     `json:"new_values,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// NewAuditLogResponse maps an audit entry.
func NewAuditLogResponse(a *domain.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:          a.ID,
		UserID:      a.UserID,
		Action:      a.Action,
		TargetTable: a.TargetTable,
		TargetID:    a.TargetID,
		OldValues:   a.OldValues,
		NewValues:   a.NewValues,
		Timestamp:   a.Timestamp,
	}
}
