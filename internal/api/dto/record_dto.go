package dto

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

// ListQuery captures paging, search and filters shared by the list endpoints.
// Zero values mean "not filtered".
type ListQuery struct {
	Q                string `query:"q" validate:"max=200"`
	Page             int    `query:"page" validate:"gte=0"`
	PageSize         int    `query:"page_size" validate:"gte=0,lte=100"`
	SortBy           string `query:"sort_by" validate:"max=50"`
	SortOrder        string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
	OwnerID          int64  `query:"owner_id" validate:"gte=0"`
	AccountID        int64  `query:"account_id" validate:"gte=0"`
	Industry         string `query:"industry"`
	Status           string `query:"status"`
	Priority         string `query:"priority"`
	Stage            string `query:"stage"`
	IncludeConverted bool   `query:"include_converted"`
}

// PageResponse is one page of any listing.
type PageResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}

// ChangeOwnerRequest reassigns a record. owner_id may also come from the query string.
type ChangeOwnerRequest struct {
	OwnerID int64 `json:"owner_id" query:"owner_id" validate:"required,gt=0"`
}

// AccountRequest creates or patches an account. Omitted fields are left untouched on update.
type AccountRequest struct {
	Name           *string `json:"name" validate:"omitempty,max=200"`
	Phone          *string `json:"phone" validate:"omitempty,max=50"`
	Website        *string `json:"website" validate:"omitempty,max=200"`
	Industry       *string `json:"industry" validate:"omitempty,max=100"`
	Description    *string `json:"description"`
	BillingAddress *string `json:"billing_address"`
	OwnerID        *int64  `json:"owner_id" validate:"omitempty,gt=0"`
}

// AccountResponse payload.
type AccountResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Website        string    `json:"website"`
	Industry       string    `json:"industry"`
	Description    string    `json:"description"`
	BillingAddress string    `json:"billing_address"`
	OwnerID        *int64    `json:"owner_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewAccountResponse maps an account.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Phone:          a.Phone,
		Website:        a.Website,
		Industry:       a.Industry,
		Description:    a.Description,
		BillingAddress: a.BillingAddress,
		OwnerID:        a.OwnerID,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// ContactRequest creates or patches a contact.
type ContactRequest struct {
	FirstName      *string `json:"first_name" validate:"omitempty,max=100"`
	LastName       *string `json:"last_name" validate:"omitempty,max=100"`
	AccountID      *int64  `json:"account_id" validate:"omitempty,gt=0"`
	Title          *string `json:"title" validate:"omitempty,max=100"`
	Phone          *string `json:"phone" validate:"omitempty,max=50"`
	Email          *string `json:"email" validate:"omitempty,email"`
	MailingAddress *string `json:"mailing_address"`
	OwnerID        *int64  `json:"owner_id" validate:"omitempty,gt=0"`
}

// ContactResponse payload.
type ContactResponse struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	FullName       string    `json:"full_name"`
	AccountID      *int64    `json:"account_id"`
	Title          string    `json:"title"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	MailingAddress string    `json:"mailing_address"`
	OwnerID        *int64    `json:"owner_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewContactResponse maps a contact.
func NewContactResponse(c *domain.Contact) ContactResponse {
	return ContactResponse{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		FullName:       c.FullName(),
		AccountID:      c.AccountID,
		Title:          c.Title,
		Phone:          c.Phone,
		Email:          c.Email,
		MailingAddress: c.MailingAddress,
		OwnerID:        c.OwnerID,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// LeadRequest creates or patches a lead.
type LeadRequest struct {
	FirstName   *string            `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string            `json:"last_name" validate:"omitempty,max=100"`
	Company     *string            `json:"company" validate:"omitempty,max=200"`
	Title       *string            `json:"title" validate:"omitempty,max=100"`
	Phone       *string            `json:"phone" validate:"omitempty,max=50"`
	Email       *string            `json:"email" validate:"omitempty,email"`
	Status      *domain.LeadStatus `json:"status" validate:"omitempty,max=50"`
	Score       *int               `json:"score" validate:"omitempty,gte=0,lte=100"`
	Region      *string            `json:"region" validate:"omitempty,max=100"`
	Source      *string            `json:"source" validate:"omitempty,max=100"`
	Description *string            `json:"description"`
	OwnerID     *int64             `json:"owner_id" validate:"omitempty,gt=0"`
}

// LeadCreateQuery holds the workflow switches of lead creation.
type LeadCreateQuery struct {
	CheckDuplicates bool  `query:"check_duplicates"`
	AutoAssign      *bool `query:"auto_assign"`
}

// LeadResponse payload.
type LeadResponse struct {
	ID                     int64             `json:"id"`
	FirstName              string            `json:"first_name"`
	LastName               string            `json:"last_name"`
	FullName               string            `json:"full_name"`
	Company                string            `json:"company"`
	Title                  string            `json:"title"`
	Phone                  string            `json:"phone"`
	Email                  string            `json:"email"`
	Status                 domain.LeadStatus `json:"status"`
	Score                  int               `json:"score"`
	Region                 string            `json:"region"`
	Source                 string            `json:"source"`
	Description            string            `json:"description"`
	OwnerID                *int64            `json:"owner_id"`
	IsConverted            bool              `json:"is_converted"`
	ConvertedAccountID     *int64            `json:"converted_account_id"`
	ConvertedContactID     *int64            `json:"converted_contact_id"`
	ConvertedOpportunityID *int64            `json:"converted_opportunity_id"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// NewLeadResponse maps a lead.
func NewLeadResponse(l *domain.Lead) LeadResponse {
	return LeadResponse{
		ID:                     l.ID,
		FirstName:              l.FirstName,
		LastName:               l.LastName,
		FullName:               l.FullName(),
		Company:                l.Company,
		Title:                  l.Title,
		Phone:                  l.Phone,
		Email:                  l.Email,
		Status:                 l.Status,
		Score:                  l.Score,
		Region:                 l.Region,
		Source:                 l.Source,
		Description:            l.Description,
		OwnerID:                l.OwnerID,
		IsConverted:            l.IsConverted,
		ConvertedAccountID:     l.ConvertedAccountID,
		ConvertedContactID:     l.ConvertedContactID,
		ConvertedOpportunityID: l.ConvertedOpportunityID,
		CreatedAt:              l.CreatedAt,
		UpdatedAt:              l.UpdatedAt,
	}
}

// OpportunityRequest creates or patches an opportunity.
type OpportunityRequest struct {
	Name        *string                  `json:"name" validate:"omitempty,max=200"`
	AccountID   *int64                   `json:"account_id" validate:"omitempty,gt=0"`
	Amount      *float64                 `json:"amount" validate:"omitempty,gte=0"`
	Stage       *domain.OpportunityStage `json:"stage" validate:"omitempty,max=50"`
	Probability *int                     `json:"probability" validate:"omitempty,gte=0,lte=100"`
	CloseDate   *time.Time               `json:"close_date"`
	Description *string                  `json:"description"`
	OwnerID     *int64                   `json:"owner_id" validate:"omitempty,gt=0"`
}

// StageRequest moves an opportunity through the pipeline.
type StageRequest struct {
	Stage domain.OpportunityStage `json:"stage" query:"stage" validate:"required"`
}

// OpportunityResponse payload.
type OpportunityResponse struct {
	ID          int64                   `json:"id"`
	Name        string                  `json:"name"`
	AccountID   *int64                  `json:"account_id"`
	Amount      float64                 `json:"amount"`
	Stage       domain.OpportunityStage `json:"stage"`
	Probability int                     `json:"probability"`
	CloseDate   *time.Time              `json:"close_date"`
	Description string                  `json:"description"`
	OwnerID     *int64                  `json:"owner_id"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// NewOpportunityResponse maps an opportunity.
func NewOpportunityResponse(o *domain.Opportunity) OpportunityResponse {
	return OpportunityResponse{
		ID:          o.ID,
		Name:        o.Name,
		AccountID:   o.AccountID,
		Amount:      o.Amount,
		Stage:       o.Stage,
		Probability: o.Probability,
		CloseDate:   o.CloseDate,
		Description: o.Description,
		OwnerID:     o.OwnerID,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// CaseRequest creates or patches a case. SLA deadline and case number are server-assigned.
type CaseRequest struct {
	Subject     *string              `json:"subject" validate:"omitempty,max=200"`
	Description *string              `json:"description"`
	Status      *domain.CaseStatus   `json:"status" validate:"omitempty,oneof=New Working Escalated Closed"`
	Priority    *domain.CasePriority `json:"priority" validate:"omitempty,max=20"`
	AccountID   *int64               `json:"account_id" validate:"omitempty,gt=0"`
	ContactID   *int64               `json:"contact_id" validate:"omitempty,gt=0"`
	OwnerID     *int64               `json:"owner_id" validate:"omitempty,gt=0"`
}

// CaseCreateQuery holds the workflow switches of case creation.
type CaseCreateQuery struct {
	AutoAssign *bool `query:"auto_assign"`
}

// CaseResponse payload.
type CaseResponse struct {
	ID          int64               `json:"id"`
	CaseNumber  string              `json:"case_number"`
	Subject     string              `json:"subject"`
	Description string              `json:"description"`
	Status      domain.CaseStatus   `json:"status"`
	Priority    domain.CasePriority `json:"priority"`
	AccountID   *int64              `json:"account_id"`
	ContactID   *int64              `json:"contact_id"`
	OwnerID     *int64              `json:"owner_id"`
	IsEscalated bool                `json:"is_escalated"`
	EscalatedAt *time.Time          `json:"escalated_at"`
	SLADueDate  time.Time           `json:"sla_due_date"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewCaseResponse maps a case.
func NewCaseResponse(c *domain.Case) CaseResponse {
	return CaseResponse{
		ID:          c.ID,
		CaseNumber:  c.CaseNumber,
		Subject:     c.Subject,
		Description: c.Description,
		Status:      c.Status,
		Priority:    c.Priority,
		AccountID:   c.AccountID,
		ContactID:   c.ContactID,
		OwnerID:     c.OwnerID,
		IsEscalated: c.IsEscalated,
		EscalatedAt: c.EscalatedAt,
		SLADueDate:  c.SLADueDate,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
