package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// ConvertOptions controls what a lead conversion creates.
type ConvertOptions struct {
	CreateAccount     bool
	CreateOpportunity bool
	AccountName       string
	OpportunityName   string
	OpportunityAmount float64
	OwnerID           *int64
}

// DefaultConvertOptions creates both an account and an opportunity.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{CreateAccount: true, CreateOpportunity: true}
}

// ConversionResult holds the records created by a conversion. Account and Opportunity are nil when skipped.
type ConversionResult struct {
	Lead        *domain.Lead
	Account     *domain.Account
	Contact     *domain.Contact
	Opportunity *domain.Opportunity
}

// LeadConversionService turns leads into accounts, contacts and opportunities.
type LeadConversionService struct {
	deps Dependencies
}

// NewLeadConversionService creates the service.
func NewLeadConversionService(deps Dependencies) *LeadConversionService {
	return &LeadConversionService{deps: deps.withDefaults()}
}

// ConvertLead converts the lead in one transaction. The lead row is locked for the duration,
// so a concurrent conversion of the same lead observes AlreadyConverted.
func (s *LeadConversionService) ConvertLead(ctx context.Context, leadID int64, opts ConvertOptions, actorID int64) (*ConversionResult, error) {
	if opts.OpportunityAmount < 0 {
		return nil, apperrors.NewInvalidArgument("opportunity amount must not be negative", map[string]any{"opportunity_amount": opts.OpportunityAmount})
	}

	var result *ConversionResult
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		lead, err := repos.Leads.GetByIDForUpdate(ctx, leadID)
		if err != nil {
			return lookupError(err, "lead", leadID)
		}
		if lead.IsConverted {
			return apperrors.NewAlreadyConverted(leadID)
		}

		res, err := s.convert(ctx, repos, lead, opts, actorID)
		if err != nil {
			return apperrors.MapError(err)
		}
		result = res
		return nil
	})
	if err != nil {
		s.deps.Metrics.RecordConversion(conversionOutcome(err))
		return nil, err
	}

	s.deps.Metrics.RecordConversion("converted")
	s.deps.Logger.Info("lead converted",
		zap.Int64("lead_id", leadID),
		zap.Int64("contact_id", result.Contact.ID),
		zap.Int64p("account_id", result.Lead.ConvertedAccountID),
		zap.Int64p("opportunity_id", result.Lead.ConvertedOpportunityID),
		zap.Int64("user_id", actorID))
	s.deps.publish(ctx, events.EventLeadConverted, domain.LeadRef(leadID), &actorID, events.LeadConvertedPayload{
		AccountID:     result.Lead.ConvertedAccountID,
		ContactID:     result.Contact.ID,
		OpportunityID: result.Lead.ConvertedOpportunityID,
	})
	return result, nil
}

func (s *LeadConversionService) convert(ctx context.Context, repos repository.Repositories, lead *domain.Lead, opts ConvertOptions, actorID int64) (*ConversionResult, error) {
	ownerID := effectiveOwner(opts.OwnerID, lead.OwnerID, actorID)
	result := &ConversionResult{Lead: lead}

	var accountID *int64
	if opts.CreateAccount {
		account := &domain.Account{
			Name:    firstNonEmpty(opts.AccountName, lead.Company, lead.FullName()+" Account"),
			Phone:   lead.Phone,
			OwnerID: &ownerID,
		}
		if err := repos.Accounts.Create(ctx, account); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		result.Account = account
		accountID = &account.ID
	}

	contact := &domain.Contact{
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		AccountID: accountID,
		Title:     lead.Title,
		Phone:     lead.Phone,
		Email:     lead.Email,
		OwnerID:   &ownerID,
	}
	if err := repos.Contacts.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	result.Contact = contact

	var opportunityID *int64
	if opts.CreateOpportunity {
		opp := &domain.Opportunity{
			Name:      firstNonEmpty(opts.OpportunityName, firstNonEmpty(lead.Company, lead.FullName())+" - Opportunity"),
			AccountID: accountID,
			Amount:    opts.OpportunityAmount,
			OwnerID:   &ownerID,
		}
		opp.SetStage(domain.StageQualification)
		if err := repos.Opportunities.Create(ctx, opp); err != nil {
			return nil, fmt.Errorf("create opportunity: %w", err)
		}
		result.Opportunity = opp
		opportunityID = &opp.ID
	}

	lead.MarkConverted(accountID, &contact.ID, opportunityID)
	if err := repos.Leads.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("mark lead converted: %w", err)
	}

	if err := repos.Activities.Create(ctx, &domain.Activity{
		Record:    domain.LeadRef(lead.ID),
		Type:      domain.ActivityConversion,
		Subject:   "Lead Converted",
		Details:   conversionDetails(contact.ID, accountID, opportunityID),
		CreatedBy: &actorID,
	}); err != nil {
		return nil, fmt.Errorf("log conversion activity: %w", err)
	}

	if err := recordAudit(ctx, repos, &actorID, domain.AuditConvert, "leads", lead.ID, nil, map[string]any{
		"converted_account_id":     accountID,
		"converted_contact_id":     contact.ID,
		"converted_opportunity_id": opportunityID,
	}); err != nil {
		return nil, fmt.Errorf("audit conversion: %w", err)
	}
	return result, nil
}

func conversionDetails(contactID int64, accountID, opportunityID *int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lead converted to Contact: %d", contactID)
	if accountID != nil {
		fmt.Fprintf(&b, ", Account: %d", *accountID)
	}
	if opportunityID != nil {
		fmt.Fprintf(&b, ", Opportunity: %d", *opportunityID)
	}
	return b.String()
}

func conversionOutcome(err error) string {
	switch {
	case apperrors.IsCode(err, apperrors.CodeAlreadyConverted):
		return "already_converted"
	case apperrors.IsCode(err, apperrors.CodeNotFound):
		return "not_found"
	default:
		return "failed"
	}
}

func effectiveOwner(requested, current *int64, actorID int64) int64 {
	if requested != nil {
		return *requested
	}
	if current != nil {
		return *current
	}
	return actorID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
