package service

import (
	"context"
	"strings"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// MaxDuplicateMatches caps the matches returned by a duplicate check.
const MaxDuplicateMatches = 5

// DuplicateMatch summarizes one existing record that looks like the candidate.
type DuplicateMatch struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// DuplicateWarning is the result of a duplicate check. Field names the primary field
// (email when supplied); SearchedFields lists every field that took part in the match.
type DuplicateWarning struct {
	Field          string           `json:"field"`
	Value          string           `json:"value"`
	SearchedFields []string         `json:"searched_fields"`
	Matches        []DuplicateMatch `json:"matches"`
}

// HasMatches reports whether anything matched.
func (w *DuplicateWarning) HasMatches() bool {
	return w != nil && len(w.Matches) > 0
}

// DuplicateDetector looks for existing contacts or leads sharing an email or phone.
type DuplicateDetector struct {
	contacts repository.ContactRepository
	leads    repository.LeadRepository
}

// NewDuplicateDetector builds a detector over the given repositories.
func NewDuplicateDetector(repos repository.Repositories) *DuplicateDetector {
	return &DuplicateDetector{contacts: repos.Contacts, leads: repos.Leads}
}

// CheckDuplicates returns contacts or non-converted leads whose email or phone equals the
// supplied values. It never treats matches as an error; callers decide.
func (d *DuplicateDetector) CheckDuplicates(ctx context.Context, kind domain.RecordKind, email, phone string) (*DuplicateWarning, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, apperrors.NewInvalidArgument("email or phone is required", nil)
	}

	warning := &DuplicateWarning{Matches: []DuplicateMatch{}}
	if email != "" {
		warning.Field, warning.Value = "email", email
		warning.SearchedFields = append(warning.SearchedFields, "email")
	} else {
		warning.Field, warning.Value = "phone", phone
	}
	if phone != "" {
		warning.SearchedFields = append(warning.SearchedFields, "phone")
	}

	q := repository.DuplicateQuery{Email: email, Phone: phone, Limit: MaxDuplicateMatches}
	switch kind {
	case domain.RecordKindContact:
		contacts, err := d.contacts.FindDuplicates(ctx, q)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, c := range contacts {
			warning.Matches = append(warning.Matches, DuplicateMatch{
				ID: c.ID, Name: c.FullName(), Email: c.Email, Phone: c.Phone,
			})
		}
	case domain.RecordKindLead:
		leads, err := d.leads.FindDuplicates(ctx, q)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, l := range leads {
			warning.Matches = append(warning.Matches, DuplicateMatch{
				ID: l.ID, Name: l.FullName(), Email: l.Email, Phone: l.Phone, Company: l.Company,
			})
		}
	default:
		return nil, apperrors.NewInvalidArgument("duplicate checks support contacts and leads only",
			map[string]any{"entity_type": kind})
	}

	if len(warning.Matches) > MaxDuplicateMatches {
		warning.Matches = warning.Matches[:MaxDuplicateMatches]
	}
	return warning, nil
}
