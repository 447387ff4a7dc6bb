package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest is the caller-facing paging window. Page is 1-based.
type PageRequest struct {
	Page      int
	PageSize  int
	Search    string
	SortBy    string
	SortOrder string
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p PageRequest) repoPage() repository.Page {
	p = p.normalize()
	return repository.Page{
		Search:    p.Search,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
		Limit:     p.PageSize,
		Offset:    (p.Page - 1) * p.PageSize,
	}
}

// PageResult is one page of a listing.
type PageResult[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}

func newPageResult[T any](items []T, total int, req PageRequest) PageResult[T] {
	req = req.normalize()
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{
		Items:    items,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Pages:    (total + req.PageSize - 1) / req.PageSize,
	}
}

// recordName loads the record behind ref and returns its display name.
func recordName(ctx context.Context, repos repository.Repositories, ref domain.RecordRef) (string, error) {
	switch ref.Kind {
	case domain.RecordKindAccount:
		a, err := repos.Accounts.GetByID(ctx, ref.ID)
		if err != nil {
			return "", lookupError(err, "account", ref.ID)
		}
		return a.Name, nil
	case domain.RecordKindContact:
		c, err := repos.Contacts.GetByID(ctx, ref.ID)
		if err != nil {
			return "", lookupError(err, "contact", ref.ID)
		}
		return c.FullName(), nil
	case domain.RecordKindLead:
		l, err := repos.Leads.GetByID(ctx, ref.ID)
		if err != nil {
			return "", lookupError(err, "lead", ref.ID)
		}
		return l.FullName(), nil
	case domain.RecordKindOpportunity:
		o, err := repos.Opportunities.GetByID(ctx, ref.ID)
		if err != nil {
			return "", lookupError(err, "opportunity", ref.ID)
		}
		return o.Name, nil
	case domain.RecordKindCase:
		c, err := repos.Cases.GetByID(ctx, ref.ID)
		if err != nil {
			return "", lookupError(err, "case", ref.ID)
		}
		return caseDisplayName(c), nil
	}
	return "", apperrors.NewInvalidArgument("unknown record type", map[string]any{"record_type": ref.Kind})
}

func caseDisplayName(c *domain.Case) string {
	return fmt.Sprintf("%s: %s", c.CaseNumber, c.Subject)
}

// touchRecent records that viewerID opened ref. Failures are logged, never returned.
func (d Dependencies) touchRecent(ctx context.Context, viewerID int64, ref domain.RecordRef, name string) {
	if viewerID <= 0 {
		return
	}
	err := d.Repos.RecentRecords.Touch(ctx, &domain.RecentRecord{
		UserID:     viewerID,
		Record:     ref,
		RecordName: name,
		AccessedAt: d.Clock(),
	})
	if err != nil {
		d.Logger.Warn("touch recent record failed", zap.Stringer("record", ref), zap.Error(err))
	}
}

// ensureActiveUser verifies that id names an active user.
func ensureActiveUser(ctx context.Context, users repository.UserRepository, id int64) error {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return lookupError(err, "user", id)
	}
	if !user.IsActive {
		return apperrors.NewInvalidArgument("user is inactive", map[string]any{"user_id": id})
	}
	return nil
}
