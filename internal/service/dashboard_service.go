package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

const (
	searchHitsPerKind    = 5
	defaultSearchLimit   = 20
	maxSearchLimit       = 50
	dashboardRecentLimit = 10
	defaultStatsTTL      = time.Minute
)

// Cache stores JSON-encoded values. Get returns errorutil.ErrCacheMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// DashboardStats summarizes a user's book of business.
type DashboardStats struct {
	LeadsCount         int                         `json:"leads_count"`
	OpportunitiesCount int                         `json:"opportunities_count"`
	ContactsCount      int                         `json:"contacts_count"`
	CasesByPriority    map[domain.CasePriority]int `json:"cases_by_priority"`
	RecentRecords      []domain.RecentRecord       `json:"recent_records"`
}

// countsSnapshot is the cached part of the stats; recent records are always read live.
type countsSnapshot struct {
	Leads           int                         `json:"leads"`
	Opportunities   int                         `json:"opportunities"`
	Contacts        int                         `json:"contacts"`
	CasesByPriority map[domain.CasePriority]int `json:"cases_by_priority"`
}

// SearchResult is one hit of the global search.
type SearchResult struct {
	RecordType domain.RecordKind `json:"record_type"`
	RecordID   int64             `json:"record_id"`
	Name       string            `json:"name"`
	Subtitle   string            `json:"subtitle,omitempty"`
}

// DashboardService serves the home screen: stats, recent records and global search.
type DashboardService struct {
	deps     Dependencies
	cache    Cache
	statsTTL time.Duration
}

// NewDashboardService creates the service. cache may be nil.
func NewDashboardService(deps Dependencies, cache Cache, statsTTL time.Duration) *DashboardService {
	if statsTTL <= 0 {
		statsTTL = defaultStatsTTL
	}
	return &DashboardService{deps: deps.withDefaults(), cache: cache, statsTTL: statsTTL}
}

// Stats returns counts owned by userID plus their recent records.
func (s *DashboardService) Stats(ctx context.Context, userID int64) (*DashboardStats, error) {
	counts, err := s.counts(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.RecentRecords(ctx, userID, dashboardRecentLimit)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{
		LeadsCount:         counts.Leads,
		OpportunitiesCount: counts.Opportunities,
		ContactsCount:      counts.Contacts,
		CasesByPriority:    counts.CasesByPriority,
		RecentRecords:      recent,
	}, nil
}

func (s *DashboardService) counts(ctx context.Context, userID int64) (*countsSnapshot, error) {
	key := fmt.Sprintf("crm:dashboard:stats:%d", userID)
	if s.cache != nil {
		var cached countsSnapshot
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrCacheMiss) {
			s.deps.Logger.Warn("dashboard cache get failed", zap.String("key", key), zap.Error(err))
		}
	}

	owner := &userID
	only := repository.Page{Limit: 1}
	_, leads, err := s.deps.Repos.Leads.List(ctx, repository.LeadFilter{Page: only, OwnerID: owner})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	_, opps, err := s.deps.Repos.Opportunities.List(ctx, repository.OpportunityFilter{Page: only, OwnerID: owner})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	_, contacts, err := s.deps.Repos.Contacts.List(ctx, repository.ContactFilter{Page: only, OwnerID: owner})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byPriority, err := s.deps.Repos.Cases.CountOpenByPriority(ctx, owner)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	snapshot := &countsSnapshot{Leads: leads, Opportunities: opps, Contacts: contacts, CasesByPriority: byPriority}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snapshot, s.statsTTL); err != nil {
			s.deps.Logger.Warn("dashboard cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return snapshot, nil
}

// RecentRecords returns the records userID opened most recently.
func (s *DashboardService) RecentRecords(ctx context.Context, userID int64, limit int) ([]domain.RecentRecord, error) {
	if limit <= 0 || limit > domain.RecentRecordsPerUser {
		limit = domain.RecentRecordsPerUser
	}
	items, err := s.deps.Repos.RecentRecords.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.RecentRecord{}
	}
	return items, nil
}

// Search looks for term across contacts, accounts, open leads, opportunities and cases,
// at most five hits per kind, truncated to limit overall.
func (s *DashboardService) Search(ctx context.Context, term string, limit int) ([]SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.NewValidationError("search term is required", map[string]any{"field": "q"})
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	page := repository.Page{Search: term, Limit: searchHitsPerKind}
	results := make([]SearchResult, 0, limit)

	contacts, _, err := s.deps.Repos.Contacts.List(ctx, repository.ContactFilter{Page: page})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, c := range contacts {
		results = append(results, SearchResult{RecordType: domain.RecordKindContact, RecordID: c.ID, Name: c.FullName(), Subtitle: c.Email})
	}

	accounts, _, err := s.deps.Repos.Accounts.List(ctx, repository.AccountFilter{Page: page})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, a := range accounts {
		results = append(results, SearchResult{RecordType: domain.RecordKindAccount, RecordID: a.ID, Name: a.Name, Subtitle: a.Phone})
	}

	leads, _, err := s.deps.Repos.Leads.List(ctx, repository.LeadFilter{Page: page})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, l := range leads {
		results = append(results, SearchResult{RecordType: domain.RecordKindLead, RecordID: l.ID, Name: l.FullName(), Subtitle: l.Company})
	}

	opps, _, err := s.deps.Repos.Opportunities.List(ctx, repository.OpportunityFilter{Page: page})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, o := range opps {
		results = append(results, SearchResult{RecordType: domain.RecordKindOpportunity, RecordID: o.ID, Name: o.Name, Subtitle: string(o.Stage)})
	}

	cases, _, err := s.deps.Repos.Cases.List(ctx, repository.CaseFilter{Page: page})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, c := range cases {
		results = append(results, SearchResult{RecordType: domain.RecordKindCase, RecordID: c.ID, Name: c.CaseNumber, Subtitle: c.Subject})
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
