package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
)

var errInjected = errors.New("injected store failure")

// memStore is an in-memory record store with snapshot rollback.
type memStore struct {
	mu sync.Mutex

	seq           int64
	users         map[int64]domain.User
	accounts      map[int64]domain.Account
	contacts      map[int64]domain.Contact
	leads         map[int64]domain.Lead
	opportunities map[int64]domain.Opportunity
	cases         map[int64]domain.Case
	activities    []domain.Activity
	recents       []domain.RecentRecord
	audits        []domain.AuditLog

	fail   map[string]error
	commit int
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[int64]domain.User{},
		accounts:      map[int64]domain.Account{},
		contacts:      map[int64]domain.Contact{},
		leads:         map[int64]domain.Lead{},
		opportunities: map[int64]domain.Opportunity{},
		cases:         map[int64]domain.Case{},
		fail:          map[string]error{},
	}
}

func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *memStore) check(op string) error {
	if err, ok := s.fail[op]; ok {
		return err
	}
	return nil
}

type memSnapshot struct {
	seq           int64
	users         map[int64]domain.User
	accounts      map[int64]domain.Account
	contacts      map[int64]domain.Contact
	leads         map[int64]domain.Lead
	opportunities map[int64]domain.Opportunity
	cases         map[int64]domain.Case
	activities    []domain.Activity
	recents       []domain.RecentRecord
	audits        []domain.AuditLog
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	return memSnapshot{
		seq:           s.seq,
		users:         copyMap(s.users),
		accounts:      copyMap(s.accounts),
		contacts:      copyMap(s.contacts),
		leads:         copyMap(s.leads),
		opportunities: copyMap(s.opportunities),
		cases:         copyMap(s.cases),
		activities:    append([]domain.Activity(nil), s.activities...),
		recents:       append([]domain.RecentRecord(nil), s.recents...),
		audits:        append([]domain.AuditLog(nil), s.audits...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.seq = snap.seq
	s.users = snap.users
	s.accounts = snap.accounts
	s.contacts = snap.contacts
	s.leads = snap.leads
	s.opportunities = snap.opportunities
	s.cases = snap.cases
	s.activities = snap.activities
	s.recents = snap.recents
	s.audits = snap.audits
}

func (s *memStore) repos() repository.Repositories {
	return repository.Repositories{
		Users:         &memUsers{s: s},
		Accounts:      &memAccounts{s: s},
		Contacts:      &memContacts{s: s},
		Leads:         &memLeads{s: s},
		Opportunities: &memOpportunities{s: s},
		Cases:         &memCases{s: s},
		Activities:    &memActivities{s: s},
		RecentRecords: &memRecents{s: s},
		AuditLogs:     &memAudits{s: s},
	}
}

// WithinTx serializes transactions and restores the snapshot when fn fails.
func (s *memStore) WithinTx(_ context.Context, fn func(repository.Repositories) error) error {
	snap := s.snapshot()
	if err := fn(s.repos()); err != nil {
		s.restore(snap)
		return err
	}
	s.commit++
	return nil
}

func (s *memStore) activitiesFor(ref domain.RecordRef) []domain.Activity {
	var out []domain.Activity
	for _, a := range s.activities {
		if a.Record == ref {
			out = append(out, a)
		}
	}
	return out
}

func (s *memStore) addUser(username string, role domain.UserRole, active bool) domain.User {
	u := domain.User{
		ID:       s.nextID(),
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		IsActive: active,
	}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addLead(l domain.Lead) domain.Lead {
	l.ID = s.nextID()
	if l.Status == "" {
		l.Status = domain.LeadStatusNew
	}
	s.leads[l.ID] = l
	return l
}

func (s *memStore) addContact(c domain.Contact) domain.Contact {
	c.ID = s.nextID()
	s.contacts[c.ID] = c
	return c
}

func (s *memStore) addCase(c domain.Case) domain.Case {
	c.ID = s.nextID()
	if c.CaseNumber == "" {
		c.CaseNumber = domain.NewCaseNumber()
	}
	if c.Status == "" {
		c.Status = domain.CaseStatusNew
	}
	if c.Priority == "" {
		c.Priority = domain.CasePriorityMedium
	}
	s.cases[c.ID] = c
	return c
}

func window(p repository.Page) (int, int) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return limit, p.Offset
}

func pageOf[T any](items []T, p repository.Page) ([]T, int) {
	total := len(items)
	limit, offset := window(p)
	if offset >= total {
		return []T{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total
}

func matches(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func sameOwner(want, got *int64) bool {
	return want == nil || (got != nil && *got == *want)
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type memUsers struct {
	repository.UserRepository
	s *memStore
}

func (r *memUsers) Create(_ context.Context, u *domain.User) error {
	if err := r.s.check("users.Create"); err != nil {
		return err
	}
	u.ID = r.s.nextID()
	r.s.users[u.ID] = *u
	return nil
}

func (r *memUsers) Update(_ context.Context, u *domain.User) error {
	if _, ok := r.s.users[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, id := range sortedIDs(r.s.users) {
		if u := r.s.users[id]; u.Username == username {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, id := range sortedIDs(r.s.users) {
		if u := r.s.users[id]; strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUsers) List(_ context.Context, f repository.UserFilter) ([]domain.User, int, error) {
	var out []domain.User
	for _, id := range sortedIDs(r.s.users) {
		u := r.s.users[id]
		if f.ActiveOnly && !u.IsActive {
			continue
		}
		out = append(out, u)
	}
	items, total := pageOf(out, f.Page)
	return items, total, nil
}

func (r *memUsers) ListActiveIDs(_ context.Context, role domain.UserRole) ([]int64, error) {
	if err := r.s.check("users.ListActiveIDs"); err != nil {
		return nil, err
	}
	var ids []int64
	for _, id := range sortedIDs(r.s.users) {
		if u := r.s.users[id]; u.IsActive && u.Role == role {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memAccounts struct {
	repository.AccountRepository
	s *memStore
}

func (r *memAccounts) Create(_ context.Context, a *domain.Account) error {
	if err := r.s.check("accounts.Create"); err != nil {
		return err
	}
	a.ID = r.s.nextID()
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *memAccounts) Update(_ context.Context, a *domain.Account) error {
	if _, ok := r.s.accounts[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *memAccounts) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (r *memAccounts) Delete(_ context.Context, id int64) error {
	if _, ok := r.s.accounts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.accounts, id)
	return nil
}

func (r *memAccounts) List(_ context.Context, f repository.AccountFilter) ([]domain.Account, int, error) {
	var out []domain.Account
	for _, id := range sortedIDs(r.s.accounts) {
		a := r.s.accounts[id]
		if sameOwner(f.OwnerID, a.OwnerID) && matches(f.Search, a.Name, a.Industry, a.Website) {
			out = append(out, a)
		}
	}
	items, total := pageOf(out, f.Page)
	return items, total, nil
}

type memContacts struct {
	repository.ContactRepository
	s *memStore
}

func (r *memContacts) Create(_ context.Context, c *domain.Contact) error {
	if err := r.s.check("contacts.Create"); err != nil {
		return err
	}
	c.ID = r.s.nextID()
	r.s.contacts[c.ID] = *c
	return nil
}

func (r *memContacts) GetByID(_ context.Context, id int64) (*domain.Contact, error) {
	c, ok := r.s.contacts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r *memContacts) List(_ context.Context, f repository.ContactFilter) ([]domain.Contact, int, error) {
	var out []domain.Contact
	for _, id := range sortedIDs(r.s.contacts) {
		c := r.s.contacts[id]
		if sameOwner(f.OwnerID, c.OwnerID) && matches(f.Search, c.FirstName, c.LastName, c.Email) {
			out = append(out, c)
		}
	}
	items, total := pageOf(out, f.Page)
	return items, total, nil
}

func (r *memContacts) FindDuplicates(_ context.Context, q repository.DuplicateQuery) ([]domain.Contact, error) {
	var out []domain.Contact
	for _, id := range sortedIDs(r.s.contacts) {
		c := r.s.contacts[id]
		if (q.Email != "" && c.Email == q.Email) || (q.Phone != "" && c.Phone == q.Phone) {
			out = append(out, c)
		}
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

type memLeads struct {
	repository.LeadRepository
	s *memStore
}

func (r *memLeads) Create(_ context.Context, l *domain.Lead) error {
	if err := r.s.check("leads.Create"); err != nil {
		return err
	}
	l.ID = r.s.nextID()
	r.s.leads[l.ID] = *l
	return nil
}

func (r *memLeads) Update(_ context.Context, l *domain.Lead) error {
	if err := r.s.check("leads.Update"); err != nil {
		return err
	}
	if _, ok := r.s.leads[l.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.s.leads[l.ID] = *l
	return nil
}

func (r *memLeads) GetByID(_ context.Context, id int64) (*domain.Lead, error) {
	l, ok := r.s.leads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &l, nil
}

func (r *memLeads) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Lead, error) {
	return r.GetByID(ctx, id)
}

func (r *memLeads) List(_ context.Context, f repository.LeadFilter) ([]domain.Lead, int, error) {
	var out []domain.Lead
	for _, id := range sortedIDs(r.s.leads) {
		l := r.s.leads[id]
		if l.IsConverted && !f.IncludeConverted {
			continue
		}
		if sameOwner(f.OwnerID, l.OwnerID) && matches(f.Search, l.FirstName, l.LastName, l.Company, l.Email) {
			out = append(out, l)
		}
	}
	items, total := pageOf(out, f.Page)
	return items, total, nil
}

func (r *memLeads) FindDuplicates(_ context.Context, q repository.DuplicateQuery) ([]domain.Lead, error) {
	var out []domain.Lead
	for _, id := range sortedIDs(r.s.leads) {
		l := r.s.leads[id]
		if l.IsConverted {
			continue
		}
		if (q.Email != "" && l.Email == q.Email) || (q.Phone != "" && l.Phone == q.Phone) {
			out = append(out, l)
		}
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

type memOpportunities struct {
	repository.OpportunityRepository
	s *memStore
}

func (r *memOpportunities) Create(_ context.Context, o *domain.Opportunity) error {
	if err := r.s.check("opportunities.Create"); err != nil {
		return err
	}
	o.ID = r.s.nextID()
	r.s.opportunities[o.ID] = *o
	return nil
}

func (r *memOpportunities) Update(_ context.Context, o *domain.Opportunity) error {
	if _, ok := r.s.opportunities[o.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.s.opportunities[o.ID] = *o
	return nil
}

func (r *memOpportunities) GetByID(_ context.Context, id int64) (*domain.Opportunity, error) {
	o, ok := r.s.opportunities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &o, nil
}

func (r *memOpportunities) List(_ context.Context, f repository.OpportunityFilter) ([]domain.Opportunity, int, error) {
	var out []domain.Opportunity
	for _, id := range sortedIDs(r.s.opportunities) {
		o := r.s.opportunities[id]
		if sameOwner(f.OwnerID, o.OwnerID) && matches(f.Search, o.Name) {
			out = append(out, o)
		}
	}
	items, total := pageOf(out, f.Page)
	return items, total, nil
}

type memCases struct {
	repository.CaseRepository
	s *memStore
}

func (r *memCases) Create(_ context.Context, c *domain.Case) error {
	if err := r.s.check("cases.Create"); err != nil {
		return err
	}
	c.ID = r.s.nextID()
	if c.CaseNumber == "" {
		c.CaseNumber = domain.NewCaseNumber()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt
	r.s.cases[c.ID] = *c
	return nil
}

func (r *memCases) Update(_ context.Context, c *domain.Case) error {
	if err := r.s.check("cases.Update"); err != nil {
		return err
	}
	stored, ok := r.s.cases[c.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	c.CaseNumber = stored.CaseNumber
	c.SLADueDate = stored.SLADueDate
	r.s.cases[c.ID] = *c
	return nil
}

func (r *memCases) GetByID(_ context.Context, id int64) (*domain.Case, error) {
	c, ok := r.s.cases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r *memCases) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Case, error) {
	if err := r.s.check("cases.GetByIDForUpdate"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *memCases) List(_ context.Context, f repository.CaseFilter) ([]domain.Case, int, error) {
	var out []domain.Case
	for _, id := range sortedIDs(r.s.cases) {
		c := r.s.cases[id]
		if sameOwner(f.OwnerID, c.OwnerID) && matches(f.Search, c.CaseNumber, c.Subject) {
			out = append(out, c)
		}
	}
	items, total := pageOf(out, f.Page)
	return items, total, nil
}

func (r *memCases) ListOverdue(_ context.Context, now time.Time) ([]domain.Case, error) {
	if err := r.s.check("cases.ListOverdue"); err != nil {
		return nil, err
	}
	var out []domain.Case
	for _, id := range sortedIDs(r.s.cases) {
		c := r.s.cases[id]
		if !c.IsEscalated && c.Status != domain.CaseStatusClosed && c.SLADueDate.Before(now) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SLADueDate.Before(out[j].SLADueDate) })
	return out, nil
}

func (r *memCases) CountOpenByPriority(_ context.Context, ownerID *int64) (map[domain.CasePriority]int, error) {
	counts := map[domain.CasePriority]int{}
	for _, c := range r.s.cases {
		if c.Status != domain.CaseStatusClosed && sameOwner(ownerID, c.OwnerID) {
			counts[c.Priority]++
		}
	}
	return counts, nil
}

type memActivities struct {
	s *memStore
}

func (r *memActivities) Create(_ context.Context, a *domain.Activity) error {
	if err := r.s.check("activities.Create"); err != nil {
		return err
	}
	a.ID = r.s.nextID()
	a.CreatedAt = time.Now().UTC()
	r.s.activities = append(r.s.activities, *a)
	return nil
}

func (r *memActivities) ListByRecord(_ context.Context, ref domain.RecordRef, limit, offset int) ([]domain.Activity, error) {
	all := r.s.activitiesFor(ref)
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	items, _ := pageOf(all, repository.Page{Limit: limit, Offset: offset})
	return items, nil
}

type memRecents struct {
	s *memStore
}

func (r *memRecents) Touch(_ context.Context, rec *domain.RecentRecord) error {
	if err := r.s.check("recents.Touch"); err != nil {
		return err
	}
	kept := r.s.recents[:0]
	for _, existing := range r.s.recents {
		if existing.UserID == rec.UserID && existing.Record == rec.Record {
			continue
		}
		kept = append(kept, existing)
	}
	rec.ID = r.s.nextID()
	r.s.recents = append(kept, *rec)
	return nil
}

func (r *memRecents) ListByUser(_ context.Context, userID int64, limit int) ([]domain.RecentRecord, error) {
	var out []domain.RecentRecord
	for i := len(r.s.recents) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.recents[i].UserID == userID {
			out = append(out, r.s.recents[i])
		}
	}
	return out, nil
}

type memAudits struct {
	s *memStore
}

func (r *memAudits) Create(_ context.Context, entry *domain.AuditLog) error {
	if err := r.s.check("audits.Create"); err != nil {
		return err
	}
	entry.ID = r.s.nextID()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r *memAudits) List(_ context.Context, f repository.AuditLogFilter) ([]domain.AuditLog, int, error) {
	var out []domain.AuditLog
	for _, a := range r.s.audits {
		if f.TargetTable != "" && a.TargetTable != f.TargetTable {
			continue
		}
		out = append(out, a)
	}
	items, total := pageOf(out, f.Page)
	return items, total, nil
}

// eventRecorder collects published events.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// recordingMetrics counts workflow metrics.
type recordingMetrics struct {
	assignments map[string]int
	conversions map[string]int
	escalations map[string]int
	merged      int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{assignments: map[string]int{}, conversions: map[string]int{}, escalations: map[string]int{}}
}

func (m *recordingMetrics) RecordAssignment(kind domain.RecordKind, rule string) {
	m.assignments[string(kind)+":"+rule]++
}
func (m *recordingMetrics) RecordConversion(outcome string) { m.conversions[outcome]++ }
func (m *recordingMetrics) RecordEscalations(trigger string, count int) {
	m.escalations[trigger] += count
}
func (m *recordingMetrics) RecordMerge(closed int) { m.merged += closed }

// fixture wires services over one memStore.
type fixture struct {
	store    *memStore
	events   *eventRecorder
	metrics  *recordingMetrics
	now      time.Time
	deps     Dependencies
	ctx      context.Context
	actor    domain.User
	salesA   domain.User
	salesB   domain.User
	salesC   domain.User
	inactive domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, recorder.handle)
	}
	f := &fixture{
		store:   store,
		events:  recorder,
		metrics: newRecordingMetrics(),
		now:     time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC),
		ctx:     context.Background(),
	}
	f.actor = store.addUser("admin", domain.UserRoleAdmin, true)
	f.salesA = store.addUser("alice", domain.UserRoleUser, true)
	f.salesB = store.addUser("bob", domain.UserRoleUser, true)
	f.inactive = store.addUser("ivan", domain.UserRoleUser, false)
	f.salesC = store.addUser("carol", domain.UserRoleUser, true)
	f.deps = Dependencies{
		Repos:      store.repos(),
		Tx:         store,
		Dispatcher: dispatcher,
		Metrics:    f.metrics,
		Logger:     zap.NewNop(),
		Clock:      func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) lead(t *testing.T, id int64) domain.Lead {
	t.Helper()
	l, ok := f.store.leads[id]
	require.True(t, ok, "lead %d missing", id)
	return l
}

func (f *fixture) kase(t *testing.T, id int64) domain.Case {
	t.Helper()
	c, ok := f.store.cases[id]
	require.True(t, ok, "case %d missing", id)
	return c
}
