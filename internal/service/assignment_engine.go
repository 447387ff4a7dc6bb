package service

import (
	"context"

	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// Assignment rules reported to metrics and events.
const (
	RuleExisting   = "existing"
	RulePriority   = "priority"
	RuleRoundRobin = "round_robin"
)

// UserDirectory lists active users eligible for assignment.
type UserDirectory interface {
	ListActiveIDs(ctx context.Context, role domain.UserRole) ([]int64, error)
}

// Candidate is a freshly created record that may need an owner.
type Candidate interface {
	CurrentOwner() *int64
	NeedsPriorityRouting() bool
}

// AssignmentEngine picks owners from a pool loaded once at construction.
// An engine is not safe for concurrent use; build one per request or batch.
type AssignmentEngine struct {
	pool   []int64
	cursor int
}

// NewAssignmentEngine loads the pool of active sales users.
func NewAssignmentEngine(ctx context.Context, directory UserDirectory) (*AssignmentEngine, error) {
	pool, err := directory.ListActiveIDs(ctx, domain.UserRoleUser)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &AssignmentEngine{pool: pool}, nil
}

// PoolSize returns the number of users in the pool.
func (e *AssignmentEngine) PoolSize() int {
	return len(e.pool)
}

// AssignOwner returns the owner for c. A record that already has an owner keeps it.
// The second result is false when the record has no owner and the pool is empty.
func (e *AssignmentEngine) AssignOwner(c Candidate) (int64, bool) {
	owner, _, ok := e.assign(c)
	return owner, ok
}

func (e *AssignmentEngine) assign(c Candidate) (int64, string, bool) {
	if current := c.CurrentOwner(); current != nil {
		return *current, RuleExisting, true
	}
	if len(e.pool) == 0 {
		return 0, "", false
	}
	if c.NeedsPriorityRouting() {
		return e.pool[0], RulePriority, true
	}
	owner := e.pool[e.cursor%len(e.pool)]
	e.cursor++
	return owner, RuleRoundRobin, true
}

// autoAssignOwner runs a fresh engine over c. ok is false when no active user was available.
func autoAssignOwner(ctx context.Context, users UserDirectory, c Candidate) (owner int64, rule string, ok bool, err error) {
	engine, err := NewAssignmentEngine(ctx, users)
	if err != nil {
		return 0, "", false, err
	}
	owner, rule, ok = engine.assign(c)
	return owner, rule, ok, nil
}
