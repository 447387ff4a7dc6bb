package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
)

type staticDirectory struct {
	ids   []int64
	err   error
	calls int
}

func (d *staticDirectory) ListActiveIDs(_ context.Context, role domain.UserRole) ([]int64, error) {
	d.calls++
	if role != domain.UserRoleUser {
		return nil, nil
	}
	return d.ids, d.err
}

func newEngine(t *testing.T, ids ...int64) *AssignmentEngine {
	t.Helper()
	engine, err := NewAssignmentEngine(context.Background(), &staticDirectory{ids: ids})
	require.NoError(t, err)
	return engine
}

func TestAssignOwnerHighScoreLeadGoesToFirstUser(t *testing.T) {
	engine := newEngine(t, 11, 12, 13)

	for i := 0; i < 5; i++ {
		owner, ok := engine.AssignOwner(&domain.Lead{Score: 80 + i})
		require.True(t, ok)
		assert.Equal(t, int64(11), owner)
	}

	// priority routing leaves the cursor alone
	owner, _ := engine.AssignOwner(&domain.Lead{Score: 10})
	assert.Equal(t, int64(11), owner)
}

func TestAssignOwnerCriticalCaseGoesToFirstUser(t *testing.T) {
	engine := newEngine(t, 21, 22)

	engine.AssignOwner(&domain.Case{Priority: domain.CasePriorityLow})
	owner, ok := engine.AssignOwner(&domain.Case{Priority: domain.CasePriorityCritical})
	require.True(t, ok)
	assert.Equal(t, int64(21), owner)
}

func TestAssignOwnerRoundRobinIsCyclic(t *testing.T) {
	pool := []int64{31, 32, 33}
	engine := newEngine(t, pool...)

	counts := map[int64]int{}
	var order []int64
	for i := 0; i < 10; i++ {
		owner, ok := engine.AssignOwner(&domain.Lead{Score: 50})
		require.True(t, ok)
		counts[owner]++
		order = append(order, owner)
	}

	assert.Equal(t, []int64{31, 32, 33, 31, 32, 33, 31, 32, 33, 31}, order)
	for _, id := range pool {
		assert.InDelta(t, 10/len(pool), counts[id], 1)
	}
}

func TestAssignOwnerKeepsExistingOwner(t *testing.T) {
	engine := newEngine(t, 41, 42)
	existing := int64(99)

	owner, ok := engine.AssignOwner(&domain.Lead{OwnerID: &existing, Score: 95})
	require.True(t, ok)
	assert.Equal(t, existing, owner)

	owner, _, ok = engine.assign(&domain.Case{OwnerID: &existing})
	require.True(t, ok)
	assert.Equal(t, existing, owner)

	// the existing owner does not advance round-robin
	next, _ := engine.AssignOwner(&domain.Case{Priority: domain.CasePriorityLow})
	assert.Equal(t, int64(41), next)
}

func TestAssignOwnerEmptyPool(t *testing.T) {
	engine := newEngine(t)

	owner, ok := engine.AssignOwner(&domain.Lead{Score: 90})
	assert.False(t, ok)
	assert.Zero(t, owner)
	assert.Zero(t, engine.PoolSize())
}

func TestAssignmentEnginePoolLoadedOnce(t *testing.T) {
	dir := &staticDirectory{ids: []int64{1, 2}}
	engine, err := NewAssignmentEngine(context.Background(), dir)
	require.NoError(t, err)

	dir.ids = []int64{7}
	for i := 0; i < 4; i++ {
		engine.AssignOwner(&domain.Lead{})
	}
	assert.Equal(t, 1, dir.calls)
	assert.Equal(t, 2, engine.PoolSize())
}

func TestNewAssignmentEngineDirectoryError(t *testing.T) {
	_, err := NewAssignmentEngine(context.Background(), &staticDirectory{err: errors.New("db down")})
	require.Error(t, err)
}

func TestAutoAssignOwnerRules(t *testing.T) {
	f := newFixture(t)

	owner, rule, ok, err := autoAssignOwner(f.ctx, f.deps.Repos.Users, &domain.Lead{Score: 85})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.salesA.ID, owner)
	assert.Equal(t, RulePriority, rule)

	owner, rule, ok, err = autoAssignOwner(f.ctx, f.deps.Repos.Users, &domain.Case{Priority: domain.CasePriorityHigh})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.salesA.ID, owner, "fresh engine starts at the head of the pool")
	assert.Equal(t, RuleRoundRobin, rule)
}
