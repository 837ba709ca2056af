package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbtier/core/types"
	"dbtier/internal/errors"
)

// fakeMutator records calls and fails on demand
type fakeMutator struct {
	mu    sync.Mutex
	calls []string

	// failWith maps resource string to the error to return
	failWith map[string]error

	// failuresBeforeSuccess maps resource string to how many calls
	// fail transiently before one succeeds
	failuresBeforeSuccess map[string]int
	seen                  map[string]int

	// inFlight tracks per-server concurrency
	inFlight    map[string]int
	maxInFlight map[string]int
	delay       time.Duration
}

func newFakeMutator() *fakeMutator {
	return &fakeMutator{
		failWith:              map[string]error{},
		failuresBeforeSuccess: map[string]int{},
		seen:                  map[string]int{},
		inFlight:              map[string]int{},
		maxInFlight:           map[string]int{},
	}
}

func (m *fakeMutator) ApplyTier(ctx context.Context, id types.ResourceID, tier string) error {
	m.mu.Lock()
	m.calls = append(m.calls, id.String()+"->"+tier)
	m.seen[id.String()]++
	m.inFlight[id.ServerKey()]++
	if m.inFlight[id.ServerKey()] > m.maxInFlight[id.ServerKey()] {
		m.maxInFlight[id.ServerKey()] = m.inFlight[id.ServerKey()]
	}
	seen := m.seen[id.String()]
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.inFlight[id.ServerKey()]--
	err := m.failWith[id.String()]
	if n, ok := m.failuresBeforeSuccess[id.String()]; ok && seen <= n {
		err = errors.Mutation(id.String(), context.DeadlineExceeded).AsTransient()
	}
	m.mu.Unlock()
	return err
}

func (m *fakeMutator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func rid(server, db string) types.ResourceID {
	return types.ResourceID{Subscription: "sub", Server: server, Database: db}
}

func upgradePlan(server, db, from, to string) types.Plan {
	return types.Plan{
		ID:               rid(server, db),
		Action:           types.ActionUpgrade,
		CurrentTier:      from,
		TargetTier:       to,
		Reason:           "test",
		MonthlyCostDelta: decimal.NewFromInt(1),
		Priority:         types.PriorityHigh,
	}
}

func keepPlan(server, db, tier string) types.Plan {
	return types.Plan{
		ID:          rid(server, db),
		Action:      types.ActionKeep,
		CurrentTier: tier,
		TargetTier:  tier,
		Reason:      "test",
		Priority:    types.PriorityNone,
	}
}

func fastOptions(mode types.RunMode) Options {
	return Options{
		Mode:                 mode,
		MaxParallelServers:   4,
		RetryMaxAttempts:     3,
		RetryInitialInterval: time.Millisecond,
	}
}

func TestReconcile_ScanModeDoesNothing(t *testing.T) {
	m := newFakeMutator()
	r, err := New(m, fastOptions(types.ModeScan))
	require.NoError(t, err)

	results := r.Reconcile(context.Background(), []types.Plan{
		upgradePlan("srv-a", "db1", "S0", "S1"),
	})
	assert.Nil(t, results)
	assert.Zero(t, m.callCount())
}

func TestReconcile_DryRunSimulatesEveryPlan(t *testing.T) {
	m := newFakeMutator()
	r, err := New(m, fastOptions(types.ModeDryRun))
	require.NoError(t, err)

	plans := []types.Plan{
		upgradePlan("srv-a", "db1", "S0", "S1"),
		keepPlan("srv-a", "db2", "S1"),
	}
	results := r.Reconcile(context.Background(), plans)
	require.Len(t, results, 2)
	for i, res := range results {
		assert.Equal(t, types.StatusDryRun, res.Status)
		assert.Equal(t, plans[i].ID, res.ID)
	}
	assert.Zero(t, m.callCount(), "dry-run must not mutate")
}

func TestReconcile_DryRunWithoutMutator(t *testing.T) {
	r, err := New(nil, fastOptions(types.ModeDryRun))
	require.NoError(t, err)

	results := r.Reconcile(context.Background(), []types.Plan{
		upgradePlan("srv-a", "db1", "S0", "S1"),
	})
	require.Len(t, results, 1)
}

func TestNew_ApplyModeRequiresMutator(t *testing.T) {
	_, err := New(nil, fastOptions(types.ModeApply))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

func TestReconcile_ApplyMutatesAndSkipsKeep(t *testing.T) {
	m := newFakeMutator()
	r, err := New(m, fastOptions(types.ModeApply))
	require.NoError(t, err)

	plans := []types.Plan{
		upgradePlan("srv-a", "db1", "S0", "S1"),
		keepPlan("srv-a", "db2", "S1"),
	}
	results := r.Reconcile(context.Background(), plans)
	require.Len(t, results, 2)

	assert.Equal(t, types.StatusApplied, results[0].Status)
	assert.Equal(t, "S0", results[0].FromTier)
	assert.Equal(t, "S1", results[0].ToTier)
	assert.Equal(t, 1, results[0].Attempts)

	assert.Equal(t, types.StatusSkipped, results[1].Status)
	assert.Equal(t, 1, m.callCount())
}

func TestReconcile_ApplyIsIdempotentOnNoOp(t *testing.T) {
	m := newFakeMutator()
	r, err := New(m, fastOptions(types.ModeApply))
	require.NoError(t, err)

	// Target equals current: a no-op success without a provider call.
	p := upgradePlan("srv-a", "db1", "S1", "S1")
	results := r.Reconcile(context.Background(), []types.Plan{p})
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusApplied, results[0].Status)
	assert.Zero(t, m.callCount())
}

func TestReconcile_FailureIsolation(t *testing.T) {
	m := newFakeMutator()
	m.failWith[rid("srv-a", "db1").String()] = errors.Mutation("db1", assert.AnError)

	r, err := New(m, fastOptions(types.ModeApply))
	require.NoError(t, err)

	plans := []types.Plan{
		upgradePlan("srv-a", "db1", "S0", "S1"),
		upgradePlan("srv-a", "db2", "S0", "S1"),
		upgradePlan("srv-b", "db3", "S1", "S2"),
	}
	results := r.Reconcile(context.Background(), plans)
	require.Len(t, results, 3)

	assert.Equal(t, types.StatusFailed, results[0].Status)
	assert.NotEmpty(t, results[0].Err)
	assert.Equal(t, results[0].FromTier, results[0].ToTier, "failed resource keeps its tier")

	// The failure must not prevent the rest of the batch.
	assert.Equal(t, types.StatusApplied, results[1].Status)
	assert.Equal(t, types.StatusApplied, results[2].Status)
}

func TestReconcile_RetriesTransientFailures(t *testing.T) {
	m := newFakeMutator()
	m.failuresBeforeSuccess[rid("srv-a", "db1").String()] = 2

	r, err := New(m, fastOptions(types.ModeApply))
	require.NoError(t, err)

	results := r.Reconcile(context.Background(), []types.Plan{
		upgradePlan("srv-a", "db1", "S0", "S1"),
	})
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusApplied, results[0].Status)
	assert.Equal(t, 3, results[0].Attempts)
}

func TestReconcile_DoesNotRetryPermanentFailures(t *testing.T) {
	m := newFakeMutator()
	m.failWith[rid("srv-a", "db1").String()] = errors.Mutation("db1", assert.AnError)

	r, err := New(m, fastOptions(types.ModeApply))
	require.NoError(t, err)

	results := r.Reconcile(context.Background(), []types.Plan{
		upgradePlan("srv-a", "db1", "S0", "S1"),
	})
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusFailed, results[0].Status)
	assert.Equal(t, 1, results[0].Attempts)
	assert.Equal(t, 1, m.callCount())
}

func TestReconcile_GivesUpAfterMaxAttempts(t *testing.T) {
	m := newFakeMutator()
	m.failuresBeforeSuccess[rid("srv-a", "db1").String()] = 10

	r, err := New(m, fastOptions(types.ModeApply))
	require.NoError(t, err)

	results := r.Reconcile(context.Background(), []types.Plan{
		upgradePlan("srv-a", "db1", "S0", "S1"),
	})
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusFailed, results[0].Status)
	assert.Equal(t, 3, results[0].Attempts)
}

func TestReconcile_SerializesPerServer(t *testing.T) {
	m := newFakeMutator()
	m.delay = 10 * time.Millisecond

	r, err := New(m, fastOptions(types.ModeApply))
	require.NoError(t, err)

	plans := []types.Plan{
		upgradePlan("srv-a", "db1", "S0", "S1"),
		upgradePlan("srv-a", "db2", "S0", "S1"),
		upgradePlan("srv-a", "db3", "S0", "S1"),
		upgradePlan("srv-b", "db1", "S0", "S1"),
		upgradePlan("srv-b", "db2", "S0", "S1"),
	}
	results := r.Reconcile(context.Background(), plans)
	require.Len(t, results, 5)
	for _, res := range results {
		assert.Equal(t, types.StatusApplied, res.Status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.LessOrEqual(t, m.maxInFlight[rid("srv-a", "x").ServerKey()], 1)
	assert.LessOrEqual(t, m.maxInFlight[rid("srv-b", "x").ServerKey()], 1)
}

func TestReconcile_ResultsPreservePlanOrder(t *testing.T) {
	m := newFakeMutator()
	opts := fastOptions(types.ModeApply)
	opts.MaxParallelServers = 4

	r, err := New(m, opts)
	require.NoError(t, err)

	plans := []types.Plan{
		upgradePlan("srv-c", "db1", "S0", "S1"),
		upgradePlan("srv-a", "db1", "S0", "S1"),
		upgradePlan("srv-b", "db1", "S0", "S1"),
	}
	results := r.Reconcile(context.Background(), plans)
	require.Len(t, results, 3)
	for i := range plans {
		assert.Equal(t, plans[i].ID, results[i].ID)
	}
}

func TestReconcile_CancellationStopsAdmission(t *testing.T) {
	m := newFakeMutator()
	ctx, cancel := context.WithCancel(context.Background())

	opts := fastOptions(types.ModeApply)
	opts.MaxParallelServers = 1

	r, err := New(m, opts)
	require.NoError(t, err)

	cancel()
	plans := []types.Plan{
		upgradePlan("srv-a", "db1", "S0", "S1"),
		upgradePlan("srv-a", "db2", "S0", "S1"),
	}
	results := r.Reconcile(ctx, plans)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, types.StatusSkipped, res.Status)
		assert.NotEmpty(t, res.Err)
	}
	assert.Zero(t, m.callCount())
}
