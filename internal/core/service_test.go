package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/schemamap/internal/table"
)

// memStore is an in-memory PlanStore and RunStore.
type memStore struct {
	mu        sync.Mutex
	plans     map[string]Plan
	runs      map[string]*Run
	recordErr error
}

func newMemStore() *memStore {
	return &memStore{plans: map[string]Plan{}, runs: map[string]*Run{}}
}

func (m *memStore) SavePlan(_ context.Context, p Plan) (Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.Name] = p
	return p, nil
}

func (m *memStore) GetPlan(_ context.Context, name string) (Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[name]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnknownPlan, name)
	}
	return p, nil
}

func (m *memStore) ListPlans(context.Context) ([]Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) DeletePlan(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlan, name)
	}
	delete(m.plans, name)
	return nil
}

func (m *memStore) RecordRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.runs[run.ID] = run
	return nil
}

func (m *memStore) GetRun(_ context.Context, id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

func (m *memStore) PurgeRuns(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, run := range m.runs {
		if run.CreatedAt.Before(olderThan) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

var fullNamePlan = Plan{
	Name: "full_name",
	Steps: []Step{
		{Combine: &CombineStep{Columns: []string{"fname", "lname"}, Into: "full_name"}},
		{Rename: &RenameStep{From: "missing", To: "x"}},
	},
}

func newTestService(t *testing.T, store *memStore) *Service {
	t.Helper()
	Clear()
	t.Cleanup(Clear)
	require.NoError(t, Register(fullNamePlan))

	opts := Options{Limiter: NewApplyLimiter(2, time.Second)}
	if store != nil {
		opts.Plans = store
		opts.Runs = store
	}
	return NewService(opts)
}

func TestService_ApplyRegisteredPlan(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := ContextWithClient(context.Background(), "10.0.0.1", "curl/8")

	in := table.MustNew([]string{"email", "fname", "lname"}, []string{"a@x.com", "Jo", "Doe"})
	run, err := svc.Apply(ctx, "full_name", in)
	require.NoError(t, err)

	assert.True(t, run.OK())
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "full_name", run.PlanName)
	assert.Equal(t, 1, run.InputRows)
	assert.Equal(t, []string{"email", "fname", "lname"}, run.InputCols)
	assert.Equal(t, "10.0.0.1", run.IPAddress)
	assert.Equal(t, "curl/8", run.UserAgent)
	assert.Empty(t, run.Errors)
	require.Len(t, run.Warnings, 1)
	assert.Contains(t, run.Warnings[0], "no effect")

	require.NotNil(t, run.Output)
	want := table.MustNew([]string{"email", "full_name"}, []string{"a@x.com", "Jo Doe"})
	assert.True(t, run.Output.Equal(want))

	stored, err := svc.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Same(t, run, stored)
}

func TestService_MappingFailureIsARun(t *testing.T) {
	svc := newTestService(t, nil)

	in := table.MustNew([]string{"email"}, []string{"a@x.com"})
	run, err := svc.Apply(context.Background(), "full_name", in)
	require.NoError(t, err)

	assert.Equal(t, RunFailed, run.Status)
	assert.Nil(t, run.Output)
	assert.Empty(t, run.Warnings)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "column not found")
}

func TestService_ApplyStoredPlan(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	saved, err := svc.SavePlan(ctx, Plan{Name: "drop_email", Steps: []Step{{Delete: &DeleteStep{Column: "email"}}}})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	run, err := svc.Apply(ctx, "drop_email", table.MustNew([]string{"email", "n"}, []string{"a", "1"}))
	require.NoError(t, err)
	require.True(t, run.OK())
	assert.Equal(t, []string{"n"}, run.Output.Columns())
}

func TestService_UnknownPlan(t *testing.T) {
	for _, store := range []*memStore{nil, newMemStore()} {
		svc := newTestService(t, store)
		_, err := svc.Apply(context.Background(), "nope", table.MustNew(nil))
		assert.ErrorIs(t, err, ErrUnknownPlan)
	}
}

func TestService_ApplyPlan(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.ApplyPlan(ctx, Plan{Name: "bad", Steps: []Step{{}}}, table.MustNew(nil))
	assert.ErrorIs(t, err, ErrInvalidPlan)

	run, err := svc.ApplyPlan(ctx, Plan{Name: "adhoc", Steps: []Step{
		{Transform: &TransformStep{Column: "amount", With: "numeric"}},
	}}, table.MustNew([]string{"amount"}, []string{"$1,200.00"}))
	require.NoError(t, err)
	cell, _ := run.Output.Cell(0, "amount")
	assert.Equal(t, "1200", cell)
}

func TestService_Limits(t *testing.T) {
	Clear()
	t.Cleanup(Clear)
	require.NoError(t, Register(fullNamePlan))
	svc := NewService(Options{MaxRows: 1, MaxColumns: 3})

	twoRows := table.MustNew([]string{"a"}, []string{"1"}, []string{"2"})
	_, err := svc.Apply(context.Background(), "full_name", twoRows)
	assert.ErrorIs(t, err, ErrTableTooLarge)

	wide := table.MustNew([]string{"a", "b", "c", "d"})
	_, err = svc.Apply(context.Background(), "full_name", wide)
	assert.ErrorIs(t, err, ErrTableTooLarge)
}

func TestService_LimiterBusy(t *testing.T) {
	Clear()
	t.Cleanup(Clear)
	require.NoError(t, Register(fullNamePlan))

	limiter := NewApplyLimiter(1, 20*time.Millisecond)
	svc := NewService(Options{Limiter: limiter})
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	_, err := svc.Apply(context.Background(), "full_name", table.MustNew(nil))
	assert.ErrorIs(t, err, ErrTooManyApplies)
	assert.Equal(t, 1, svc.LimiterStatus().Active)
}

func TestService_ApplyTimeoutPerService(t *testing.T) {
	Clear()
	t.Cleanup(Clear)
	require.NoError(t, Register(fullNamePlan))

	limiter := NewApplyLimiter(1, time.Minute)
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	quick := NewService(Options{Limiter: limiter, ApplyTimeout: 20 * time.Millisecond})
	_, err := quick.Apply(context.Background(), "full_name", table.MustNew(nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// A zero timeout falls back to the default rather than expiring at once.
	free := NewService(Options{})
	run, err := free.Apply(context.Background(), "full_name",
		table.MustNew([]string{"fname", "lname"}, []string{"a", "b"}))
	require.NoError(t, err)
	assert.True(t, run.OK())
}

func TestService_RecordFailureDoesNotFailApply(t *testing.T) {
	store := newMemStore()
	store.recordErr = errors.New("connection refused")
	svc := newTestService(t, store)

	run, err := svc.Apply(context.Background(), "full_name",
		table.MustNew([]string{"fname", "lname"}, []string{"a", "b"}))
	require.NoError(t, err)
	assert.True(t, run.OK())
}

func TestService_Plans(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.SavePlan(ctx, Plan{Name: "alpha"})
	require.NoError(t, err)

	t.Run("registered names cannot be saved", func(t *testing.T) {
		_, err := svc.SavePlan(ctx, Plan{Name: "full_name"})
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("invalid plans cannot be saved", func(t *testing.T) {
		_, err := svc.SavePlan(ctx, Plan{Name: "bad", Steps: []Step{{}}})
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("list merges and sorts", func(t *testing.T) {
		plans, err := svc.Plans(ctx)
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, "alpha", plans[0].Name)
		assert.Equal(t, "full_name", plans[1].Name)
	})

	t.Run("get from either source", func(t *testing.T) {
		p, err := svc.Plan(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, "alpha", p.Name)

		p, err = svc.Plan(ctx, "full_name")
		require.NoError(t, err)
		assert.Len(t, p.Steps, 2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.DeletePlan(ctx, "alpha"))
		assert.ErrorIs(t, svc.DeletePlan(ctx, "alpha"), ErrUnknownPlan)
	})
}

func TestService_WithoutStore(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.SavePlan(ctx, Plan{Name: "x"})
	assert.ErrorIs(t, err, ErrPlanStoreDisabled)
	assert.ErrorIs(t, svc.DeletePlan(ctx, "x"), ErrPlanStoreDisabled)

	_, err = svc.Run(ctx, "8c1f0c0e-4c7a-4a55-9a43-3b8a1d2f0a11")
	assert.ErrorIs(t, err, ErrRunNotFound)

	plans, err := svc.Plans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestService_RunRejectsMalformedID(t *testing.T) {
	svc := newTestService(t, newMemStore())
	_, err := svc.Run(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestService_PurgeRuns(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	store.runs["old"] = &Run{ID: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}
	store.runs["new"] = &Run{ID: "new", CreatedAt: time.Now()}

	assert.Equal(t, int64(1), svc.purgeRuns(context.Background(), 24*time.Hour))
	assert.Contains(t, store.runs, "new")
	assert.NotContains(t, store.runs, "old")
}

func TestService_RetentionSchedulerStops(t *testing.T) {
	svc := newTestService(t, newMemStore())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartRetentionScheduler(ctx, RetentionConfig{CheckInterval: 10 * time.Millisecond})
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
