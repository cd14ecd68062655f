package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/schemamap/internal/logging"
	"github.com/JonMunkholm/schemamap/internal/mapping"
	"github.com/JonMunkholm/schemamap/internal/table"
)

var (
	// ErrTableTooLarge is returned when a table exceeds the row or column limit.
	ErrTableTooLarge = errors.New("table too large")

	// ErrRunNotFound is returned when no run is recorded under an id.
	ErrRunNotFound = errors.New("run not found")

	// ErrPlanStoreDisabled is returned by plan writes when no store is configured.
	ErrPlanStoreDisabled = errors.New("plan store not configured")
)

// DefaultApplyTimeout bounds a single apply when Options leaves it unset.
const DefaultApplyTimeout = 30 * time.Second

// PlanStore persists plans saved through the API.
// GetPlan and DeletePlan return ErrUnknownPlan for missing names.
type PlanStore interface {
	SavePlan(ctx context.Context, p Plan) (Plan, error)
	GetPlan(ctx context.Context, name string) (Plan, error)
	ListPlans(ctx context.Context) ([]Plan, error)
	DeletePlan(ctx context.Context, name string) error
}

// RunStore records run history. GetRun returns ErrRunNotFound for unknown ids.
type RunStore interface {
	RecordRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	PurgeRuns(ctx context.Context, olderThan time.Time) (int64, error)
}

// Options configures a Service. Nil stores disable persistence.
type Options struct {
	Plans      PlanStore
	Runs       RunStore
	Limiter    *ApplyLimiter
	MaxRows    int // 0 means unlimited
	MaxColumns int // 0 means unlimited

	// ApplyTimeout bounds a single apply, including waiting for a limiter
	// slot (default: DefaultApplyTimeout).
	ApplyTimeout time.Duration
}

// Service applies plans to tables and keeps track of runs.
// Plans come from the package registry first and the plan store second.
type Service struct {
	plans        PlanStore
	runs         RunStore
	limiter      *ApplyLimiter
	maxRows      int
	maxColumns   int
	applyTimeout time.Duration
}

// NewService creates a Service. A nil limiter and a zero timeout get the defaults.
func NewService(opts Options) *Service {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewApplyLimiter(0, 0)
	}
	timeout := opts.ApplyTimeout
	if timeout <= 0 {
		timeout = DefaultApplyTimeout
	}
	return &Service{
		plans:        opts.Plans,
		runs:         opts.Runs,
		limiter:      limiter,
		maxRows:      opts.MaxRows,
		maxColumns:   opts.MaxColumns,
		applyTimeout: timeout,
	}
}

// Apply runs the plan registered or stored under name against tbl.
// A mapping failure is reported on the returned Run, not as an error.
func (s *Service) Apply(ctx context.Context, name string, tbl table.Table) (*Run, error) {
	if cp, ok := lookup(name); ok {
		return s.run(ctx, cp.plan, cp.mapping, tbl)
	}

	p, err := s.storedPlan(ctx, name)
	if err != nil {
		return nil, err
	}
	m, err := Compile(p)
	if err != nil {
		return nil, fmt.Errorf("stored plan %q: %w", name, err)
	}
	return s.run(ctx, p, m, tbl)
}

// ApplyPlan compiles an ad-hoc plan and runs it against tbl.
func (s *Service) ApplyPlan(ctx context.Context, p Plan, tbl table.Table) (*Run, error) {
	m, err := Compile(p)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, p, m, tbl)
}

func (s *Service) run(ctx context.Context, p Plan, m mapping.Mapping, tbl table.Table) (*Run, error) {
	if s.maxRows > 0 && tbl.RowCount() > s.maxRows {
		return nil, fmt.Errorf("%w: %d rows exceeds limit of %d", ErrTableTooLarge, tbl.RowCount(), s.maxRows)
	}
	if s.maxColumns > 0 && tbl.Width() > s.maxColumns {
		return nil, fmt.Errorf("%w: %d columns exceeds limit of %d", ErrTableTooLarge, tbl.Width(), s.maxColumns)
	}

	ctx, cancel := context.WithTimeout(ctx, s.applyTimeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("apply %q: %w", p.Name, err)
	}
	defer s.limiter.Release()

	ip, ua := clientFromContext(ctx)
	run := &Run{
		ID:        uuid.NewString(),
		PlanName:  p.Name,
		InputRows: tbl.RowCount(),
		InputCols: tbl.Columns(),
		IPAddress: ip,
		UserAgent: ua,
		CreatedAt: time.Now().UTC(),
	}

	start := time.Now()
	res := m.Apply(tbl)
	run.Duration = time.Since(start)

	if out, ok := res.Value(); ok {
		run.Status = RunSucceeded
		run.Output = &out
		run.Warnings = append([]string{}, res.Warnings()...)
		run.Errors = []string{}
	} else {
		run.Status = RunFailed
		run.Warnings = []string{}
		run.Errors = res.ErrorStrings()
	}

	logger := logging.WithFields(ctx, "run_id", run.ID, "plan", p.Name)
	logger.Info("plan applied",
		"status", run.Status,
		"rows", run.InputRows,
		"warnings", len(run.Warnings),
		"errors", len(run.Errors),
		"duration_ms", run.Duration.Milliseconds(),
	)

	if s.runs != nil {
		if err := s.runs.RecordRun(ctx, run); err != nil {
			// The caller still gets the result; history is best effort.
			logger.Error("record run failed", "error", err)
		}
	}

	return run, nil
}

// Plan returns a registered or stored plan by name.
func (s *Service) Plan(ctx context.Context, name string) (Plan, error) {
	if p, ok := Get(name); ok {
		return p, nil
	}
	return s.storedPlan(ctx, name)
}

func (s *Service) storedPlan(ctx context.Context, name string) (Plan, error) {
	if s.plans == nil {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnknownPlan, name)
	}
	p, err := s.plans.GetPlan(ctx, name)
	if err != nil {
		return Plan{}, fmt.Errorf("get plan %q: %w", name, err)
	}
	return p, nil
}

// Plans lists registered and stored plans sorted by name. A registered
// plan hides a stored plan of the same name.
func (s *Service) Plans(ctx context.Context) ([]Plan, error) {
	plans := All()
	if s.plans == nil {
		return plans, nil
	}

	stored, err := s.plans.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	seen := make(map[string]bool, len(plans))
	for _, p := range plans {
		seen[p.Name] = true
	}
	for _, p := range stored {
		if !seen[p.Name] {
			plans = append(plans, p)
		}
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].Name < plans[j].Name
	})
	return plans, nil
}

// SavePlan validates p and writes it to the plan store, assigning an id
// when it has none. Names taken by registered plans are rejected.
func (s *Service) SavePlan(ctx context.Context, p Plan) (Plan, error) {
	if s.plans == nil {
		return Plan{}, ErrPlanStoreDisabled
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	if _, ok := Get(p.Name); ok {
		return Plan{}, fmt.Errorf("%w: plan already registered: %s", ErrInvalidPlan, p.Name)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	saved, err := s.plans.SavePlan(ctx, p)
	if err != nil {
		return Plan{}, fmt.Errorf("save plan %q: %w", p.Name, err)
	}
	logging.FromContext(ctx).Info("plan saved", "plan", saved.Name, "plan_id", saved.ID)
	return saved, nil
}

// DeletePlan removes a stored plan. Plans loaded from files cannot be deleted.
func (s *Service) DeletePlan(ctx context.Context, name string) error {
	if s.plans == nil {
		return ErrPlanStoreDisabled
	}
	if err := s.plans.DeletePlan(ctx, name); err != nil {
		return fmt.Errorf("delete plan %q: %w", name, err)
	}
	logging.FromContext(ctx).Info("plan deleted", "plan", name)
	return nil
}

// Run returns a recorded run.
func (s *Service) Run(ctx context.Context, id string) (*Run, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// LimiterStatus reports the apply limiter's state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForApplies blocks until in-flight applies finish or ctx ends.
func (s *Service) WaitForApplies(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
