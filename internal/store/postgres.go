// Package store persists saved plans and run history in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/schemamap/internal/config"
	"github.com/JonMunkholm/schemamap/internal/core"
	"github.com/JonMunkholm/schemamap/internal/table"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS mapping_plans (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT,
	steps       JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mapping_runs (
	id            UUID PRIMARY KEY,
	plan_name     TEXT NOT NULL,
	status        TEXT NOT NULL,
	warnings      JSONB NOT NULL,
	errors        JSONB NOT NULL,
	input_rows    INTEGER NOT NULL,
	input_columns JSONB NOT NULL,
	output        JSONB,
	ip_address    INET,
	user_agent    TEXT,
	duration_us   BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS mapping_runs_created_at_idx ON mapping_runs (created_at);
CREATE INDEX IF NOT EXISTS mapping_runs_plan_name_idx ON mapping_runs (plan_name);
`

// Store implements core.PlanStore and core.RunStore on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ core.PlanStore = (*Store)(nil)
	_ core.RunStore  = (*Store)(nil)
)

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SavePlan inserts a plan or replaces the plan with the same name. The
// returned plan carries the stored id.
func (s *Store) SavePlan(ctx context.Context, p core.Plan) (core.Plan, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return core.Plan{}, fmt.Errorf("encode steps: %w", err)
	}

	var id pgtype.UUID
	err = s.pool.QueryRow(ctx, `
		INSERT INTO mapping_plans (id, name, description, steps)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, steps = EXCLUDED.steps, updated_at = now()
		RETURNING id`,
		toPgUUID(p.ID), p.Name, toPgText(p.Description), steps,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.Plan{}, fmt.Errorf("%w: plan id %s already used by another plan", core.ErrInvalidPlan, p.ID)
		}
		return core.Plan{}, err
	}

	p.ID = uuidToString(id)
	return p, nil
}

// GetPlan returns a stored plan by name.
func (s *Store) GetPlan(ctx context.Context, name string) (core.Plan, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, description, steps FROM mapping_plans WHERE name = $1`, name)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Plan{}, fmt.Errorf("%w: %s", core.ErrUnknownPlan, name)
	}
	return p, err
}

// ListPlans returns every stored plan sorted by name.
func (s *Store) ListPlans(ctx context.Context) ([]core.Plan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, steps FROM mapping_plans ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]core.Plan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// DeletePlan removes a stored plan by name.
func (s *Store) DeletePlan(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mapping_plans WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrUnknownPlan, name)
	}
	return nil
}

func scanPlan(row pgx.Row) (core.Plan, error) {
	var (
		id          pgtype.UUID
		name        string
		description pgtype.Text
		steps       []byte
	)
	if err := row.Scan(&id, &name, &description, &steps); err != nil {
		return core.Plan{}, err
	}

	p := core.Plan{ID: uuidToString(id), Name: name, Description: description.String}
	if err := json.Unmarshal(steps, &p.Steps); err != nil {
		return core.Plan{}, fmt.Errorf("decode steps of plan %q: %w", name, err)
	}
	return p, nil
}

// RecordRun inserts a run.
func (s *Store) RecordRun(ctx context.Context, run *core.Run) error {
	args, err := runArgs(run)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO mapping_runs (id, plan_name, status, warnings, errors, input_rows,
			input_columns, output, ip_address, user_agent, duration_us, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		args...,
	)
	return err
}

// runArgs encodes a run as insert parameters in column order.
func runArgs(run *core.Run) ([]any, error) {
	warnings, err := json.Marshal(nonNil(run.Warnings))
	if err != nil {
		return nil, fmt.Errorf("encode warnings: %w", err)
	}
	errs, err := json.Marshal(nonNil(run.Errors))
	if err != nil {
		return nil, fmt.Errorf("encode errors: %w", err)
	}
	cols, err := json.Marshal(nonNil(run.InputCols))
	if err != nil {
		return nil, fmt.Errorf("encode columns: %w", err)
	}
	var output []byte
	if run.Output != nil {
		if output, err = json.Marshal(run.Output); err != nil {
			return nil, fmt.Errorf("encode output: %w", err)
		}
	}

	return []any{
		toPgUUID(run.ID),
		run.PlanName,
		string(run.Status),
		warnings,
		errs,
		int32(run.InputRows),
		cols,
		output,
		toInet(run.IPAddress),
		toPgText(run.UserAgent),
		run.Duration.Microseconds(),
		pgtype.Timestamptz{Time: run.CreatedAt, Valid: true},
	}, nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*core.Run, error) {
	var (
		runID     pgtype.UUID
		planName  string
		status    string
		warnings  []byte
		errs      []byte
		inputRows int32
		cols      []byte
		output    []byte
		ipAddress *netip.Addr
		userAgent pgtype.Text
		duration  int64
		createdAt pgtype.Timestamptz
	)

	err := s.pool.QueryRow(ctx, `
		SELECT id, plan_name, status, warnings, errors, input_rows, input_columns,
			output, ip_address, user_agent, duration_us, created_at
		FROM mapping_runs WHERE id = $1`, toPgUUID(id),
	).Scan(&runID, &planName, &status, &warnings, &errs, &inputRows, &cols,
		&output, &ipAddress, &userAgent, &duration, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	run := &core.Run{
		ID:        uuidToString(runID),
		PlanName:  planName,
		Status:    core.RunStatus(status),
		InputRows: int(inputRows),
		UserAgent: userAgent.String,
		Duration:  time.Duration(duration) * time.Microsecond,
		CreatedAt: createdAt.Time,
	}
	if ipAddress != nil {
		run.IPAddress = ipAddress.String()
	}
	if err := decodeRunJSON(run, warnings, errs, cols, output); err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	return run, nil
}

func decodeRunJSON(run *core.Run, warnings, errs, cols, output []byte) error {
	if err := json.Unmarshal(warnings, &run.Warnings); err != nil {
		return fmt.Errorf("decode warnings: %w", err)
	}
	if err := json.Unmarshal(errs, &run.Errors); err != nil {
		return fmt.Errorf("decode errors: %w", err)
	}
	if err := json.Unmarshal(cols, &run.InputCols); err != nil {
		return fmt.Errorf("decode columns: %w", err)
	}
	if len(output) > 0 {
		var t table.Table
		if err := json.Unmarshal(output, &t); err != nil {
			return fmt.Errorf("decode output: %w", err)
		}
		run.Output = &t
	}
	return nil
}

// PurgeRuns deletes runs created before olderThan and returns how many
// were removed.
func (s *Store) PurgeRuns(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mapping_runs WHERE created_at < $1`,
		pgtype.Timestamptz{Time: olderThan, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// toInet parses an address for an INET column. Unparseable input is stored as NULL.
func toInet(s string) *netip.Addr {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil
	}
	return &addr
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
