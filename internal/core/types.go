package core

import (
	"time"

	"github.com/JonMunkholm/schemamap/internal/table"
)

// Plan is a named, declarative mapping. Its steps run in order, as if joined
// with mapping.Then.
type Plan struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// Step is one plan operation. Exactly one field must be set.
type Step struct {
	Rename    *RenameStep    `json:"rename,omitempty" yaml:"rename,omitempty"`
	Combine   *CombineStep   `json:"combine,omitempty" yaml:"combine,omitempty"`
	Relocate  *RelocateStep  `json:"relocate,omitempty" yaml:"relocate,omitempty"`
	Delete    *DeleteStep    `json:"delete,omitempty" yaml:"delete,omitempty"`
	Transform *TransformStep `json:"transform,omitempty" yaml:"transform,omitempty"`
	Protect   *ProtectStep   `json:"protect,omitempty" yaml:"protect,omitempty"`
	FirstOf   [][]Step       `json:"first_of,omitempty" yaml:"first_of,omitempty"`
}

// RenameStep renames a column.
type RenameStep struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// CombineStep merges two columns into a new one using a named combiner.
type CombineStep struct {
	Columns   []string `json:"columns" yaml:"columns"`                         // Exactly two source columns
	Into      string   `json:"into" yaml:"into"`                               // Name of the new column
	With      string   `json:"with" yaml:"with"`                               // Combiner name (default: concat)
	Separator *string  `json:"separator,omitempty" yaml:"separator,omitempty"` // concat only (default: " ")
}

// RelocateStep swaps a column with the column at position To.
type RelocateStep struct {
	Column string `json:"column" yaml:"column"`
	To     int    `json:"to" yaml:"to"`
}

// DeleteStep removes a column.
type DeleteStep struct {
	Column string `json:"column" yaml:"column"`
}

// TransformStep rewrites a column's cells with a named normalizer.
type TransformStep struct {
	Column string `json:"column" yaml:"column"`
	With   string `json:"with" yaml:"with"`
}

// ProtectStep runs Steps while shielding Columns from their effects.
type ProtectStep struct {
	Columns []string `json:"columns" yaml:"columns"`
	Steps   []Step   `json:"steps" yaml:"steps"`
}

// RunStatus is the outcome of applying a plan.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run records one application of a plan to a table.
type Run struct {
	ID        string        `json:"runId"`
	PlanName  string        `json:"plan"`
	Status    RunStatus     `json:"status"`
	Warnings  []string      `json:"warnings"`
	Errors    []string      `json:"errors"`
	InputRows int           `json:"inputRows"`
	InputCols []string      `json:"inputColumns"`
	Output    *table.Table  `json:"table,omitempty"`
	IPAddress string        `json:"ipAddress,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	Duration  time.Duration `json:"durationNs"`
	CreatedAt time.Time     `json:"createdAt"`
}

// OK reports whether the run succeeded.
func (r *Run) OK() bool {
	return r.Status == RunSucceeded
}
