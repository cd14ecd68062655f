// Package mapping provides composable transforms over tables.
//
// A Mapping takes a table.Table and returns a Result: the rewritten table
// plus warnings, or a list of errors. Mappings hold no state beyond their
// closure, so one Mapping can be applied to any number of tables, from any
// number of goroutines.
//
// Mappings are built from constructors (Rename, Combine, Relocate, Delete,
// Transform) and composed with two combinators:
//
//	a.Then(b)   // apply a, feed its table to b; stop on the first failure
//	a.OrElse(b) // apply a; if it fails, apply b to the original table
//
// Protect wraps a mapping so that a set of columns comes out exactly as it
// went in.
//
//	m := mapping.Protect([]string{"email"},
//	    mapping.Rename("fname", "first_name").
//	        Then(mapping.Combine("first_name", "lname", "full_name", joinSpace)),
//	).OrElse(mapping.Identity())
//	res := m.Apply(tbl)
package mapping

import (
	"errors"

	"github.com/JonMunkholm/schemamap/internal/table"
)

// ErrNoAlternatives is the failure of FirstOf with no mappings.
var ErrNoAlternatives = errors.New("no alternative mappings")

// Mapping transforms a table into a Result.
type Mapping func(table.Table) Result[table.Table]

// Apply runs the mapping on t. A nil Mapping behaves like Identity.
func (m Mapping) Apply(t table.Table) Result[table.Table] {
	if m == nil {
		return Success(t)
	}
	return m(t)
}

// Then sequences m and next. next receives m's output table. If either side
// fails the combination fails with that side's errors only; on success the
// warnings of m precede those of next.
func (m Mapping) Then(next Mapping) Mapping {
	return func(t table.Table) Result[table.Table] {
		first := m.Apply(t)
		if !first.ok {
			return first
		}
		second := next.Apply(first.value)
		if !second.ok {
			return second
		}
		warnings := make([]string, 0, len(first.warnings)+len(second.warnings))
		warnings = append(warnings, first.warnings...)
		warnings = append(warnings, second.warnings...)
		return Result[table.Table]{ok: true, value: second.value, warnings: warnings}
	}
}

// OrElse falls back to alt, applied to the original table, when m fails.
// m's errors are discarded.
func (m Mapping) OrElse(alt Mapping) Mapping {
	return func(t table.Table) Result[table.Table] {
		if res := m.Apply(t); res.ok {
			return res
		}
		return alt.Apply(t)
	}
}

// Identity returns the table unchanged.
func Identity() Mapping {
	return func(t table.Table) Result[table.Table] {
		return Success(t)
	}
}

// Sequence chains ms with Then, left to right. An empty sequence is Identity.
func Sequence(ms ...Mapping) Mapping {
	out := Identity()
	for _, m := range ms {
		out = out.Then(m)
	}
	return out
}

// FirstOf chains ms with OrElse: the first mapping to succeed wins and a
// total failure reports the last mapping's errors.
func FirstOf(ms ...Mapping) Mapping {
	if len(ms) == 0 {
		return func(table.Table) Result[table.Table] {
			return Failure[table.Table](ErrNoAlternatives)
		}
	}
	out := ms[0]
	for _, m := range ms[1:] {
		out = out.OrElse(m)
	}
	return out
}
