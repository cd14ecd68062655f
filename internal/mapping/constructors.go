package mapping

import (
	"fmt"

	"github.com/JonMunkholm/schemamap/internal/table"
)

// Rename renames the first column called oldName. Renaming an absent column,
// or a column to its own name, succeeds with a "no effect" warning.
func Rename(oldName, newName string) Mapping {
	return func(t table.Table) Result[table.Table] {
		if _, ok := t.ColumnOf(oldName); !ok {
			return Success(t, fmt.Sprintf("rename %q to %q had no effect: column not found", oldName, newName))
		}
		if oldName == newName {
			return Success(t, fmt.Sprintf("rename %q to %q had no effect: names are equal", oldName, newName))
		}
		return Success(t.Rename(oldName, newName))
	}
}

// Combine merges col1 and col2 cell-wise with f into a new column newName,
// appended last, and removes both source columns.
func Combine(col1, col2, newName string, f func(a, b string) string) Mapping {
	return func(t table.Table) Result[table.Table] {
		out, err := t.Combine(col1, col2, newName, f)
		if err != nil {
			return Failure[table.Table](fmt.Errorf("combine %q and %q into %q: %w", col1, col2, newName, err))
		}
		return Success(out)
	}
}

// Relocate swaps column with the column at position to.
func Relocate(column string, to int) Mapping {
	return func(t table.Table) Result[table.Table] {
		out, err := t.Relocate(column, to)
		if err != nil {
			return Failure[table.Table](fmt.Errorf("relocate %q to %d: %w", column, to, err))
		}
		return Success(out)
	}
}

// Delete removes the named column. It never fails; deleting an absent
// column returns the table unchanged with a "no effect" warning.
func Delete(column string) Mapping {
	return func(t table.Table) Result[table.Table] {
		if _, ok := t.ColumnOf(column); !ok {
			return Success(t, fmt.Sprintf("delete %q had no effect: column not found", column))
		}
		return Success(t.Delete(column))
	}
}

// Transform rewrites every cell of column with f.
func Transform(column string, f func(string) string) Mapping {
	return func(t table.Table) Result[table.Table] {
		out, err := t.Transform(column, f)
		if err != nil {
			return Failure[table.Table](fmt.Errorf("transform %q: %w", column, err))
		}
		return Success(out)
	}
}
