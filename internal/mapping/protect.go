package mapping

import (
	"fmt"
	"slices"
	"sort"

	"github.com/JonMunkholm/schemamap/internal/table"
)

// snapshot is a protected column captured before the inner mapping runs.
type snapshot struct {
	name   string
	index  int
	values []string
}

// Protect shields columns from inner. The named columns present in the
// input are captured before inner runs. After a successful inner result,
// every column carrying a protected name is dropped and the captured
// columns are re-inserted at their original positions (clamped to the
// result's width), in their original relative order.
//
// Names are matched first-match, like every other column lookup. A
// protected name absent from the input is reported as a warning. So is a
// protected column that inner removed or whose cells it changed ("restored"),
// and one whose position restoring changes ("moved back"). A column that only
// shifted because other columns came or went is not reported. A failure of
// inner is returned unchanged.
func Protect(columns []string, inner Mapping) Mapping {
	names := uniqueNames(columns)

	return func(t table.Table) Result[table.Table] {
		var warnings []string
		snaps := make([]snapshot, 0, len(names))
		for _, name := range names {
			i, ok := t.ColumnOf(name)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("protected column %q not present", name))
				continue
			}
			values, _ := t.Column(name)
			snaps = append(snaps, snapshot{name: name, index: i, values: values})
		}
		sort.Slice(snaps, func(a, b int) bool { return snaps[a].index < snaps[b].index })

		res := inner.Apply(t)
		if !res.ok {
			return res
		}
		warnings = append(warnings, res.warnings...)

		out := res.value
		if len(snaps) > 0 && out.RowCount() != t.RowCount() {
			return Failure[table.Table](fmt.Errorf("protect: %w: mapping changed row count from %d to %d",
				table.ErrLengthMismatch, t.RowCount(), out.RowCount()))
		}

		// Index of each intact protected column in inner's output, -1 when
		// inner removed or rewrote it.
		innerIndex := make([]int, len(snaps))
		for k, s := range snaps {
			innerIndex[k] = -1
			if i, ok := out.ColumnOf(s.name); ok {
				if values, _ := out.Column(s.name); slices.Equal(values, s.values) {
					innerIndex[k] = i
				}
			}
		}

		for _, s := range snaps {
			for {
				if _, ok := out.ColumnOf(s.name); !ok {
					break
				}
				out = out.Delete(s.name)
			}
		}

		for _, s := range snaps {
			var err error
			out, err = out.InsertAt(min(s.index, out.Width()), s.name, s.values)
			if err != nil {
				return Failure[table.Table](fmt.Errorf("protect %q: %w", s.name, err))
			}
		}

		for k, s := range snaps {
			if innerIndex[k] < 0 {
				warnings = append(warnings, fmt.Sprintf("protected column %q restored", s.name))
				continue
			}
			if i, _ := out.ColumnOf(s.name); i != innerIndex[k] {
				warnings = append(warnings, fmt.Sprintf("protected column %q moved back", s.name))
			}
		}

		return Result[table.Table]{ok: true, value: out, warnings: warnings}
	}
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
