// Package schema defines the ordered column layout of a mapped table.
//
// A Schema is immutable: every edit returns a new Schema and leaves the
// receiver untouched, so a Schema can be shared freely between tables and
// goroutines.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrIndexOutOfRange is returned when a column position is outside the schema.
var ErrIndexOutOfRange = errors.New("column index out of range")

// Schema is an ordered list of column names. Names are not required to be
// unique; lookups resolve to the first match.
type Schema struct {
	names []string
}

// New creates a Schema from the given column names.
func New(names ...string) Schema {
	return Schema{names: slices.Clone(names)}
}

// Len returns the number of columns.
func (s Schema) Len() int {
	return len(s.names)
}

// Names returns a copy of the column names in order.
func (s Schema) Names() []string {
	return slices.Clone(s.names)
}

// Name returns the column name at position i.
func (s Schema) Name(i int) (string, bool) {
	if !s.valid(i) {
		return "", false
	}
	return s.names[i], true
}

// IndexOf returns the position of the first column called name.
func (s Schema) IndexOf(name string) (int, bool) {
	i := slices.Index(s.names, name)
	return i, i >= 0
}

// Equal reports whether both schemas list the same names in the same order.
func (s Schema) Equal(other Schema) bool {
	return slices.Equal(s.names, other.names)
}

// Relocate swaps the columns at positions i and j.
// i == j is legal and yields an identical schema.
func (s Schema) Relocate(i, j int) (Schema, error) {
	if !s.valid(i) || !s.valid(j) {
		return Schema{}, indexError(i, j, len(s.names))
	}
	names := slices.Clone(s.names)
	names[i], names[j] = names[j], names[i]
	return Schema{names: names}, nil
}

// Delete removes the column at position i, shifting later columns left.
func (s Schema) Delete(i int) (Schema, error) {
	if !s.valid(i) {
		return Schema{}, indexError(i, i, len(s.names))
	}
	return Schema{names: slices.Delete(slices.Clone(s.names), i, i+1)}, nil
}

// Add appends name as the last column.
func (s Schema) Add(name string) Schema {
	names := make([]string, len(s.names), len(s.names)+1)
	copy(names, s.names)
	return Schema{names: append(names, name)}
}

// Insert places name at position i (0 <= i <= Len), shifting later columns right.
func (s Schema) Insert(i int, name string) (Schema, error) {
	if i < 0 || i > len(s.names) {
		return Schema{}, indexError(i, i, len(s.names))
	}
	return Schema{names: slices.Insert(slices.Clone(s.names), i, name)}, nil
}

// Rename replaces the first column called oldName. The second return value
// is false when no column matched, in which case s is returned unchanged.
func (s Schema) Rename(oldName, newName string) (Schema, bool) {
	i, ok := s.IndexOf(oldName)
	if !ok {
		return s, false
	}
	names := slices.Clone(s.names)
	names[i] = newName
	return Schema{names: names}, true
}

func (s Schema) String() string {
	return fmt.Sprintf("%v", s.names)
}

// MarshalJSON encodes the schema as an array of names.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.names == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.names)
}

// UnmarshalJSON decodes an array of names.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	s.names = names
	return nil
}

func (s Schema) valid(i int) bool {
	return i >= 0 && i < len(s.names)
}

func indexError(i, j, n int) error {
	if i == j {
		return fmt.Errorf("%w: %d (columns: %d)", ErrIndexOutOfRange, i, n)
	}
	return fmt.Errorf("%w: %d, %d (columns: %d)", ErrIndexOutOfRange, i, j, n)
}
