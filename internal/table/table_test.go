package table

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/schemamap/internal/schema"
)

func contacts() Table {
	return MustNew(
		[]string{"email", "fname", "lname"},
		[]string{"a@x.com", "Jo", "Doe"},
		[]string{"b@x.com", "Al", "Roe"},
	)
}

func TestNew_RejectsRaggedRows(t *testing.T) {
	_, err := New(schema.New("a", "b"), [][]string{{"1", "2"}, {"3"}})
	require.ErrorIs(t, err, ErrRaggedRow)
}

func TestNew_CopiesInput(t *testing.T) {
	rows := [][]string{{"1"}}
	tbl, err := New(schema.New("a"), rows)
	require.NoError(t, err)

	rows[0][0] = "changed"
	got, ok := tbl.Cell(0, "a")
	require.True(t, ok)
	assert.Equal(t, "1", got)
}

func TestColumnAndCell(t *testing.T) {
	tbl := contacts()

	col, ok := tbl.Column("fname")
	require.True(t, ok)
	assert.Equal(t, []string{"Jo", "Al"}, col)

	_, ok = tbl.Column("missing")
	assert.False(t, ok)

	cell, ok := tbl.Cell(1, "lname")
	require.True(t, ok)
	assert.Equal(t, "Roe", cell)

	_, ok = tbl.Cell(2, "lname")
	assert.False(t, ok, "row out of range")
	_, ok = tbl.Cell(-1, "lname")
	assert.False(t, ok, "negative row")
	_, ok = tbl.Cell(0, "missing")
	assert.False(t, ok, "missing column")
}

func TestAdd(t *testing.T) {
	tbl := contacts()

	out, err := tbl.Add("phone", []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "fname", "lname", "phone"}, out.Columns())
	assert.Equal(t, []string{"b@x.com", "Al", "Roe", "2"}, out.Rows()[1])
	assert.Equal(t, 3, tbl.Width(), "receiver unchanged")

	_, err = tbl.Add("phone", []string{"1"})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = tbl.Add("phone", []string{"1", "2", "3"})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestAdd_EmptyTable(t *testing.T) {
	out, err := MustNew(nil).Add("a", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.Columns())
	assert.Equal(t, 0, out.RowCount())
}

func TestRename(t *testing.T) {
	tbl := contacts()

	out := tbl.Rename("fname", "first_name")
	assert.Equal(t, []string{"email", "first_name", "lname"}, out.Columns())
	assert.Equal(t, tbl.Rows(), out.Rows())
	assert.Equal(t, []string{"email", "fname", "lname"}, tbl.Columns())

	assert.True(t, tbl.Rename("missing", "x").Equal(tbl))
}

func TestRelocate(t *testing.T) {
	tbl := contacts()

	out, err := tbl.Relocate("lname", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"lname", "fname", "email"}, out.Columns())
	assert.Equal(t, []string{"Doe", "Jo", "a@x.com"}, out.Rows()[0])
	assert.Equal(t, []string{"a@x.com", "Jo", "Doe"}, tbl.Rows()[0], "receiver unchanged")

	_, err = tbl.Relocate("missing", 0)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestRelocate_BoundsAgainstColumnCount(t *testing.T) {
	// Two rows, three columns: position 2 is valid even though it is not a
	// valid row index, and position 3 is invalid.
	tbl := contacts()

	_, err := tbl.Relocate("email", 2)
	require.NoError(t, err)

	_, err = tbl.Relocate("email", 3)
	assert.ErrorIs(t, err, schema.ErrIndexOutOfRange)

	wide := MustNew([]string{"a", "b", "c", "d"}, []string{"1", "2", "3", "4"})
	_, err = wide.Relocate("a", 3)
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	tbl := contacts()

	out := tbl.Delete("fname")
	assert.Equal(t, []string{"email", "lname"}, out.Columns())
	assert.Equal(t, []string{"a@x.com", "Doe"}, out.Rows()[0])
	assert.Equal(t, 3, tbl.Width())

	assert.True(t, tbl.Delete("missing").Equal(tbl))
}

func TestCombine(t *testing.T) {
	tbl := MustNew([]string{"email", "fname", "lname"}, []string{"a@x.com", "Jo", "Doe"})

	out, err := tbl.Combine("fname", "lname", "full_name", func(f, l string) string {
		return f + " " + l
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "full_name"}, out.Columns())
	assert.Equal(t, [][]string{{"a@x.com", "Jo Doe"}}, out.Rows())
}

func TestCombine_ReversedOrder(t *testing.T) {
	tbl := contacts()

	out, err := tbl.Combine("lname", "fname", "name", func(l, f string) string {
		return l + ", " + f
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "name"}, out.Columns())
	col, _ := out.Column("name")
	assert.Equal(t, []string{"Doe, Jo", "Roe, Al"}, col)
}

func TestCombine_SameColumnTwice(t *testing.T) {
	tbl := contacts()

	out, err := tbl.Combine("fname", "fname", "twice", func(a, b string) string { return a + b })
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "lname", "twice"}, out.Columns())
	assert.Equal(t, "JoJo", out.Rows()[0][2])
}

func TestCombine_NewNameReusesSource(t *testing.T) {
	tbl := contacts()

	out, err := tbl.Combine("fname", "lname", "fname", func(a, b string) string {
		return strings.ToUpper(a + b)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "fname"}, out.Columns())
	assert.Equal(t, "JODOE", out.Rows()[0][1])
}

func TestCombine_MissingColumn(t *testing.T) {
	tbl := contacts()

	_, err := tbl.Combine("fname", "missing", "x", func(a, b string) string { return a })
	require.ErrorIs(t, err, ErrColumnNotFound)
	assert.Contains(t, err.Error(), `"missing"`)

	_, err = tbl.Combine("missing", "fname", "x", func(a, b string) string { return a })
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestTransform(t *testing.T) {
	tbl := contacts()

	out, err := tbl.Transform("fname", strings.ToUpper)
	require.NoError(t, err)
	col, _ := out.Column("fname")
	assert.Equal(t, []string{"JO", "AL"}, col)
	orig, _ := tbl.Column("fname")
	assert.Equal(t, []string{"Jo", "Al"}, orig)

	_, err = tbl.Transform("missing", strings.ToUpper)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestInsertAt(t *testing.T) {
	tbl := contacts()

	out, err := tbl.InsertAt(1, "id", []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "id", "fname", "lname"}, out.Columns())
	assert.Equal(t, []string{"b@x.com", "2", "Al", "Roe"}, out.Rows()[1])

	_, err = tbl.InsertAt(4, "id", []string{"1", "2"})
	assert.ErrorIs(t, err, schema.ErrIndexOutOfRange)
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(contacts())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"columns": ["email", "fname", "lname"],
		"rows": [["a@x.com", "Jo", "Doe"], ["b@x.com", "Al", "Roe"]]
	}`, string(data))

	var decoded Table
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equal(contacts()))

	err = json.Unmarshal([]byte(`{"columns":["a","b"],"rows":[["1"]]}`), &decoded)
	assert.ErrorIs(t, err, ErrRaggedRow)

	empty, err := json.Marshal(MustNew(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[],"rows":[]}`, string(empty))
}
