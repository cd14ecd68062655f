package mapping

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/schemamap/internal/schema"
	"github.com/JonMunkholm/schemamap/internal/table"
)

var errBoom = errors.New("boom")

func contacts() table.Table {
	return table.MustNew(
		[]string{"email", "fname", "lname"},
		[]string{"a@x.com", "Jo", "Doe"},
	)
}

func joinSpace(a, b string) string { return a + " " + b }

// warn succeeds unchanged with a single warning.
func warn(msg string) Mapping {
	return func(t table.Table) Result[table.Table] { return Success(t, msg) }
}

// fail always fails with err.
func fail(err error) Mapping {
	return func(table.Table) Result[table.Table] { return Failure[table.Table](err) }
}

// counting wraps m and counts invocations.
func counting(m Mapping, n *int) Mapping {
	return func(t table.Table) Result[table.Table] {
		*n++
		return m.Apply(t)
	}
}

func requireTable(t *testing.T, res Result[table.Table]) table.Table {
	t.Helper()
	require.True(t, res.OK(), "expected success, got errors %v", res.ErrorStrings())
	tbl, ok := res.Value()
	require.True(t, ok)
	return tbl
}

func TestResult(t *testing.T) {
	ok := Success(1, "w1", "w2")
	assert.True(t, ok.OK())
	v, present := ok.Value()
	assert.True(t, present)
	assert.Equal(t, 1, v)
	assert.Equal(t, []string{"w1", "w2"}, ok.Warnings())
	assert.Empty(t, ok.Errors())

	failed := Failure[int](errBoom)
	assert.False(t, failed.OK())
	v, present = failed.Value()
	assert.False(t, present)
	assert.Zero(t, v)
	assert.Empty(t, failed.Warnings())
	assert.Equal(t, []string{"boom"}, failed.ErrorStrings())
	assert.ErrorIs(t, failed.Errors()[0], errBoom)
}

func TestResult_CopiesSlices(t *testing.T) {
	warnings := []string{"w"}
	res := Success(0, warnings...)
	warnings[0] = "changed"
	assert.Equal(t, []string{"w"}, res.Warnings())

	got := res.Warnings()
	got[0] = "changed"
	assert.Equal(t, []string{"w"}, res.Warnings())
}

func TestThen_FeedsOutputForward(t *testing.T) {
	m := Rename("fname", "first").Then(Rename("first", "given"))

	tbl := requireTable(t, m.Apply(contacts()))
	assert.Equal(t, []string{"email", "given", "lname"}, tbl.Columns())
}

func TestThen_ShortCircuitsOnFailure(t *testing.T) {
	calls := 0
	m := fail(errBoom).Then(counting(Identity(), &calls))

	res := m.Apply(contacts())
	assert.False(t, res.OK())
	assert.Equal(t, 0, calls, "second mapping must not run")
	assert.Equal(t, []string{"boom"}, res.ErrorStrings())
}

func TestThen_SecondFailureDropsWarnings(t *testing.T) {
	res := warn("first").Then(fail(errBoom)).Apply(contacts())
	assert.False(t, res.OK())
	assert.Empty(t, res.Warnings())
	assert.Equal(t, []string{"boom"}, res.ErrorStrings())
}

func TestThen_AccumulatesWarningsInOrder(t *testing.T) {
	res := warn("a").Then(warn("b")).Then(warn("c")).Apply(contacts())
	requireTable(t, res)
	assert.Equal(t, []string{"a", "b", "c"}, res.Warnings())
}

func TestThen_Associative(t *testing.T) {
	cases := map[string][3]Mapping{
		"all succeed": {
			Rename("fname", "first").Then(warn("a")),
			Combine("first", "lname", "name", joinSpace),
			Delete("missing"),
		},
		"first fails":  {fail(errBoom), warn("b"), warn("c")},
		"middle fails": {warn("a"), fail(errBoom), warn("c")},
		"last fails":   {warn("a"), warn("b"), Relocate("missing", 0)},
	}

	for name, ms := range cases {
		t.Run(name, func(t *testing.T) {
			a, b, c := ms[0], ms[1], ms[2]
			left := a.Then(b).Then(c).Apply(contacts())
			right := a.Then(b.Then(c)).Apply(contacts())

			assert.Equal(t, left.OK(), right.OK())
			assert.Equal(t, left.Warnings(), right.Warnings())
			assert.Equal(t, left.ErrorStrings(), right.ErrorStrings())
			lt, _ := left.Value()
			rt, _ := right.Value()
			assert.True(t, lt.Equal(rt))
		})
	}
}

func TestOrElse_ReturnsFirstSuccess(t *testing.T) {
	calls := 0
	res := warn("primary").OrElse(counting(warn("fallback"), &calls)).Apply(contacts())

	requireTable(t, res)
	assert.Equal(t, []string{"primary"}, res.Warnings())
	assert.Equal(t, 0, calls)
}

func TestOrElse_FallsBackOnOriginalInput(t *testing.T) {
	var seen table.Table
	capture := func(t table.Table) Result[table.Table] {
		seen = t
		return Success(t)
	}

	res := Rename("fname", "first").Then(fail(errBoom)).OrElse(capture).Apply(contacts())
	requireTable(t, res)
	assert.True(t, seen.Equal(contacts()), "fallback must see the untouched input")
	assert.Empty(t, res.ErrorStrings())
}

func TestOrElse_BothFail(t *testing.T) {
	other := errors.New("other")
	res := fail(errBoom).OrElse(fail(other)).Apply(contacts())
	assert.False(t, res.OK())
	assert.Equal(t, []string{"other"}, res.ErrorStrings())
}

func TestOrElse_SelfIsIdempotent(t *testing.T) {
	ms := []Mapping{
		Rename("fname", "first"),
		Rename("missing", "x"),
		Combine("fname", "missing", "x", joinSpace),
		Relocate("lname", 0),
		Relocate("lname", 9),
		Delete("email"),
	}
	for _, m := range ms {
		plain := m.Apply(contacts())
		doubled := m.OrElse(m).Apply(contacts())

		assert.Equal(t, plain.OK(), doubled.OK())
		assert.Equal(t, plain.Warnings(), doubled.Warnings())
		assert.Equal(t, plain.ErrorStrings(), doubled.ErrorStrings())
		pt, _ := plain.Value()
		dt, _ := doubled.Value()
		assert.True(t, pt.Equal(dt))
	}
}

func TestRename_NoEffectWarnings(t *testing.T) {
	tbl := table.MustNew([]string{"email"}, []string{"a@x.com"})

	same := Rename("email", "email").Apply(tbl)
	assert.True(t, requireTable(t, same).Equal(tbl))
	require.Len(t, same.Warnings(), 1)
	assert.Contains(t, same.Warnings()[0], "no effect")

	missing := Rename("missing", "x").Apply(tbl)
	assert.True(t, requireTable(t, missing).Equal(tbl))
	require.Len(t, missing.Warnings(), 1)
	assert.Contains(t, missing.Warnings()[0], "no effect")
}

func TestRename_ThenMissing_OneWarning(t *testing.T) {
	res := Rename("fname", "first_name").Then(Rename("missing", "x")).Apply(contacts())

	tbl := requireTable(t, res)
	assert.Equal(t, []string{"email", "first_name", "lname"}, tbl.Columns())
	assert.Len(t, res.Warnings(), 1)
}

func TestDelete_MissingColumn(t *testing.T) {
	res := Delete("missing").Apply(contacts())
	assert.True(t, requireTable(t, res).Equal(contacts()))

	res = Delete("fname").Apply(contacts())
	assert.Equal(t, []string{"email", "lname"}, requireTable(t, res).Columns())
	assert.Empty(t, res.Warnings())
}

func TestCombine_FullName(t *testing.T) {
	res := Combine("fname", "lname", "full_name", joinSpace).Apply(contacts())

	tbl := requireTable(t, res)
	assert.Equal(t, []string{"email", "full_name"}, tbl.Columns())
	assert.Equal(t, [][]string{{"a@x.com", "Jo Doe"}}, tbl.Rows())
	assert.Empty(t, res.Warnings())
}

func TestCombine_MissingColumnFails(t *testing.T) {
	res := Combine("fname", "missing", "x", joinSpace).Apply(contacts())
	require.False(t, res.OK())
	require.Len(t, res.Errors(), 1)
	assert.ErrorIs(t, res.Errors()[0], table.ErrColumnNotFound)
	assert.Contains(t, res.ErrorStrings()[0], "missing")
}

func TestCombine_OrElseRename(t *testing.T) {
	tbl := table.MustNew([]string{"a", "z"}, []string{"1", "2"})
	res := Combine("a", "missing", "c", joinSpace).OrElse(Rename("a", "b")).Apply(tbl)

	out := requireTable(t, res)
	assert.Equal(t, []string{"b", "z"}, out.Columns())
	assert.Empty(t, res.Warnings())
}

func TestRelocate(t *testing.T) {
	res := Relocate("lname", 0).Apply(contacts())
	assert.Equal(t, []string{"lname", "fname", "email"}, requireTable(t, res).Columns())

	res = Relocate("lname", 3).Apply(contacts())
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Errors()[0], schema.ErrIndexOutOfRange)

	res = Relocate("missing", 0).Apply(contacts())
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Errors()[0], table.ErrColumnNotFound)
}

func TestTransform(t *testing.T) {
	upper := func(s string) string { return s + "!" }

	res := Transform("fname", upper).Apply(contacts())
	cell, _ := requireTable(t, res).Cell(0, "fname")
	assert.Equal(t, "Jo!", cell)

	res = Transform("missing", upper).Apply(contacts())
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Errors()[0], table.ErrColumnNotFound)
}

func TestSequenceAndFirstOf(t *testing.T) {
	res := Sequence().Apply(contacts())
	assert.True(t, requireTable(t, res).Equal(contacts()))

	res = Sequence(warn("a"), Rename("fname", "first"), warn("b")).Apply(contacts())
	assert.Equal(t, []string{"a", "b"}, res.Warnings())
	assert.Equal(t, []string{"email", "first", "lname"}, requireTable(t, res).Columns())

	res = FirstOf().Apply(contacts())
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Errors()[0], ErrNoAlternatives)

	res = FirstOf(fail(errBoom), Relocate("missing", 0), warn("third")).Apply(contacts())
	requireTable(t, res)
	assert.Equal(t, []string{"third"}, res.Warnings())
}

func TestNilMappingIsIdentity(t *testing.T) {
	var m Mapping
	res := m.Apply(contacts())
	assert.True(t, requireTable(t, res).Equal(contacts()))
}

func TestMappingsDoNotMutateInput(t *testing.T) {
	in := contacts()
	m := Sequence(
		Relocate("lname", 0),
		Rename("fname", "first"),
		Combine("first", "lname", "name", joinSpace),
		Delete("email"),
	)
	requireTable(t, m.Apply(in))
	assert.True(t, in.Equal(contacts()))
}
