package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	Clear()
	t.Cleanup(Clear)

	require.NoError(t, Register(Plan{Name: "zeta"}))
	require.NoError(t, Register(Plan{Name: "alpha", Steps: []Step{{Delete: &DeleteStep{Column: "x"}}}}))

	t.Run("duplicate name rejected", func(t *testing.T) {
		err := Register(Plan{Name: "alpha"})
		assert.ErrorIs(t, err, ErrInvalidPlan)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("invalid plan rejected", func(t *testing.T) {
		assert.ErrorIs(t, Register(Plan{Name: "broken", Steps: []Step{{}}}), ErrInvalidPlan)
		_, ok := Get("broken")
		assert.False(t, ok)
	})

	t.Run("all sorted by name", func(t *testing.T) {
		plans := All()
		require.Len(t, plans, 2)
		assert.Equal(t, "alpha", plans[0].Name)
		assert.Equal(t, "zeta", plans[1].Name)
	})

	t.Run("lookup returns compiled mapping", func(t *testing.T) {
		cp, ok := lookup("alpha")
		require.True(t, ok)
		assert.NotNil(t, cp.mapping)
	})

	t.Run("unregister", func(t *testing.T) {
		assert.True(t, Unregister("zeta"))
		assert.False(t, Unregister("zeta"))
		assert.Equal(t, 1, PlanCount())
	})

	t.Run("must register panics on invalid plan", func(t *testing.T) {
		assert.Panics(t, func() { MustRegister(Plan{}) })
	})
}
