package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause stays reachable through the chain", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeUnavailable, "ledger lookup failed")

		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "unavailable")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestHasCode(t *testing.T) {
	inner := New(CodeNotSubmitted, "no transaction submitted")
	outer := Wrap(inner, CodeUnavailable, "status query failed")

	assert.True(t, HasCode(outer, CodeUnavailable))
	assert.True(t, HasCode(outer, CodeNotSubmitted), "inner codes remain visible")
	assert.False(t, HasCode(outer, CodeConflict))
	assert.False(t, HasCode(nil, CodeInternal))
	assert.False(t, HasCode(errors.New("uncoded"), CodeInternal))
}

func TestHasCode_ThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", New(CodeGeneration, "render failed"))
	assert.True(t, HasCode(err, CodeGeneration))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodePublish, CodeOf(New(CodePublish, "gateway down")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("uncoded")))

	// The outermost code wins for layered errors.
	layered := Wrap(New(CodeNotFound, "missing"), CodeUnavailable, "lookup failed")
	assert.Equal(t, CodeUnavailable, CodeOf(layered))
}
