package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateResult(t *testing.T) {
	r, err := validateResult(ModeAnalyze, []byte(`{"realizable": true, "unsat": false, "nontrivial": true, "log": ""}`))
	require.Nil(t, err)
	a := analysisOutcome(r, "console output")
	assert.True(t, a.Realizable)
	assert.True(t, a.NonTrivial)
	assert.JSONEq(t, "[]", string(a.Highlights))
	assert.Equal(t, "console output", a.Log)

	_, err = validateResult(ModeAnalyze, []byte(`{"realizable": true, "log": ""}`))
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = validateResult(ModeCompile, []byte(`{"realizable": true, "log": 3}`))
	assert.ErrorIs(t, err, ErrInvalidResult)

	r, err = validateResult(ModeCompile, []byte(`{"realizable": false, "log": "done", "extra": 1}`))
	require.Nil(t, err)
	c := compileOutcome(r, "ignored")
	assert.False(t, c.Realizable)
	assert.False(t, c.RealizableFastSlow)
	assert.Equal(t, "done", c.Log)
}
