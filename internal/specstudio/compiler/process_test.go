package compiler

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
)

const fakeToolchain = `#!/bin/bash
mode="${@: -3:1}"
spec="${@: -2:1}"
result="${@: -1}"
base="${spec%.spec}"

echo "cwd=$(pwd)"
echo "args=$*"
echo "warning: running $mode" >&2

case "$FAKE_BEHAVIOUR" in
  fail)
    echo "Traceback (most recent call last)" >&2
    exit 3
    ;;
  noresult)
    exit 0
    ;;
  badresult)
    echo '{"realizable": "yes"}' > "$result"
    exit 0
    ;;
  notjson)
    echo 'realizable' > "$result"
    exit 0
    ;;
  sleep)
    exec sleep 10
    ;;
  emptylog)
    echo '{"realizable": false, "log": ""}' > "$result"
    exit 0
    ;;
esac

if [ "$mode" = "compile" ]; then
  for ext in .aut .ltl .smv _decomposed.regions; do
    echo "$mode" > "$base$ext"
  done
  echo '{"realizable": true, "realizable_fastslow": true, "log": "Automaton successfully synthesized."}' > "$result"
else
  echo '{"realizable": false, "unsat": true, "nontrivial": false, "highlights": [["env", "safety", 0]], "log": "unsatisfiable core found"}' > "$result"
fi
`

type fixture struct {
	dir      string
	specPath string
	script   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(t.TempDir(), "toolchain.sh")
	require.NoError(t, os.WriteFile(script, []byte(fakeToolchain), 0o644))
	specPath := filepath.Join(dir, "7f1c2a4e-8d3b-4c5a-9e6f-0a1b2c3d4e5f.spec")
	require.NoError(t, os.WriteFile(specPath, []byte("Spec: # Specification in structured English\n"), 0o644))
	return &fixture{dir: dir, specPath: specPath, script: script}
}

func (f *fixture) process(t *testing.T, behaviour string, timeout time.Duration, writers ...*IOWriters) *Process {
	t.Helper()
	p, err := NewProcess(Config{
		Runtime: RuntimeBash,
		Script:  f.script,
		Args:    []string{"--quiet"},
		Env:     map[string]string{"FAKE_BEHAVIOUR": behaviour},
		Timeout: timeout,
	}, writers...)
	require.Nil(t, err)
	return p
}

func TestProcessCompile(t *testing.T) {
	f := newFixture(t)
	var out, errOut bytes.Buffer
	p := f.process(t, "", time.Minute, &IOWriters{Out: &out, Err: &errOut})

	outcome, err := p.Compile(context.Background(), f.specPath)
	require.NoError(t, err)
	assert.True(t, outcome.Realizable)
	assert.True(t, outcome.RealizableFastSlow)
	assert.Equal(t, "Automaton successfully synthesized.", outcome.Log)

	for _, ext := range []string{".aut", ".ltl", ".smv", "_decomposed.regions"} {
		assert.FileExists(t, filepath.Join(f.dir, "7f1c2a4e-8d3b-4c5a-9e6f-0a1b2c3d4e5f"+ext))
	}
	assert.Contains(t, out.String(), "cwd="+f.dir)
	assert.Contains(t, out.String(), "args=--quiet compile "+f.specPath)
	assert.Contains(t, errOut.String(), "warning: running compile")

	// the result document is removed after the run
	entries, rerr := os.ReadDir(f.dir)
	require.NoError(t, rerr)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".compile.json")
	}
}

func TestProcessAnalyze(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "", time.Minute)

	outcome, err := p.Analyze(context.Background(), f.specPath)
	require.NoError(t, err)
	assert.False(t, outcome.Realizable)
	assert.True(t, outcome.Unsat)
	assert.False(t, outcome.NonTrivial)
	assert.JSONEq(t, `[["env", "safety", 0]]`, string(outcome.Highlights))
	assert.Equal(t, "unsatisfiable core found", outcome.Log)

	_, serr := os.Stat(filepath.Join(f.dir, "7f1c2a4e-8d3b-4c5a-9e6f-0a1b2c3d4e5f.aut"))
	assert.True(t, os.IsNotExist(serr))
}

func TestProcessEmptyLogFallsBackToOutput(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "emptylog", time.Minute)

	outcome, err := p.Compile(context.Background(), f.specPath)
	require.NoError(t, err)
	assert.False(t, outcome.Realizable)
	assert.Contains(t, outcome.Log, "warning: running compile")
	assert.Contains(t, outcome.Log, "cwd="+f.dir)
}

func TestProcessInvocationErrors(t *testing.T) {
	tests := []struct {
		name      string
		behaviour string
		timeout   time.Duration
		want      apperrors.Error
		detail    string
	}{
		{"non-zero exit", "fail", time.Minute, ErrExecutionFailed, "Traceback"},
		{"no result", "noresult", time.Minute, ErrMissingResult, "warning: running compile"},
		{"result violates schema", "badresult", time.Minute, ErrInvalidResult, "cwd="},
		{"result is not json", "notjson", time.Minute, ErrInvalidResult, "cwd="},
		{"timeout", "sleep", 300 * time.Millisecond, ErrTimeout, "warning: running compile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.process(t, tt.behaviour, tt.timeout)

			outcome, err := p.Compile(context.Background(), f.specPath)
			require.Error(t, err)
			assert.Nil(t, outcome)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, studiocommon.ErrCompilerInvocation)
			assert.Equal(t, studiocommon.KindCompilerInvocationError, apperrors.KindOf(err))

			var ae apperrors.Error
			require.ErrorAs(t, err, &ae)
			assert.Contains(t, ae.Detail(), tt.detail)
		})
	}
}

func TestProcessCancelled(t *testing.T) {
	f := newFixture(t)
	p := f.process(t, "sleep", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	_, err := p.Analyze(ctx, f.specPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessStartFailure(t *testing.T) {
	f := newFixture(t)
	p, err := NewProcess(Config{
		Runtime:     RuntimePython,
		Interpreter: filepath.Join(t.TempDir(), "no-such-python"),
		Script:      f.script,
	})
	require.Nil(t, err)

	_, cerr := p.Compile(context.Background(), f.specPath)
	require.Error(t, cerr)
	assert.ErrorIs(t, cerr, ErrStartFailed)
	assert.Equal(t, studiocommon.KindCompilerInvocationError, apperrors.KindOf(cerr))
}

func TestConfigValidate(t *testing.T) {
	f := newFixture(t)

	cfg := Config{Runtime: "node", Script: f.script}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Config{Runtime: RuntimeBash}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Config{Runtime: RuntimeBash, Script: filepath.Join(f.dir, "missing.sh")}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Config{Runtime: RuntimeBinary, Script: f.script}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, "a shell script is not a binary")

	cfg = Config{Runtime: RuntimeBash, Script: f.script, Timeout: -time.Second}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Config{Runtime: RuntimePython, Script: f.script, Args: []string{"-x"}}
	require.Nil(t, cfg.Validate())
	assert.Equal(t, []string{"python3", "-u", f.script, "-x"}, cfg.command())
}

func TestNewProcessRejectsIncompleteWriters(t *testing.T) {
	f := newFixture(t)
	_, err := NewProcess(Config{Runtime: RuntimeBash, Script: f.script}, &IOWriters{Out: &bytes.Buffer{}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
