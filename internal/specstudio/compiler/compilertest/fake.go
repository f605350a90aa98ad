// Package compilertest provides an in-process Compiler for tests of the components that
// drive the synthesis toolchain.
package compilertest

import (
	"context"
	"encoding/json"
	"os"
	"slices"
	"sync"

	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/compiler"
)

// Call records one invocation of the fake.
type Call struct {
	Mode     compiler.Mode
	SpecPath string
}

// Fake writes the four derived artifacts next to the spec on Compile and returns the
// configured outcomes.
type Fake struct {
	CompileOutcome  compiler.CompileOutcome
	AnalysisOutcome compiler.AnalysisOutcome

	// Err is returned by every call when set.
	Err error
	// Skip lists derived kinds Compile does not write.
	Skip []artifacts.Kind
	// Before runs at the start of each call.
	Before func(ctx context.Context, mode compiler.Mode)

	mu    sync.Mutex
	calls []Call
}

var _ compiler.Compiler = (*Fake)(nil)

// New returns a Fake reporting a realizable spec.
func New() *Fake {
	return &Fake{
		CompileOutcome: compiler.CompileOutcome{
			Realizable:         true,
			RealizableFastSlow: false,
			Log:                "Loading spec...\nSynthesizing a strategy...\nAutomaton successfully synthesized.\n",
		},
		AnalysisOutcome: compiler.AnalysisOutcome{
			Realizable: true,
			Highlights: json.RawMessage("[]"),
			Log:        "Specification is realizable.\n",
		},
	}
}

func (f *Fake) record(ctx context.Context, mode compiler.Mode, specPath string) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Mode: mode, SpecPath: specPath})
	f.mu.Unlock()
	if f.Before != nil {
		f.Before(ctx, mode)
	}
}

// Compile implements compiler.Compiler.
func (f *Fake) Compile(ctx context.Context, specPath string) (*compiler.CompileOutcome, error) {
	f.record(ctx, compiler.ModeCompile, specPath)
	if f.Err != nil {
		return nil, f.Err
	}
	for _, kind := range artifacts.DerivedKinds() {
		if slices.Contains(f.Skip, kind) {
			continue
		}
		p, err := artifacts.DerivedFromSpec(specPath, kind)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(p, []byte(string(kind)+" output\n"), 0o640); err != nil {
			return nil, err
		}
	}
	out := f.CompileOutcome
	return &out, nil
}

// Analyze implements compiler.Compiler.
func (f *Fake) Analyze(ctx context.Context, specPath string) (*compiler.AnalysisOutcome, error) {
	f.record(ctx, compiler.ModeAnalyze, specPath)
	if f.Err != nil {
		return nil, f.Err
	}
	out := f.AnalysisOutcome
	return &out, nil
}

// Calls returns the invocations made so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}
