// Package compiler runs the external LTL synthesis toolchain against a spec file.
// The toolchain is an opaque process: it is invoked with a mode, the spec path and
// the path of a JSON result document it must write before exiting.
package compiler

import (
	"context"
	"encoding/json"
)

// Mode selects which toolchain entry point is invoked.
type Mode string

const (
	ModeCompile Mode = "compile"
	ModeAnalyze Mode = "analyze"
)

// CompileOutcome is the result of a synthesis run. The derived artifacts are written by
// the toolchain next to the spec file.
type CompileOutcome struct {
	Realizable         bool   `json:"realizable"`
	RealizableFastSlow bool   `json:"realizable_fastslow"`
	Log                string `json:"log"`
}

// AnalysisOutcome is the result of a realizability analysis. Highlights is passed through
// unchanged from the toolchain.
type AnalysisOutcome struct {
	Realizable bool            `json:"realizable"`
	Unsat      bool            `json:"unsat"`
	NonTrivial bool            `json:"nontrivial"`
	Highlights json.RawMessage `json:"highlights"`
	Log        string          `json:"log"`
}

// Compiler is the synthesis toolchain seen by the orchestrator.
type Compiler interface {
	Compile(ctx context.Context, specPath string) (*CompileOutcome, error)
	Analyze(ctx context.Context, specPath string) (*AnalysisOutcome, error)
}
