// Package pipeline is the boundary of the spec build pipeline. Each operation resolves
// the caller's session, serialises itself against other operations of the same session
// and sequences the workspace, descriptor and orchestrator components.
package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/specstudio/compiler"
	"github.com/tansive/specstudio/internal/specstudio/descriptor"
	"github.com/tansive/specstudio/internal/specstudio/orchestrator"
	"github.com/tansive/specstudio/internal/specstudio/regions"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
	"github.com/tansive/specstudio/internal/specstudio/workspace"
)

// Caller carries the session identity presented with a request. Operations that create
// a session store the issued identity back into SessionID.
type Caller struct {
	SessionID string
}

// Facade exposes the pipeline operations.
type Facade struct {
	workspaces *workspace.Manager
	regions    regions.Parser
	builder    *descriptor.Builder
	orch       *orchestrator.Orchestrator
	allowed    []string
}

// New returns a Facade. allowedUploads are the glob patterns an uploaded file name must
// match.
func New(m *workspace.Manager, parser regions.Parser, c compiler.Compiler, allowedUploads []string) *Facade {
	return &Facade{
		workspaces: m,
		regions:    parser,
		builder:    descriptor.NewBuilder(m.Store(), parser),
		orch:       orchestrator.New(m.Store(), c),
		allowed:    allowedUploads,
	}
}

// ensure returns the caller's session, creating it when needed, with its operation lock
// held. The caller must call Unlock.
func (f *Facade) ensure(ctx context.Context, c *Caller) (*workspace.Session, apperrors.Error) {
	sess, created, err := f.workspaces.EnsureSession(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	if created {
		c.SessionID = sess.ID()
	}
	sess.Lock()
	return sess, nil
}

// existing returns the caller's session with its operation lock held. A missing
// workspace is reported as notFound.
func (f *Facade) existing(c *Caller, notFound apperrors.Error) (*workspace.Session, apperrors.Error) {
	sess, err := f.workspaces.Session(c.SessionID)
	if err != nil {
		return nil, notFound.Err(err)
	}
	sess.Lock()
	return sess, nil
}

// displayPath is the path of a workspace file as reported to clients: relative to the
// parent of the uploads root, e.g. uploads/<id>/floor.regions.
func (f *Facade) displayPath(sess *workspace.Session, p string) string {
	if p == "" {
		return ""
	}
	root := filepath.Base(f.workspaces.Root())
	return filepath.ToSlash(filepath.Join(root, sess.ID(), filepath.Base(p)))
}

// CompileResponse is returned by Compile.
type CompileResponse struct {
	CompilerLog        string `json:"compilerLog"`
	Realizable         bool   `json:"realizable"`
	RealizableFastSlow bool   `json:"realizableFastSlow"`
}

// Compile synthesizes the session's current spec and rebuilds its bundle.
func (f *Facade) Compile(ctx context.Context, c *Caller) (*CompileResponse, apperrors.Error) {
	sess, err := f.existing(c, studiocommon.ErrSpecNotLoaded)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	res, err := f.orch.Compile(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &CompileResponse{
		CompilerLog:        res.Log,
		Realizable:         res.Realizable,
		RealizableFastSlow: res.RealizableFastSlow,
	}, nil
}

// AnalyzeResponse is returned by Analyze.
type AnalyzeResponse struct {
	AnalyzeLog string          `json:"analyzeLog"`
	Realizable bool            `json:"realizable"`
	Unsat      bool            `json:"unsat"`
	NonTrivial bool            `json:"nonTrivial"`
	Highlights json.RawMessage `json:"highlights"`
}

// Analyze runs realizability analysis on the session's current spec.
func (f *Facade) Analyze(ctx context.Context, c *Caller) (*AnalyzeResponse, apperrors.Error) {
	sess, err := f.existing(c, studiocommon.ErrSpecNotLoaded)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	out, err := f.orch.Analyze(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &AnalyzeResponse{
		AnalyzeLog: out.Log,
		Realizable: out.Realizable,
		Unsat:      out.Unsat,
		NonTrivial: out.NonTrivial,
		Highlights: out.Highlights,
	}, nil
}

func logger(ctx context.Context, sess *workspace.Session, op string) zerolog.Logger {
	return log.Ctx(ctx).With().Str("session_id", sess.ID()).Str("op", op).Logger()
}
