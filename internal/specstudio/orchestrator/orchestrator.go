// Package orchestrator drives the synthesis toolchain for a session: it checks that the
// inputs are staged, invokes the compiler, verifies the derived artifacts and packages
// them into the downloadable bundle.
package orchestrator

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/common/fsutil"
	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/compiler"
	"github.com/tansive/specstudio/internal/specstudio/descriptor"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
	"github.com/tansive/specstudio/internal/specstudio/workspace"
)

// CompileResult is the outcome of a successful compile.
type CompileResult struct {
	Realizable         bool
	RealizableFastSlow bool
	Log                string
	BundlePath         string
}

// Orchestrator runs compile and analyze for sessions whose files live in store.
// Callers serialise operations on one session.
type Orchestrator struct {
	store    artifacts.Store
	compiler compiler.Compiler
}

// New returns an Orchestrator.
func New(store artifacts.Store, c compiler.Compiler) *Orchestrator {
	return &Orchestrator{
		store:    store,
		compiler: c,
	}
}

func logger(ctx context.Context, sess *workspace.Session) zerolog.Logger {
	return log.Ctx(ctx).With().Str("component", "orchestrator").Str("session_id", sess.ID()).Logger()
}

// currentSpec returns the session's spec path if the file is still present.
func currentSpec(sess *workspace.Session) (string, apperrors.Error) {
	if sess == nil {
		return "", studiocommon.ErrSpecNotLoaded
	}
	p := sess.SpecPath()
	if p == "" {
		return "", studiocommon.ErrSpecNotLoaded
	}
	if !fsutil.IsRegularFile(p) {
		return "", studiocommon.ErrSpecNotLoaded.Msg("spec file " + filepath.Base(p) + " no longer exists")
	}
	return p, nil
}

// Analyze runs realizability analysis on the session's current spec. Nothing is written
// to the workspace.
func (o *Orchestrator) Analyze(ctx context.Context, sess *workspace.Session) (*compiler.AnalysisOutcome, apperrors.Error) {
	specPath, err := currentSpec(sess)
	if err != nil {
		return nil, err
	}
	l := logger(ctx, sess)
	l.Info().Str("spec_file", specPath).Msg("analyzing spec")

	outcome, cerr := o.compiler.Analyze(ctx, specPath)
	if cerr != nil {
		l.Error().Err(cerr).Msg("analysis failed")
		return nil, invocationError(cerr)
	}
	return outcome, nil
}

// Compile synthesizes the session's current spec and rebuilds the bundle. The region
// file is the one the spec references, resolved inside the workspace. Outputs of an
// earlier compile are removed first, so a compile that fails its preconditions leaves
// no bundle behind.
func (o *Orchestrator) Compile(ctx context.Context, sess *workspace.Session) (*CompileResult, apperrors.Error) {
	if sess == nil {
		return nil, studiocommon.ErrSpecNotLoaded
	}
	derived, err := o.clearStale(sess)
	if err != nil {
		return nil, err
	}
	specPath, err := currentSpec(sess)
	if err != nil {
		return nil, err
	}
	regionPath, err := o.specRegion(sess, specPath)
	if err != nil {
		return nil, err
	}
	l := logger(ctx, sess)

	l.Info().Str("spec_file", specPath).Str("region_file", regionPath).Msg("compiling spec")
	outcome, cerr := o.compiler.Compile(ctx, specPath)
	if cerr != nil {
		l.Error().Err(cerr).Msg("compilation failed")
		return nil, invocationError(cerr)
	}
	if perr := o.persistLog(sess, outcome.Log); perr != nil {
		l.Error().Err(perr).Msg("unable to persist compile log")
		return nil, perr
	}

	var missing []string
	for _, p := range derived {
		if !fsutil.IsRegularFile(p) {
			missing = append(missing, filepath.Base(p))
		}
	}
	if len(missing) > 0 {
		l.Error().Strs("missing", missing).Msg("compiler did not produce all artifacts")
		return nil, studiocommon.ErrCompilerInvocation.
			Msg("compiler did not produce " + strings.Join(missing, ", ")).
			SetDetail(outcome.Log)
	}

	bundle, berr := o.writeBundle(sess, append([]string{regionPath, specPath}, derived...))
	if berr != nil {
		l.Error().Err(berr).Msg("unable to write bundle")
		return nil, berr
	}
	l.Info().
		Bool("realizable", outcome.Realizable).
		Bool("realizable_fastslow", outcome.RealizableFastSlow).
		Str("bundle", bundle).
		Msg("compile finished")

	return &CompileResult{
		Realizable:         outcome.Realizable,
		RealizableFastSlow: outcome.RealizableFastSlow,
		Log:                outcome.Log,
		BundlePath:         bundle,
	}, nil
}

// specRegion resolves the region file referenced by the spec at specPath.
func (o *Orchestrator) specRegion(sess *workspace.Session, specPath string) (string, apperrors.Error) {
	d, err := descriptor.ReadFile(specPath)
	if err != nil {
		return "", studiocommon.ErrStudioError.MsgErr("unable to read spec file "+filepath.Base(specPath), err)
	}
	if d.RegionFile == "" {
		return "", studiocommon.ErrRegionNotLoaded.Msg("the spec does not reference a region file")
	}
	p := filepath.Join(sess.Dir(), filepath.Base(d.RegionFile))
	if !fsutil.IsRegularFile(p) {
		return "", studiocommon.ErrRegionNotLoaded.Msg("region file " + filepath.Base(d.RegionFile) + " is not in the workspace")
	}
	return p, nil
}

// clearStale removes derived artifacts and the bundle left by an earlier compile and
// returns the paths the compiler is expected to write.
func (o *Orchestrator) clearStale(sess *workspace.Session) ([]string, apperrors.Error) {
	var derived []string
	for _, kind := range artifacts.DerivedKinds() {
		p := o.store.MustPath(sess.ID(), kind)
		if err := fsutil.RemoveIfExists(p); err != nil {
			return nil, studiocommon.ErrStudioError.MsgErr("unable to remove stale "+string(kind)+" file", err)
		}
		derived = append(derived, p)
	}
	if err := fsutil.RemoveIfExists(o.store.MustPath(sess.ID(), artifacts.KindBundle)); err != nil {
		return nil, studiocommon.ErrStudioError.MsgErr("unable to remove stale bundle", err)
	}
	return derived, nil
}

// invocationError maps a compiler failure onto the CompilerInvocationError kind.
func invocationError(err error) apperrors.Error {
	if ae, ok := err.(apperrors.Error); ok && apperrors.KindOf(ae) == studiocommon.KindCompilerInvocationError {
		return ae
	}
	return studiocommon.ErrCompilerInvocation.MsgErr(err.Error(), err)
}
