package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tidwall/gjson"
)

const (
	maxCapturedOutput = 1 << 20
	startAttempts     = 5
	startRetryDelay   = 20 * time.Millisecond
	waitDelay         = 5 * time.Second
)

// Process runs the toolchain as a child process.
type Process struct {
	config  Config
	writers []*IOWriters
}

var _ Compiler = (*Process)(nil)

// NewProcess validates cfg and returns a Process. Output of every run is also copied to the
// given writers.
func NewProcess(cfg Config, writers ...*IOWriters) (*Process, apperrors.Error) {
	for _, w := range writers {
		if w == nil || w.Out == nil || w.Err == nil {
			return nil, ErrInvalidConfig.Msg("invalid writers")
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Process{
		config:  cfg,
		writers: writers,
	}, nil
}

// Compile runs synthesis for the spec at specPath.
func (p *Process) Compile(ctx context.Context, specPath string) (*CompileOutcome, error) {
	r, output, err := p.invoke(ctx, ModeCompile, specPath)
	if err != nil {
		return nil, err
	}
	return compileOutcome(r, output), nil
}

// Analyze runs realizability analysis for the spec at specPath.
func (p *Process) Analyze(ctx context.Context, specPath string) (*AnalysisOutcome, error) {
	r, output, err := p.invoke(ctx, ModeAnalyze, specPath)
	if err != nil {
		return nil, err
	}
	return analysisOutcome(r, output), nil
}

// invoke runs `<command> <mode> <specPath> <resultPath>` in the directory of the spec and
// returns the validated result document together with the captured console output.
func (p *Process) invoke(ctx context.Context, mode Mode, specPath string) (gjson.Result, string, apperrors.Error) {
	specPath, err := filepath.Abs(specPath)
	if err != nil {
		return gjson.Result{}, "", ErrStartFailed.MsgErr("invalid spec path", err)
	}
	dir := filepath.Dir(specPath)
	resultPath := filepath.Join(dir, "."+strings.TrimSuffix(filepath.Base(specPath), filepath.Ext(specPath))+"."+string(mode)+".json")
	if err := os.Remove(resultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return gjson.Result{}, "", ErrStartFailed.MsgErr("unable to clear previous result", err)
	}
	defer os.Remove(resultPath)

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	logger := log.Ctx(ctx).With().Str("component", "compiler").Str("mode", string(mode)).Logger()

	env := os.Environ()
	for k, v := range p.config.Env {
		env = appendOrReplaceEnv(env, k, v)
	}

	output := newCaptureBuffer(maxCapturedOutput)
	writers := append([]*IOWriters{
		{Out: output, Err: output},
		{Out: &logWriter{logger: logger, stream: StdoutWriter}, Err: &logWriter{logger: logger, stream: StderrWriter}},
	}, p.writers...)

	argv := append(p.config.command(), string(mode), specPath, resultPath)

	var cmd *exec.Cmd
	err = retry.Do(
		func() error {
			cmd = exec.CommandContext(ctx, argv[0], argv[1:]...)
			cmd.Dir = dir
			cmd.Env = env
			cmd.Stdout = NewWriter(StdoutWriter, writers...)
			cmd.Stderr = NewWriter(StderrWriter, writers...)
			cmd.WaitDelay = waitDelay
			err := cmd.Start()
			if err != nil && !errors.Is(err, syscall.ETXTBSY) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(startAttempts),
		retry.Delay(startRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		logger.Error().Err(err).Strs("argv", argv).Msg("unable to start compiler")
		return gjson.Result{}, "", ErrStartFailed.MsgErr("unable to start compiler: "+err.Error(), err)
	}

	started := time.Now()
	waitErr := cmd.Wait()
	logger.Info().Dur("elapsed", time.Since(started)).Err(waitErr).Msg("compiler finished")

	captured := output.String()
	if n := output.Dropped(); n > 0 {
		captured += fmt.Sprintf("\n[%d bytes of output truncated]\n", n)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return gjson.Result{}, captured, ErrTimeout.Err(ctxErr).SetDetail(captured)
		}
		return gjson.Result{}, captured, ErrExecutionFailed.MsgErr("compiler run was cancelled", ctxErr).SetDetail(captured)
	}
	if waitErr != nil {
		return gjson.Result{}, captured, ErrExecutionFailed.MsgErr("compiler exited with an error: "+waitErr.Error(), waitErr).SetDetail(captured)
	}

	data, err := os.ReadFile(resultPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return gjson.Result{}, captured, ErrMissingResult.SetDetail(captured)
		}
		return gjson.Result{}, captured, ErrMissingResult.MsgErr("unable to read result", err).SetDetail(captured)
	}
	r, verr := validateResult(mode, data)
	if verr != nil {
		return gjson.Result{}, captured, verr.SetDetail(captured)
	}
	return r, captured, nil
}

func appendOrReplaceEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
