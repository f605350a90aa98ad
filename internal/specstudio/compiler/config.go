package compiler

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/h2non/filetype"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/specstudio/config"
)

type Runtime string

const (
	RuntimeBash   Runtime = "bash"
	RuntimePython Runtime = "python"
	RuntimeBinary Runtime = "binary"
)

var ValidRuntimes = []Runtime{RuntimeBash, RuntimePython, RuntimeBinary}

// Config describes how the toolchain process is launched.
type Config struct {
	Runtime     Runtime
	Script      string
	Interpreter string // python runtime only; defaults to python3
	Args        []string
	Env         map[string]string
	Timeout     time.Duration // zero means no bound beyond the caller's context
}

// ConfigFrom converts the service configuration section into a process Config.
func ConfigFrom(c *config.CompilerConfig) Config {
	cfg := Config{
		Runtime:     Runtime(c.Runtime),
		Script:      c.Script,
		Interpreter: c.Interpreter,
		Args:        slices.Clone(c.Args),
		Env:         c.Env,
	}
	if c.Timeout != "" {
		cfg.Timeout = c.GetTimeoutOrDefault()
	}
	return cfg
}

// Validate checks the runtime and resolves the script to an absolute path.
func (c *Config) Validate() apperrors.Error {
	if !slices.Contains(ValidRuntimes, c.Runtime) {
		return ErrInvalidConfig.Msg("invalid runtime: " + string(c.Runtime))
	}
	if c.Script == "" {
		return ErrInvalidConfig.Msg("script is required")
	}
	abs, err := filepath.Abs(c.Script)
	if err != nil {
		return ErrInvalidConfig.MsgErr("invalid script path", err)
	}
	c.Script = abs
	if _, err := os.Stat(c.Script); err != nil {
		return ErrInvalidConfig.Msg("script not found: " + err.Error())
	}
	if c.Runtime == RuntimeBinary {
		ok, err := isBinaryExecutable(c.Script)
		if err != nil {
			return ErrInvalidConfig.MsgErr("failed to check if script is binary", err)
		}
		if !ok {
			return ErrInvalidConfig.Msg("script is not a binary: " + c.Script)
		}
	}
	if c.Timeout < 0 {
		return ErrInvalidConfig.Msg("timeout must not be negative")
	}
	return nil
}

// command returns the argv prefix that launches the toolchain entry point.
func (c *Config) command() []string {
	var argv []string
	switch c.Runtime {
	case RuntimeBash:
		argv = []string{"/bin/bash", c.Script}
	case RuntimePython:
		interpreter := c.Interpreter
		if interpreter == "" {
			interpreter = "python3"
		}
		argv = []string{interpreter, "-u", c.Script}
	case RuntimeBinary:
		argv = []string{c.Script}
	}
	return append(argv, c.Args...)
}

// Known executable binary types
var binaryTypes = map[string]bool{
	"elf":   true, // Linux
	"macho": true, // macOS
	"pe":    true, // Windows
}

func isBinaryExecutable(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	// Read first 261 bytes (enough for filetype sniffing)
	header := make([]byte, 261)
	n, err := file.Read(header)
	if err != nil {
		return false, err
	}

	kind, err := filetype.Match(header[:n])
	if err != nil {
		return false, err
	}
	if kind == filetype.Unknown {
		return false, nil
	}

	return binaryTypes[kind.Extension], nil
}
