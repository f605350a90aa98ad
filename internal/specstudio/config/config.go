// Package config loads the specstudio TOML configuration. The file is rendered as a
// template with {{ .ENV.NAME }} placeholders before decoding, validated, and then
// published through Config().
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
)

const (
	DefaultConfigFile         = "/etc/specstudio/specstudio.conf"
	DefaultMaxRequestBodySize = 16 << 20
	DefaultRequestTimeout     = "1m"
	DefaultUploadsDir         = "uploads"
	DefaultRetention          = "5h"
	DefaultSweepInterval      = "10m"
	DefaultCookieName         = "specstudio_session"
	DefaultCompilerTimeout    = "1h"
)

// DefaultAllowedUploads lists the upload name patterns accepted when none are configured.
var DefaultAllowedUploads = []string{"*.regions", "*.spec", "*.aut"}

// WorkspaceConfig holds workspace-related configuration
type WorkspaceConfig struct {
	UploadsDir     string   `toml:"uploads_dir"`     // Root directory holding one directory per session
	Retention      string   `toml:"retention"`       // Age after which workspace files are reclaimed
	SweepInterval  string   `toml:"sweep_interval"`  // Period of the background reclamation sweep
	AllowedUploads []string `toml:"allowed_uploads"` // Glob patterns for accepted upload names
}

// GetRetention returns the retention threshold as time.Duration
func (w *WorkspaceConfig) GetRetention() (time.Duration, error) {
	return ParseDuration(w.Retention)
}

// GetRetentionOrDefault returns the retention threshold as time.Duration
// or panics if the value is invalid
func (w *WorkspaceConfig) GetRetentionOrDefault() time.Duration {
	d, err := w.GetRetention()
	if err != nil {
		panic(fmt.Sprintf("invalid workspace retention: %v", err))
	}
	return d
}

// GetSweepIntervalOrDefault returns the sweep interval as time.Duration
// or panics if the value is invalid
func (w *WorkspaceConfig) GetSweepIntervalOrDefault() time.Duration {
	d, err := ParseDuration(w.SweepInterval)
	if err != nil {
		panic(fmt.Sprintf("invalid workspace sweep interval: %v", err))
	}
	return d
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName string `toml:"cookie_name"` // Name of the browser-session cookie
	Secret     string `toml:"secret"`      // Cookie signing secret; random per process when empty
}

// CompilerConfig holds the external synthesis compiler configuration
type CompilerConfig struct {
	Runtime     string            `toml:"runtime"`     // bash, python or binary
	Script      string            `toml:"script"`      // Path of the compiler entry point
	Interpreter string            `toml:"interpreter"` // Interpreter override for the python runtime
	Args        []string          `toml:"args"`        // Extra leading arguments
	Env         map[string]string `toml:"env"`         // Extra environment variables
	Timeout     string            `toml:"timeout"`     // Upper bound on one compiler invocation
}

// GetTimeoutOrDefault returns the compiler timeout as time.Duration
// or panics if the value is invalid
func (c *CompilerConfig) GetTimeoutOrDefault() time.Duration {
	d, err := ParseDuration(c.Timeout)
	if err != nil {
		panic(fmt.Sprintf("invalid compiler timeout: %v", err))
	}
	return d
}

// ConfigParam holds all configuration parameters for the specstudio service
type ConfigParam struct {
	// Configuration version
	FormatVersion string `toml:"format_version"` // Version of this configuration file format

	// Server configuration
	ServerHostName     string `toml:"server_hostname"`       // Hostname for the server
	ServerPort         string `toml:"server_port"`           // Port for the server; PORT overrides
	HandleCORS         bool   `toml:"handle_cors"`           // Whether to handle CORS
	MaxRequestBodySize int64  `toml:"max_request_body_size"` // Maximum size of request body in bytes
	RequestTimeout     string `toml:"request_timeout"`       // Timeout for short operations
	LogLevel           string `toml:"log_level"`             // zerolog level name

	Workspace WorkspaceConfig `toml:"workspace"`
	Session   SessionConfig   `toml:"session"`
	Compiler  CompilerConfig  `toml:"compiler"`
}

// GetRequestTimeoutOrDefault returns the request timeout as time.Duration
// or panics if the value is invalid
func (c *ConfigParam) GetRequestTimeoutOrDefault() time.Duration {
	d, err := ParseDuration(c.RequestTimeout)
	if err != nil {
		panic(fmt.Sprintf("invalid request timeout: %v", err))
	}
	return d
}

// ListenAddr returns the host:port address the HTTP server binds to.
func (c *ConfigParam) ListenAddr() string {
	return c.ServerHostName + ":" + c.ServerPort
}

// ParseDuration parses a duration string in the format "<number><unit>" where unit can be:
// - y: years
// - d: days
// - h: hours
// - m: minutes
// - s: seconds
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative duration: %s", input)
	}

	var duration time.Duration
	switch unit {
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	case "h":
		duration = time.Duration(value) * time.Hour
	case "m":
		duration = time.Duration(value) * time.Minute
	case "s":
		duration = time.Duration(value) * time.Second
	case "y":
		// 1 year = 365 days
		duration = time.Duration(value) * 365 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}

// ValidateConfig checks required values, fills defaults and applies environment overrides.
func ValidateConfig(cfg *ConfigParam) error {
	if err := validateConfigFormatVersion(cfg); err != nil {
		return err
	}
	if err := validateServerConfig(cfg); err != nil {
		return err
	}
	if err := validateWorkspaceConfig(cfg); err != nil {
		return err
	}
	if err := validateSessionConfig(cfg); err != nil {
		return err
	}
	if err := validateCompilerConfig(cfg); err != nil {
		return err
	}
	return nil
}

func validateConfigFormatVersion(cfg *ConfigParam) error {
	if !FormatVersionSupported(cfg.FormatVersion) {
		return fmt.Errorf("unsupported config file format version: %q", cfg.FormatVersion)
	}
	return nil
}

func validateServerConfig(cfg *ConfigParam) error {
	if port := os.Getenv("PORT"); port != "" {
		cfg.ServerPort = port
	}
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	if _, err := strconv.ParseUint(cfg.ServerPort, 10, 16); err != nil {
		return fmt.Errorf("invalid server_port: %s", cfg.ServerPort)
	}
	if cfg.MaxRequestBodySize == 0 {
		cfg.MaxRequestBodySize = DefaultMaxRequestBodySize
	}
	if cfg.MaxRequestBodySize < 0 {
		return fmt.Errorf("max_request_body_size must be positive")
	}
	if cfg.RequestTimeout == "" {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if _, err := ParseDuration(cfg.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %v", err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = zerolog.InfoLevel.String()
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %s", cfg.LogLevel)
	}
	return nil
}

func validateWorkspaceConfig(cfg *ConfigParam) error {
	w := &cfg.Workspace
	if w.UploadsDir == "" {
		w.UploadsDir = DefaultUploadsDir
	}
	abs, err := filepath.Abs(w.UploadsDir)
	if err != nil {
		return fmt.Errorf("invalid workspace.uploads_dir: %v", err)
	}
	w.UploadsDir = abs

	if w.Retention == "" {
		w.Retention = DefaultRetention
	}
	if d, err := ParseDuration(w.Retention); err != nil || d == 0 {
		return fmt.Errorf("invalid workspace.retention: %s", w.Retention)
	}
	if w.SweepInterval == "" {
		w.SweepInterval = DefaultSweepInterval
	}
	if d, err := ParseDuration(w.SweepInterval); err != nil || d == 0 {
		return fmt.Errorf("invalid workspace.sweep_interval: %s", w.SweepInterval)
	}

	if len(w.AllowedUploads) == 0 {
		w.AllowedUploads = append([]string(nil), DefaultAllowedUploads...)
	}
	for _, p := range w.AllowedUploads {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid workspace.allowed_uploads pattern: %s", p)
		}
	}
	return nil
}

func validateSessionConfig(cfg *ConfigParam) error {
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = DefaultCookieName
	}
	return nil
}

func validateCompilerConfig(cfg *ConfigParam) error {
	c := &cfg.Compiler
	if c.Script == "" {
		return fmt.Errorf("compiler.script is required")
	}
	if c.Runtime == "" {
		c.Runtime = "python"
	}
	switch c.Runtime {
	case "bash", "python", "binary":
	default:
		return fmt.Errorf("unsupported compiler.runtime: %s", c.Runtime)
	}
	if c.Timeout == "" {
		c.Timeout = DefaultCompilerTimeout
	}
	if d, err := ParseDuration(c.Timeout); err != nil || d == 0 {
		return fmt.Errorf("invalid compiler.timeout: %s", c.Timeout)
	}
	return nil
}

// ParseConfigFile reads, renders and validates the configuration at filename.
func ParseConfigFile(filename string) (*ConfigParam, error) {
	if filename == "" {
		return nil, fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	rendered, err := Preprocess(content, filepath.Dir(filename))
	if err != nil {
		return nil, fmt.Errorf("error rendering config file: %v", err)
	}

	c := &ConfigParam{}
	if _, err := toml.Decode(string(rendered), c); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	if err := ValidateConfig(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return c, nil
}
