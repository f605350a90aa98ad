package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
format_version = "0.1.0"
server_hostname = "localhost"
server_port = "8686"
handle_cors = true
log_level = "debug"

[workspace]
uploads_dir = "{{ .ENV.SPECSTUDIO_TEST_ROOT }}/uploads"
retention = "24h"

[session]
secret = "{{ .ENV.SPECSTUDIO_TEST_SECRET }}"

[compiler]
runtime = "bash"
script = "/opt/ltlmop/compile.sh"
args = ["--quiet"]
timeout = "30m"

[compiler.env]
LTLMOP_HOME = "/opt/ltlmop"
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, "specstudio.conf")
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestParseConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "")
	t.Setenv("SPECSTUDIO_TEST_ROOT", dir)
	t.Setenv("SPECSTUDIO_TEST_SECRET", "s3cret")

	c, err := ParseConfigFile(writeConfig(t, dir, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8686", c.ListenAddr())
	assert.True(t, c.HandleCORS)
	assert.Equal(t, int64(DefaultMaxRequestBodySize), c.MaxRequestBodySize)
	assert.Equal(t, time.Minute, c.GetRequestTimeoutOrDefault())
	assert.Equal(t, filepath.Join(dir, "uploads"), c.Workspace.UploadsDir)
	assert.Equal(t, 24*time.Hour, c.Workspace.GetRetentionOrDefault())
	assert.Equal(t, 10*time.Minute, c.Workspace.GetSweepIntervalOrDefault())
	assert.Equal(t, DefaultAllowedUploads, c.Workspace.AllowedUploads)
	assert.Equal(t, DefaultCookieName, c.Session.CookieName)
	assert.Equal(t, "s3cret", c.Session.Secret)
	assert.Equal(t, "bash", c.Compiler.Runtime)
	assert.Equal(t, []string{"--quiet"}, c.Compiler.Args)
	assert.Equal(t, "/opt/ltlmop", c.Compiler.Env["LTLMOP_HOME"])
	assert.Equal(t, 30*time.Minute, c.Compiler.GetTimeoutOrDefault())
}

func TestPortOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "9090")
	t.Setenv("SPECSTUDIO_TEST_ROOT", dir)
	t.Setenv("SPECSTUDIO_TEST_SECRET", "")

	c, err := ParseConfigFile(writeConfig(t, dir, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "9090", c.ServerPort)
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "")
	t.Setenv("SPECSTUDIO_TEST_ROOT", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SPECSTUDIO_TEST_DOTENV_SECRET=from-dotenv\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("SPECSTUDIO_TEST_DOTENV_SECRET") })

	content := `
format_version = "0.1.3"
server_port = "8686"
[session]
secret = "{{ .ENV.SPECSTUDIO_TEST_DOTENV_SECRET }}"
[compiler]
script = "compile.py"
`
	c, err := ParseConfigFile(writeConfig(t, dir, content))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.Session.Secret)
	assert.Equal(t, "python", c.Compiler.Runtime)
	assert.Equal(t, 5*time.Hour, c.Workspace.GetRetentionOrDefault())
}

func TestInvalidConfigs(t *testing.T) {
	t.Setenv("PORT", "")
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing env var",
			content: `server_port = "{{ .ENV.SPECSTUDIO_SURELY_UNSET_VAR }}"`,
			errMsg:  "missing environment variable: SPECSTUDIO_SURELY_UNSET_VAR",
		},
		{
			name:    "format version",
			content: "format_version = \"1.0.0\"\nserver_port = \"1\"\n[compiler]\nscript = \"x\"",
			errMsg:  "unsupported config file format version",
		},
		{
			name:    "missing script",
			content: "format_version = \"0.1.0\"\nserver_port = \"1\"",
			errMsg:  "compiler.script is required",
		},
		{
			name:    "bad retention",
			content: "format_version = \"0.1.0\"\nserver_port = \"1\"\n[workspace]\nretention = \"5w\"\n[compiler]\nscript = \"x\"",
			errMsg:  "invalid workspace.retention",
		},
		{
			name:    "bad runtime",
			content: "format_version = \"0.1.0\"\nserver_port = \"1\"\n[compiler]\nscript = \"x\"\nruntime = \"ruby\"",
			errMsg:  "unsupported compiler.runtime",
		},
		{
			name:    "bad glob",
			content: "format_version = \"0.1.0\"\nserver_port = \"1\"\n[workspace]\nallowed_uploads = [\"[\"]\n[compiler]\nscript = \"x\"",
			errMsg:  "invalid workspace.allowed_uploads pattern",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfigFile(writeConfig(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"5h", 5 * time.Hour, false},
		{"10m", 10 * time.Minute, false},
		{"30s", 30 * time.Second, false},
		{"2d", 48 * time.Hour, false},
		{"1y", 365 * 24 * time.Hour, false},
		{"h", 0, true},
		{"5x", 0, true},
		{"-5h", 0, true},
		{"abh", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFormatVersionSupported(t *testing.T) {
	assert.True(t, FormatVersionSupported("0.1.0"))
	assert.True(t, FormatVersionSupported("0.1.9"))
	assert.False(t, FormatVersionSupported("0.2.0"))
	assert.False(t, FormatVersionSupported(""))
	assert.False(t, FormatVersionSupported("not-a-version"))
}
