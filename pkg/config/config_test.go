package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/partyprobe/pkg/poll"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Rounds)
	assert.Equal(t, 2, cfg.Clients)
	assert.Equal(t, 8*time.Second, cfg.Timings.HostGrace)
	assert.Equal(t, 3*time.Second, cfg.Timings.ClientStagger)
	assert.Equal(t, 5*time.Second, cfg.Timings.ObserveDwell)
	assert.Equal(t, 40, cfg.Polls.Voting.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Polls.Voting.Interval)
	assert.Equal(t, poll.ActionWarn, cfg.Polls.Voting.OnTimeout)
	assert.Equal(t, 15*time.Second, cfg.Polls.Suggest.Budget()+cfg.Polls.Suggest.Interval)
	assert.Equal(t, poll.ActionAbandon, cfg.Polls.Suggest.OnTimeout)
	assert.Equal(t, 100, cfg.Probe.MinMarkupLength)
	assert.Equal(t, 20, cfg.Probe.MinTextLength)
	assert.True(t, cfg.Browser.KeepOpen)
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("PARTYPROBE_CONFIG", "")
	t.Setenv("GAME_PORT", "4173")
	path := writeFile(t, "probe.yaml", `
target_url: http://localhost:${GAME_PORT}/play
rounds: 3
clients: 1
browser:
  headless: true
timings:
  host_grace: 2s
polls:
  voting:
    max_attempts: 10
join:
  room_pattern: "*probehost*"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4173/play", cfg.TargetURL)
	assert.Equal(t, 3, cfg.Rounds)
	assert.Equal(t, 1, cfg.Clients)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 2*time.Second, cfg.Timings.HostGrace)
	// Unset fields keep their defaults
	assert.Equal(t, 3*time.Second, cfg.Timings.ClientStagger)
	assert.Equal(t, 10, cfg.Polls.Voting.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Polls.Voting.Interval)
	assert.Equal(t, "*probehost*", cfg.Join.RoomPattern)
	assert.Equal(t, path, cfg.ConfigFilePath)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "probe.toml", `
target_url = "https://game.example.com"
rounds = 2

[timings]
observe_dwell = "1s"

[polls.results]
interval = "2s"
max_attempts = 5
on_timeout = "issue"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://game.example.com", cfg.TargetURL)
	assert.Equal(t, 2, cfg.Rounds)
	assert.Equal(t, time.Second, cfg.Timings.ObserveDwell)
	assert.Equal(t, poll.Policy{Interval: 2 * time.Second, MaxAttempts: 5, OnTimeout: poll.ActionIssue}, cfg.Polls.Results)
}

func TestLoadMissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv("PARTYPROBE_CONFIG", "")
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().TargetURL, cfg.TargetURL)
	assert.Empty(t, cfg.ConfigFilePath)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "probe.ini", "rounds=1")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PARTYPROBE_CONFIG", "")
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("PARTYPROBE_TARGET_URL", "http://127.0.0.1:8080")
	t.Setenv("PARTYPROBE_HEADLESS", "true")
	t.Setenv("PARTYPROBE_CLIENTS", "3")
	t.Setenv("PARTYPROBE_ROUNDS", "1")
	t.Setenv("PARTYPROBE_ARCHIVE", "runs.db")
	t.Setenv("PARTYPROBE_VERBOSITY", "debug")
	t.Setenv("PARTYPROBE_LOG_DIR", "logs")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8080", cfg.TargetURL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 3, cfg.Clients)
	assert.Equal(t, 1, cfg.Rounds)
	assert.Equal(t, "runs.db", cfg.Archive.Path)
	assert.Equal(t, "debug", cfg.Logging.Verbosity)
	assert.Equal(t, "logs", cfg.Logging.Dir)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("PARTYPROBE_CONFIG", "")
	t.Setenv("PARTYPROBE_CLIENTS", "many")
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PARTYPROBE_CLIENTS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing url", func(c *Config) { c.TargetURL = "" }, "target_url is required"},
		{"relative url", func(c *Config) { c.TargetURL = "/play" }, "invalid target_url"},
		{"no rounds", func(c *Config) { c.Rounds = 0 }, "rounds must be at least 1"},
		{"negative clients", func(c *Config) { c.Clients = -1 }, "clients cannot be negative"},
		{"too many clients", func(c *Config) { c.Clients = 20 }, "clients are supported"},
		{"negative grace", func(c *Config) { c.Timings.HostGrace = -time.Second }, "host_grace cannot be negative"},
		{"zero element timeout", func(c *Config) { c.Timings.ElementTimeout = 0 }, "element_timeout must be positive"},
		{"bad poll action", func(c *Config) { c.Polls.Voting.OnTimeout = "retry" }, "polls.voting"},
		{"bad poll attempts", func(c *Config) { c.Polls.Suggest.MaxAttempts = 0 }, "polls.suggest"},
		{"bad glob", func(c *Config) { c.Join.RoomPattern = "[room" }, "invalid join.room_pattern"},
		{"bad regexp", func(c *Config) { c.Probe.ProgressPattern = "(round" }, "invalid probe.progress_pattern"},
		{"no app roots", func(c *Config) { c.Selectors.AppRoots = nil }, "app_roots cannot be empty"},
		{"bad verbosity", func(c *Config) { c.Logging.Verbosity = "loud" }, "invalid logging verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDefaultsVerbosity(t *testing.T) {
	cfg := Default()
	cfg.Logging.Verbosity = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
}

func TestClientNameAndSessionOptions(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "ProbeClient2", cfg.ClientName(2))

	opts := cfg.SessionOptions()
	assert.False(t, opts.Headless)
	require.NotNil(t, opts.Viewport)
	assert.Equal(t, cfg.Browser.Viewport.Width, opts.Viewport.Width)
	assert.Equal(t, 30000.0, opts.Timeout)
}
