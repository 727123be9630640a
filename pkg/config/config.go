// Package config loads the partyprobe run configuration from an optional
// YAML or TOML file, environment overrides and built-in defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/partyprobe/pkg/browser"
	"github.com/entrhq/partyprobe/pkg/poll"
)

// DefaultPath is read when no config path is given and the file exists.
const DefaultPath = "partyprobe.yaml"

// Config represents the configuration for one exploratory run
type Config struct {
	// Target game URL
	TargetURL string `yaml:"target_url" toml:"target_url" json:"target_url"`

	// Number of game rounds each agent plays
	Rounds int `yaml:"rounds" toml:"rounds" json:"rounds"`

	// Number of client agents started after the host
	Clients int `yaml:"clients" toml:"clients" json:"clients"`

	// Display names entered by the agents
	HostName         string `yaml:"host_name" toml:"host_name" json:"host_name"`
	ClientNamePrefix string `yaml:"client_name_prefix" toml:"client_name_prefix" json:"client_name_prefix"`

	Browser   BrowserConfig  `yaml:"browser" toml:"browser" json:"browser"`
	Timings   TimingConfig   `yaml:"timings" toml:"timings" json:"timings"`
	Polls     PollConfig     `yaml:"polls" toml:"polls" json:"polls"`
	Join      JoinConfig     `yaml:"join" toml:"join" json:"join"`
	Selectors Selectors      `yaml:"selectors" toml:"selectors" json:"selectors"`
	Probe     ProbeConfig    `yaml:"probe" toml:"probe" json:"probe"`
	Artifacts ArtifactConfig `yaml:"artifacts" toml:"artifacts" json:"artifacts"`
	Archive   ArchiveConfig  `yaml:"archive" toml:"archive" json:"archive"`
	Logging   LoggingConfig  `yaml:"logging" toml:"logging" json:"logging"`

	// Path of the file the configuration was read from, if any
	ConfigFilePath string `yaml:"-" toml:"-" json:"-"`
}

// BrowserConfig controls the browser sessions launched for agents
type BrowserConfig struct {
	Headless bool             `yaml:"headless" toml:"headless" json:"headless"`
	Args     []string         `yaml:"args" toml:"args" json:"args"`
	Viewport browser.Viewport `yaml:"viewport" toml:"viewport" json:"viewport"`

	// KeepOpen leaves every browser window open after the report for inspection
	KeepOpen bool `yaml:"keep_open" toml:"keep_open" json:"keep_open"`

	NavigationTimeout time.Duration `yaml:"navigation_timeout" toml:"navigation_timeout" json:"navigation_timeout"`
}

// TimingConfig holds the fixed waits used instead of cross-agent messaging.
// The host's room is assumed to be listed for clients within HostGrace.
type TimingConfig struct {
	HostGrace      time.Duration `yaml:"host_grace" toml:"host_grace" json:"host_grace"`
	ClientStagger  time.Duration `yaml:"client_stagger" toml:"client_stagger" json:"client_stagger"`
	RoomListDwell  time.Duration `yaml:"room_list_dwell" toml:"room_list_dwell" json:"room_list_dwell"`
	LobbyDwell     time.Duration `yaml:"lobby_dwell" toml:"lobby_dwell" json:"lobby_dwell"`
	ObserveDwell   time.Duration `yaml:"observe_dwell" toml:"observe_dwell" json:"observe_dwell"`
	ElementTimeout time.Duration `yaml:"element_timeout" toml:"element_timeout" json:"element_timeout"`
	ElementPoll    time.Duration `yaml:"element_poll" toml:"element_poll" json:"element_poll"`
}

// PollConfig holds the bounded polls of the round and results phases
type PollConfig struct {
	Suggest poll.Policy `yaml:"suggest" toml:"suggest" json:"suggest"`
	Voting  poll.Policy `yaml:"voting" toml:"voting" json:"voting"`
	Results poll.Policy `yaml:"results" toml:"results" json:"results"`
}

// JoinConfig selects which listed room a client joins
type JoinConfig struct {
	// RoomPattern is a case-insensitive glob matched against room control labels
	RoomPattern string `yaml:"room_pattern" toml:"room_pattern" json:"room_pattern"`

	// MatchHost restricts the choice to rooms whose label contains the host name
	MatchHost bool `yaml:"match_host" toml:"match_host" json:"match_host"`
}

// Selectors are Playwright selectors for the controls of the target UI
type Selectors struct {
	AppRoots     []string `yaml:"app_roots" toml:"app_roots" json:"app_roots"`
	PlayButton   string   `yaml:"play_button" toml:"play_button" json:"play_button"`
	NameInput    string   `yaml:"name_input" toml:"name_input" json:"name_input"`
	ConfirmName  string   `yaml:"confirm_name" toml:"confirm_name" json:"confirm_name"`
	CreateRoom   string   `yaml:"create_room" toml:"create_room" json:"create_room"`
	BrowseRooms  string   `yaml:"browse_rooms" toml:"browse_rooms" json:"browse_rooms"`
	RoomControls string   `yaml:"room_controls" toml:"room_controls" json:"room_controls"`
	Lobby        string   `yaml:"lobby" toml:"lobby" json:"lobby"`
	StartGame    string   `yaml:"start_game" toml:"start_game" json:"start_game"`
	AnswerInput  string   `yaml:"answer_input" toml:"answer_input" json:"answer_input"`
	VoteButtons  string   `yaml:"vote_buttons" toml:"vote_buttons" json:"vote_buttons"`
	VoteInput    string   `yaml:"vote_input" toml:"vote_input" json:"vote_input"`
	Results      string   `yaml:"results" toml:"results" json:"results"`
}

// ProbeConfig holds the blank-screen and progress thresholds
type ProbeConfig struct {
	MinMarkupLength    int    `yaml:"min_markup_length" toml:"min_markup_length" json:"min_markup_length"`
	MinTextLength      int    `yaml:"min_text_length" toml:"min_text_length" json:"min_text_length"`
	ProgressTextLength int    `yaml:"progress_text_length" toml:"progress_text_length" json:"progress_text_length"`
	ProgressPattern    string `yaml:"progress_pattern" toml:"progress_pattern" json:"progress_pattern"`
}

// ArtifactConfig defines where screenshots and reports are written
type ArtifactConfig struct {
	Dir      string `yaml:"dir" toml:"dir" json:"dir"`
	JSON     bool   `yaml:"json" toml:"json" json:"json"`
	Markdown bool   `yaml:"markdown" toml:"markdown" json:"markdown"`
}

// ArchiveConfig enables the SQLite run history. An empty path disables it.
type ArchiveConfig struct {
	Path string `yaml:"path" toml:"path" json:"path"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" toml:"verbosity" json:"verbosity"`

	// Color enables ANSI colours on the console
	Color bool `yaml:"color" toml:"color" json:"color"`

	// File enables the per-run debug log
	File bool `yaml:"file" toml:"file" json:"file"`

	// Dir holds the debug logs. Empty means ~/.partyprobe/logs.
	Dir string `yaml:"dir" toml:"dir" json:"dir"`
}

// Default returns a configuration suitable for a local development server
func Default() *Config {
	return &Config{
		TargetURL:        "http://localhost:3000",
		Rounds:           5,
		Clients:          2,
		HostName:         "ProbeHost",
		ClientNamePrefix: "ProbeClient",
		Browser: BrowserConfig{
			Headless: false,
			Viewport: browser.Viewport{
				Width:  browser.DefaultViewportWidth,
				Height: browser.DefaultViewportHeight,
			},
			KeepOpen:          true,
			NavigationTimeout: 30 * time.Second,
		},
		Timings: TimingConfig{
			HostGrace:      8 * time.Second,
			ClientStagger:  3 * time.Second,
			RoomListDwell:  3 * time.Second,
			LobbyDwell:     15 * time.Second,
			ObserveDwell:   5 * time.Second,
			ElementTimeout: 10 * time.Second,
			ElementPoll:    250 * time.Millisecond,
		},
		Polls: PollConfig{
			Suggest: poll.Policy{Interval: 500 * time.Millisecond, MaxAttempts: 30, OnTimeout: poll.ActionAbandon},
			Voting:  poll.Policy{Interval: 500 * time.Millisecond, MaxAttempts: 40, OnTimeout: poll.ActionWarn},
			Results: poll.Policy{Interval: time.Second, MaxAttempts: 30, OnTimeout: poll.ActionFail},
		},
		Join: JoinConfig{
			RoomPattern: "*room*",
		},
		Selectors: DefaultSelectors(),
		Probe: ProbeConfig{
			MinMarkupLength:    100,
			MinTextLength:      20,
			ProgressTextLength: 200,
			ProgressPattern:    `(?i)\bround\s*\d|\bvot(e|ing)\b|\bresults?\b|\bwinner\b|\bscore\b`,
		},
		Artifacts: ArtifactConfig{
			Dir:      "partyprobe-artifacts",
			JSON:     true,
			Markdown: true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
			Color:     true,
			File:      true,
		},
	}
}

// DefaultSelectors returns loose selectors for a conventional party-game UI.
func DefaultSelectors() Selectors {
	return Selectors{
		AppRoots:     []string{"#root", "#app", "#__next", "[data-reactroot]", "main", "canvas"},
		PlayButton:   `button:has-text("Play")`,
		NameInput:    `input[placeholder*="name" i], input[name*="name" i]`,
		ConfirmName:  `button:has-text("Continue"), button:has-text("Confirm"), button:has-text("OK")`,
		CreateRoom:   `button:has-text("Create")`,
		BrowseRooms:  `button:has-text("Join"), button:has-text("Browse")`,
		RoomControls: `button:visible, [role="button"]:visible`,
		Lobby:        `text=/waiting for players|lobby/i`,
		StartGame:    `button:has-text("Start")`,
		AnswerInput:  `input[type="text"]:not([placeholder*="vote" i]):visible, textarea:visible`,
		VoteButtons:  `button:text-matches("^[1-9]$")`,
		VoteInput:    `input[placeholder*="vote" i]:visible:enabled`,
		Results:      `text=/results|winner|final score|game over/i`,
	}
}

// Load reads the configuration from path. An empty path falls back to
// $PARTYPROBE_CONFIG, then to DefaultPath when it exists, then to defaults.
// Environment variables are expanded inside the file and PARTYPROBE_*
// variables override individual settings.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("PARTYPROBE_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, os.ExpandEnv(string(data)), cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFilePath = path
	case os.IsNotExist(err) && !explicit:
		// No config file, use defaults + env
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decode(path, data string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal([]byte(data), cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format: %s (must be .yaml, .yml, or .toml)", filepath.Ext(path))
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PARTYPROBE_TARGET_URL"); v != "" {
		cfg.TargetURL = v
	}
	if v := os.Getenv("PARTYPROBE_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PARTYPROBE_HEADLESS: %w", err)
		}
		cfg.Browser.Headless = b
	}
	if v := os.Getenv("PARTYPROBE_KEEP_OPEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PARTYPROBE_KEEP_OPEN: %w", err)
		}
		cfg.Browser.KeepOpen = b
	}
	if v := os.Getenv("PARTYPROBE_CLIENTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PARTYPROBE_CLIENTS: %w", err)
		}
		cfg.Clients = n
	}
	if v := os.Getenv("PARTYPROBE_ROUNDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PARTYPROBE_ROUNDS: %w", err)
		}
		cfg.Rounds = n
	}
	if v := os.Getenv("PARTYPROBE_ARTIFACTS_DIR"); v != "" {
		cfg.Artifacts.Dir = v
	}
	if v := os.Getenv("PARTYPROBE_ARCHIVE"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("PARTYPROBE_VERBOSITY"); v != "" {
		cfg.Logging.Verbosity = v
	}
	if v := os.Getenv("PARTYPROBE_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if v := os.Getenv("NO_COLOR"); v != "" {
		cfg.Logging.Color = false
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.TargetURL == "" {
		return fmt.Errorf("target_url is required")
	}
	u, err := url.Parse(c.TargetURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid target_url: %q", c.TargetURL)
	}

	if c.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1")
	}
	if c.Clients < 0 {
		return fmt.Errorf("clients cannot be negative")
	}
	if c.Clients+1 > browser.DefaultMaxSessions {
		return fmt.Errorf("at most %d clients are supported", browser.DefaultMaxSessions-1)
	}
	if c.HostName == "" {
		return fmt.Errorf("host_name is required")
	}
	if c.ClientNamePrefix == "" {
		return fmt.Errorf("client_name_prefix is required")
	}

	timings := map[string]time.Duration{
		"host_grace":      c.Timings.HostGrace,
		"client_stagger":  c.Timings.ClientStagger,
		"room_list_dwell": c.Timings.RoomListDwell,
		"lobby_dwell":     c.Timings.LobbyDwell,
		"observe_dwell":   c.Timings.ObserveDwell,
	}
	for name, d := range timings {
		if d < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	if c.Timings.ElementTimeout <= 0 {
		return fmt.Errorf("element_timeout must be positive")
	}
	if c.Timings.ElementPoll <= 0 {
		return fmt.Errorf("element_poll must be positive")
	}

	policies := map[string]poll.Policy{
		"suggest": c.Polls.Suggest,
		"voting":  c.Polls.Voting,
		"results": c.Polls.Results,
	}
	for name, p := range policies {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("polls.%s: %w", name, err)
		}
	}

	if _, err := glob.Compile(strings.ToLower(c.Join.RoomPattern)); err != nil {
		return fmt.Errorf("invalid join.room_pattern: %w", err)
	}
	if _, err := regexp.Compile(c.Probe.ProgressPattern); err != nil {
		return fmt.Errorf("invalid probe.progress_pattern: %w", err)
	}
	if len(c.Selectors.AppRoots) == 0 {
		return fmt.Errorf("selectors.app_roots cannot be empty")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// ClientName returns the display name of the 1-based client index.
func (c *Config) ClientName(index int) string {
	return fmt.Sprintf("%s%d", c.ClientNamePrefix, index)
}

// SessionOptions converts the browser section for the session manager.
func (c *Config) SessionOptions() browser.SessionOptions {
	viewport := c.Browser.Viewport
	return browser.SessionOptions{
		Headless: c.Browser.Headless,
		Args:     c.Browser.Args,
		Viewport: &viewport,
		Timeout:  float64(c.Browser.NavigationTimeout.Milliseconds()),
	}
}
