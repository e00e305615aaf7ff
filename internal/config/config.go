// Package config provides configuration management for promptledger.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultServerPort is the HTTP capture server port.
	DefaultServerPort = 5000

	// DefaultTokenThreshold is the minimum absolute token delta for a file
	// change to count as significant.
	DefaultTokenThreshold = 50

	// DefaultCooldownMinutes is the minimum gap between auto snapshots.
	DefaultCooldownMinutes = 5

	// DefaultMaxBackups caps the number of retained auto snapshots.
	DefaultMaxBackups = 10

	// DefaultPollSeconds is the capture-file poll interval.
	DefaultPollSeconds = 5
)

// DefaultIgnorePatterns are the glob patterns the change monitor skips
// when no user setting overrides them.
var DefaultIgnorePatterns = []string{"*.tmp", "*.bak", "*~"}

// Config holds all runtime settings. Settings come from a flat JSON file in
// the data directory; missing keys keep their defaults and unknown keys are
// ignored so older binaries can read newer settings files.
type Config struct {
	ServerPort int

	MonitorEnabled   bool
	MonitorFolders   []string
	MonitorFiles     []string
	IgnorePatterns   []string
	TokenThreshold   int
	CooldownMinutes  int
	MaxBackups       int
	PollSeconds      int
	SnapshotsEnabled bool
}

var (
	cached   *Config
	cachedMu sync.Mutex
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerPort:       DefaultServerPort,
		MonitorEnabled:   false,
		MonitorFolders:   []string{},
		MonitorFiles:     []string{},
		IgnorePatterns:   append([]string(nil), DefaultIgnorePatterns...),
		TokenThreshold:   DefaultTokenThreshold,
		CooldownMinutes:  DefaultCooldownMinutes,
		MaxBackups:       DefaultMaxBackups,
		PollSeconds:      DefaultPollSeconds,
		SnapshotsEnabled: true,
	}
}

// settingsFile mirrors the flat keys accepted in settings.json.
type settingsFile struct {
	ServerPort       *int     `json:"PROMPTLEDGER_PORT"`
	MonitorEnabled   *bool    `json:"PROMPTLEDGER_MONITOR_ENABLED"`
	MonitorFolders   []string `json:"PROMPTLEDGER_MONITOR_FOLDERS"`
	MonitorFiles     []string `json:"PROMPTLEDGER_MONITOR_FILES"`
	IgnorePatterns   []string `json:"PROMPTLEDGER_IGNORE_PATTERNS"`
	TokenThreshold   *int     `json:"PROMPTLEDGER_TOKEN_THRESHOLD"`
	CooldownMinutes  *int     `json:"PROMPTLEDGER_COOLDOWN_MINUTES"`
	MaxBackups       *int     `json:"PROMPTLEDGER_MAX_BACKUPS"`
	PollSeconds      *int     `json:"PROMPTLEDGER_POLL_SECONDS"`
	SnapshotsEnabled *bool    `json:"PROMPTLEDGER_SNAPSHOTS_ENABLED"`
}

// Load reads settings.json and overlays it on the defaults. A missing or
// malformed file yields the defaults without error; a ledger must come up
// even when its settings are broken.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", SettingsPath()).Msg("settings unreadable, using defaults")
		}
		return cfg, nil
	}

	var sf settingsFile
	if err := json.Unmarshal(data, &sf); err != nil {
		log.Warn().Err(err).Str("path", SettingsPath()).Msg("settings invalid, using defaults")
		return cfg, nil
	}

	if sf.ServerPort != nil && *sf.ServerPort > 0 {
		cfg.ServerPort = *sf.ServerPort
	}
	if sf.MonitorEnabled != nil {
		cfg.MonitorEnabled = *sf.MonitorEnabled
	}
	if sf.MonitorFolders != nil {
		cfg.MonitorFolders = sf.MonitorFolders
	}
	if sf.MonitorFiles != nil {
		cfg.MonitorFiles = sf.MonitorFiles
	}
	if sf.IgnorePatterns != nil {
		cfg.IgnorePatterns = sf.IgnorePatterns
	}
	if sf.TokenThreshold != nil && *sf.TokenThreshold >= 0 {
		cfg.TokenThreshold = *sf.TokenThreshold
	}
	if sf.CooldownMinutes != nil && *sf.CooldownMinutes >= 0 {
		cfg.CooldownMinutes = *sf.CooldownMinutes
	}
	if sf.MaxBackups != nil && *sf.MaxBackups > 0 {
		cfg.MaxBackups = *sf.MaxBackups
	}
	if sf.PollSeconds != nil && *sf.PollSeconds > 0 {
		cfg.PollSeconds = *sf.PollSeconds
	}
	if sf.SnapshotsEnabled != nil {
		cfg.SnapshotsEnabled = *sf.SnapshotsEnabled
	}

	// Env overrides for list settings, comma separated.
	if v := os.Getenv("PROMPTLEDGER_MONITOR_FOLDERS"); v != "" {
		cfg.MonitorFolders = splitTrim(v)
	}
	if v := os.Getenv("PROMPTLEDGER_IGNORE_PATTERNS"); v != "" {
		cfg.IgnorePatterns = splitTrim(v)
	}

	return cfg, nil
}

// Get returns the process-wide configuration, loading it on first use.
func Get() *Config {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	if cached == nil {
		cfg, _ := Load()
		cached = cfg
	}
	return cached
}

// Reset drops the cached configuration. Tests use it between scenarios.
func Reset() {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	cached = nil
}

// GetServerPort returns the HTTP port, preferring the PROMPTLEDGER_PORT
// environment variable over the settings file.
func GetServerPort() int {
	if v := os.Getenv("PROMPTLEDGER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			return port
		}
	}
	return Get().ServerPort
}

// DataDir returns the promptledger data directory under the user's home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if override := os.Getenv("PROMPTLEDGER_DATA_DIR"); override != "" {
		return override
	}
	return filepath.Join(home, ".promptledger")
}

// DBPath returns the SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "promptledger.db")
}

// RecordsPath returns the canonical JSON record store path.
func RecordsPath() string {
	return filepath.Join(DataDir(), "prompt_database.json")
}

// CapturePath returns the side-channel capture file that external recorders
// append to and the poller watches.
func CapturePath() string {
	return filepath.Join(DataDir(), "claude_prompts.json")
}

// BackupDir returns the auto snapshot directory.
func BackupDir() string {
	return filepath.Join(DataDir(), "backups")
}

// NotesPath returns the decision journal path.
func NotesPath() string {
	return filepath.Join(DataDir(), "notes.json")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data and backup directories if missing.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0750); err != nil {
		return err
	}
	return os.MkdirAll(BackupDir(), 0750)
}

// EnsureSettings writes a default settings file when none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	cfg := Default()
	sf := settingsFile{
		ServerPort:       &cfg.ServerPort,
		MonitorEnabled:   &cfg.MonitorEnabled,
		MonitorFolders:   cfg.MonitorFolders,
		MonitorFiles:     cfg.MonitorFiles,
		IgnorePatterns:   cfg.IgnorePatterns,
		TokenThreshold:   &cfg.TokenThreshold,
		CooldownMinutes:  &cfg.CooldownMinutes,
		MaxBackups:       &cfg.MaxBackups,
		PollSeconds:      &cfg.PollSeconds,
		SnapshotsEnabled: &cfg.SnapshotsEnabled,
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll initializes the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// splitTrim splits a comma-separated value into its non-empty trimmed parts.
func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
