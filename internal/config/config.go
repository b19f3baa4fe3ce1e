package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/xolan/hark/internal/app"
	"github.com/xolan/hark/internal/osutil"
)

const (
	// ConfigFile is the name of the TOML configuration file
	ConfigFile = "config.toml"
	// DotEnvFile holds credentials that should not live in the config file
	DotEnvFile = ".env"
	// DefaultAPIKeyEnv is the environment variable holding the transcription credential
	DefaultAPIKeyEnv = "HARK_API_KEY"
)

// Validation errors
var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidBackend  = errors.New("invalid storage backend")
	ErrInvalidProvider = errors.New("invalid transcription provider")
	ErrInvalidTimeout  = errors.New("invalid transcription timeout")
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Config represents the application configuration
type Config struct {
	// Timezone defines the timezone for grouping and display (IANA timezone name, e.g., "America/New_York")
	Timezone      string              `toml:"timezone"`
	Storage       StorageConfig       `toml:"storage"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Capture       CaptureConfig       `toml:"capture"`
	Log           LogConfig           `toml:"log"`
}

// StorageConfig selects where entries are kept.
type StorageConfig struct {
	Backend string `toml:"backend"` // sqlite or jsonl
	Path    string `toml:"path"`    // empty selects the application directory
}

// TranscriptionConfig selects the speech-to-text provider.
type TranscriptionConfig struct {
	Provider  string        `toml:"provider"`    // openai or gemini
	Model     string        `toml:"model"`       // empty selects the provider default
	BaseURL   string        `toml:"base_url"`    // empty selects the provider default
	APIKeyEnv string        `toml:"api_key_env"` // environment variable holding the credential
	Timeout   time.Duration `toml:"timeout"`
}

// CaptureConfig describes the external recorder.
type CaptureConfig struct {
	Command            string   `toml:"command"`
	InputArgs          []string `toml:"input_args"`
	PreferredMimeTypes []string `toml:"preferred_mime_types"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // empty selects <app dir>/hark.log
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timezone: "Local",
		Storage: StorageConfig{
			Backend: "sqlite",
		},
		Transcription: TranscriptionConfig{
			Provider:  "openai",
			APIKeyEnv: DefaultAPIKeyEnv,
			Timeout:   60 * time.Second,
		},
		Capture: CaptureConfig{
			Command: "ffmpeg",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GetConfigPath returns the path to the config file.
// Creates the application directory if it doesn't exist.
func GetConfigPath() (string, error) {
	return app.Path(ConfigFile)
}

// Load reads and validates the config file at path. Keys missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads the config file if it exists and returns the defaults
// otherwise. A file that exists but cannot be read or parsed is an error.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}
	return Load(path)
}

// Normalize trims and lowercases enumerated values and fills empty fields
// with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()

	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}

	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = def.Transcription.Provider
	}
	c.Transcription.APIKeyEnv = strings.TrimSpace(c.Transcription.APIKeyEnv)
	if c.Transcription.APIKeyEnv == "" {
		c.Transcription.APIKeyEnv = def.Transcription.APIKeyEnv
	}
	if c.Transcription.Timeout == 0 {
		c.Transcription.Timeout = def.Transcription.Timeout
	}

	if strings.TrimSpace(c.Capture.Command) == "" {
		c.Capture.Command = def.Capture.Command
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidTimezone, c.Timezone, err)
	}

	switch c.Storage.Backend {
	case "sqlite", "jsonl":
	default:
		return fmt.Errorf("%w %q (must be 'sqlite' or 'jsonl')", ErrInvalidBackend, c.Storage.Backend)
	}

	switch c.Transcription.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("%w %q (must be 'openai' or 'gemini')", ErrInvalidProvider, c.Transcription.Provider)
	}

	if c.Transcription.Timeout < 0 {
		return fmt.Errorf("%w %s (must be positive)", ErrInvalidTimeout, c.Transcription.Timeout)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidLogLevel, c.Log.Level, err)
	}
	return nil
}

// Location returns the configured timezone, falling back to local time.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DotEnvPaths returns the .env files consulted for the credential, in
// priority order: the working directory, then the application directory.
func DotEnvPaths() []string {
	paths := []string{DotEnvFile}
	if p, err := app.Path(DotEnvFile); err == nil {
		paths = append(paths, p)
	}
	return paths
}

// APIKey resolves the transcription credential. The environment wins over
// .env files; the first file defining the variable wins over later ones.
// Returns "" when no source defines it.
func (c Config) APIKey(dotEnvPaths ...string) string {
	name := c.Transcription.APIKeyEnv
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	if v, ok := osutil.Provider.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	for _, path := range dotEnvPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(values[name]); v != "" {
			return v
		}
	}
	return ""
}

// LogFilePath returns the configured log file or the default location.
func (c Config) LogFilePath() (string, error) {
	if c.Log.File != "" {
		return expandHome(c.Log.File)
	}
	return app.Path(app.Name + ".log")
}

// StoragePath returns the configured storage path with ~ expanded, or "" for
// the backend default.
func (c Config) StoragePath() (string, error) {
	if c.Storage.Path == "" {
		return "", nil
	}
	return expandHome(c.Storage.Path)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// GenerateSampleConfig returns a commented config file documenting every key.
func GenerateSampleConfig() string {
	return `# hark configuration file
# Uncomment and edit the values you want to change.

# Timezone used to group entries into days (IANA name, e.g. "America/New_York",
# "Europe/London", "Asia/Tokyo"). "Local" uses the system timezone.
# timezone = "Local"

[storage]
# Where entries are kept: "sqlite" (default) or "jsonl".
# backend = "sqlite"
# File location; empty uses the hark config directory.
# path = ""

[transcription]
# Speech-to-text provider: "openai" or "gemini".
# provider = "openai"
# Model name; empty uses the provider default.
# model = ""
# API base URL; empty uses the provider default.
# base_url = ""
# Environment variable holding the API key. A .env file in the working
# directory or the hark config directory is also read.
# api_key_env = "HARK_API_KEY"
# Maximum time to wait for a transcript.
# timeout = "60s"

[capture]
# Recorder command; it must write encoded audio to stdout.
# command = "ffmpeg"
# input_args = ["-hide_banner", "-loglevel", "error", "-f", "pulse", "-i", "default"]
# Encoding preference, best first; empty uses the built-in list.
# preferred_mime_types = ["audio/webm;codecs=opus", "audio/ogg;codecs=opus", "audio/mpeg"]

[log]
# One of: trace, debug, info, warn, error.
# level = "info"
# Log file; empty uses hark.log in the hark config directory.
# file = ""
`
}
