package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	DefaultForbiddenSubdomains = []string{".stu.", ".alumni.", ".alumna."}
	DefaultForbiddenWords      = []string{"student", "free"}
)

type Config struct {
	AppLogLevel   slog.Level
	DebugMode     bool
	DebugDataPath string

	// Probe timeouts and worker pool
	AppProbeTimeout time.Duration
	AppCheckTimeout time.Duration
	AppTLSTimeout   time.Duration
	AppMaxWorkers   int

	// Remote services as "name=url-template" entries; empty uses the built-in set
	AppRemoteServices []string

	// Local heuristic denylists
	AppForbiddenSubdomains []string
	AppForbiddenWords      []string
	AppHeuristicsPath      string

	// Verdict
	AppVoteIncludeLocal  bool
	AppVerdictPolicyPath string
	AppRejectUnknown     bool

	SendGridApiHost                 string
	SendGridEmailVerificationApiKey string
}

// Heuristics is the on-disk form of the denylists read from APP_HEURISTICS_PATH.
type Heuristics struct {
	ForbiddenSubdomains []string `yaml:"forbiddenSubdomains"`
	ForbiddenWords      []string `yaml:"forbiddenWords"`
}

func New() (*Config, error) {
	cfg := Config{
		AppLogLevel:                     slog.LevelInfo,
		DebugMode:                       os.Getenv("APP_DEBUG_MODE") == "true",
		DebugDataPath:                   os.Getenv("APP_DEBUG_DATA_PATH"),
		AppProbeTimeout:                 8 * time.Second,
		AppCheckTimeout:                 5 * time.Second,
		AppTLSTimeout:                   4 * time.Second,
		AppMaxWorkers:                   8,
		AppRemoteServices:               splitList(os.Getenv("APP_REMOTE_SERVICES")),
		AppForbiddenSubdomains:          slices.Clone(DefaultForbiddenSubdomains),
		AppForbiddenWords:               slices.Clone(DefaultForbiddenWords),
		AppHeuristicsPath:               os.Getenv("APP_HEURISTICS_PATH"),
		AppVoteIncludeLocal:             os.Getenv("APP_VOTE_INCLUDE_LOCAL") == "true",
		AppVerdictPolicyPath:            os.Getenv("APP_VERDICT_POLICY_PATH"),
		AppRejectUnknown:                os.Getenv("APP_REJECT_UNKNOWN") == "true",
		SendGridApiHost:                 os.Getenv("APP_SENDGRID_API_HOST"),
		SendGridEmailVerificationApiKey: os.Getenv("APP_SENDGRID_EMAIL_VERIFICATION_API_KEY"),
	}

	if levelStr := os.Getenv("APP_LOG_LEVEL"); levelStr != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelStr)); err == nil {
			cfg.AppLogLevel = level
		}
	}

	cfg.AppProbeTimeout = envDuration("APP_PROBE_TIMEOUT", cfg.AppProbeTimeout)
	cfg.AppCheckTimeout = envDuration("APP_CHECK_TIMEOUT", cfg.AppCheckTimeout)
	cfg.AppTLSTimeout = envDuration("APP_TLS_TIMEOUT", cfg.AppTLSTimeout)

	if workersStr := os.Getenv("APP_MAX_WORKERS"); workersStr != "" {
		if n, err := strconv.Atoi(workersStr); err == nil {
			cfg.AppMaxWorkers = n
		} else {
			slog.Warn("invalid APP_MAX_WORKERS, using default", "value", workersStr, "default", cfg.AppMaxWorkers)
		}
	}

	if cfg.AppHeuristicsPath != "" {
		h, err := LoadHeuristics(cfg.AppHeuristicsPath)
		if err != nil {
			return nil, err
		}
		if len(h.ForbiddenSubdomains) > 0 {
			cfg.AppForbiddenSubdomains = h.ForbiddenSubdomains
		}
		if len(h.ForbiddenWords) > 0 {
			cfg.AppForbiddenWords = h.ForbiddenWords
		}
	}

	// env lists win over the file
	if subdomains := splitList(os.Getenv("APP_FORBIDDEN_SUBDOMAINS")); len(subdomains) > 0 {
		cfg.AppForbiddenSubdomains = subdomains
	}
	if words := splitList(os.Getenv("APP_FORBIDDEN_WORDS")); len(words) > 0 {
		cfg.AppForbiddenWords = words
	}

	if cfg.SendGridApiHost == "" {
		cfg.SendGridApiHost = "https://api.sendgrid.com"
	}

	// deprecated
	if cfg.SendGridEmailVerificationApiKey == "" && os.Getenv("APP_SENDGRID_API_KEY") != "" {
		cfg.SendGridEmailVerificationApiKey = os.Getenv("APP_SENDGRID_API_KEY")
		slog.Warn("deprecated env var used", "old", "APP_SENDGRID_API_KEY", "new", "APP_SENDGRID_EMAIL_VERIFICATION_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and valid
func (c *Config) Validate() error {
	if c.AppProbeTimeout <= 0 {
		return errors.New("APP_PROBE_TIMEOUT must be positive")
	}

	if c.AppCheckTimeout <= 0 {
		return errors.New("APP_CHECK_TIMEOUT must be positive")
	}

	if c.AppTLSTimeout <= 0 {
		return errors.New("APP_TLS_TIMEOUT must be positive")
	}

	if c.AppMaxWorkers < 1 {
		return errors.New("APP_MAX_WORKERS must be at least 1")
	}

	for _, s := range c.AppForbiddenSubdomains {
		if s == "" {
			return errors.New("APP_FORBIDDEN_SUBDOMAINS must not contain empty entries")
		}
	}

	for _, w := range c.AppForbiddenWords {
		if w == "" {
			return errors.New("APP_FORBIDDEN_WORDS must not contain empty entries")
		}
	}

	if c.AppVerdictPolicyPath != "" {
		if _, err := os.Stat(c.AppVerdictPolicyPath); err != nil {
			return fmt.Errorf("APP_VERDICT_POLICY_PATH is not readable: %w", err)
		}
	}

	return nil
}

// LoadHeuristics reads denylists from a YAML file.
func LoadHeuristics(path string) (*Heuristics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read heuristics file: %w", err)
	}

	var h Heuristics
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse heuristics file: %w", err)
	}

	return &h, nil
}

func envDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", s, "default", def.String())
		return def
	}
	return d
}

func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
