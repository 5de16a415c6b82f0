package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/remote-config-demo/internal/remoteconfig"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultVersionCode    = 1
	defaultPackageName    = "com.example.remoteconfigtest"

	// debugMinFetchInterval disables throttling for quick iteration.
	debugMinFetchInterval   = 0
	releaseMinFetchInterval = 60 * 60
)

var defaultValues = map[remoteconfig.Key]string{
	remoteconfig.LoadingPhrase:      "Fetching config…",
	remoteconfig.WelcomeMessage:     "Welcome to my awesome app!",
	remoteconfig.WelcomeMessageCaps: "false",
	remoteconfig.NewVersionCode:     "1",
}

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int

	Debug bool
	// MinFetchIntervalSeconds is the minimum time between fetches that reach
	// the remote service. 0 disables throttling.
	MinFetchIntervalSeconds int
	RemoteURL               string
	RemotePath              string
	RemoteFile              string
	FetchTimeout            time.Duration
	FetchRetries            int
	FetchOnStart            bool

	VersionCode int
	PackageName string
	Defaults    map[remoteconfig.Key]string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string            `yaml:"port"`
	ShutdownGracePeriod  string            `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string            `yaml:"read_header_timeout"`
	WriteTimeout         string            `yaml:"write_timeout"`
	IdleTimeout          string            `yaml:"idle_timeout"`
	EnableRequestLogging *bool             `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit     `yaml:"rate_limit"`
	Debug                *bool             `yaml:"debug"`
	Remote               yamlRemote        `yaml:"remote"`
	VersionCode          *int              `yaml:"version_code"`
	PackageName          string            `yaml:"package_name"`
	Defaults             map[string]string `yaml:"defaults"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlRemote represents the remote config section in YAML.
type yamlRemote struct {
	URL                     string `yaml:"url"`
	Path                    string `yaml:"path"`
	File                    string `yaml:"file"`
	FetchTimeout            string `yaml:"fetch_timeout"`
	Retries                 *int   `yaml:"retries"`
	MinFetchIntervalSeconds *int   `yaml:"min_fetch_interval_seconds"`
	FetchOnStart            *bool  `yaml:"fetch_on_start"`
}

// envConfig lists the environment variables read by Load. Values stay raw so
// that malformed input can be ignored per variable.
type envConfig struct {
	Port             string `env:"PORT"`
	RateLimitRPS     string `env:"RATE_LIMIT_RPS"`
	RateLimitBurst   string `env:"RATE_LIMIT_BURST"`
	Debug            string `env:"DEBUG"`
	MinFetchInterval string `env:"MIN_FETCH_INTERVAL_SECONDS"`
	RemoteURL        string `env:"REMOTE_CONFIG_URL"`
	RemotePath       string `env:"REMOTE_CONFIG_PATH"`
	RemoteFile       string `env:"REMOTE_CONFIG_FILE"`
	FetchTimeout     string `env:"FETCH_TIMEOUT"`
	VersionCode      string `env:"VERSION_CODE"`
	PackageName      string `env:"PACKAGE_NAME"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile       string
	EnvFile          string
	Port             *string
	RateLimitRPS     *float64
	RateLimitBurst   *int
	Debug            *bool
	MinFetchInterval *int
	RemoteURL        *string
	RemoteFile       *string
	FetchOnStart     *bool
	VersionCode      *int
	PackageName      *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()
	var minFetchInterval *int

	if overrides != nil && overrides.EnvFile != "" {
		if err := godotenv.Load(overrides.EnvFile); err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := applyEnvConfig(&cfg, &minFetchInterval); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg, &minFetchInterval); err != nil {
			return Config{}, err
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides, &minFetchInterval)
	}

	cfg.MinFetchIntervalSeconds = resolveMinFetchInterval(cfg.Debug, minFetchInterval)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// DefaultValues returns a copy of the baked-in remote config defaults.
func DefaultValues() map[remoteconfig.Key]string {
	return maps.Clone(defaultValues)
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		FetchTimeout:         10 * time.Second,
		FetchRetries:         2,
		FetchOnStart:         true,
		VersionCode:          defaultVersionCode,
		PackageName:          defaultPackageName,
		Defaults:             DefaultValues(),
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig, minFetchInterval **int) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	setDuration(&cfg.ShutdownGracePeriod, yamlCfg.ShutdownGracePeriod)
	setDuration(&cfg.ReadHeaderTimeout, yamlCfg.ReadHeaderTimeout)
	setDuration(&cfg.WriteTimeout, yamlCfg.WriteTimeout)
	setDuration(&cfg.IdleTimeout, yamlCfg.IdleTimeout)
	setDuration(&cfg.FetchTimeout, yamlCfg.Remote.FetchTimeout)

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil && *yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil && *yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Debug != nil {
		cfg.Debug = *yamlCfg.Debug
	}

	if yamlCfg.Remote.URL != "" {
		cfg.RemoteURL = yamlCfg.Remote.URL
	}
	if yamlCfg.Remote.Path != "" {
		cfg.RemotePath = yamlCfg.Remote.Path
	}
	if yamlCfg.Remote.File != "" {
		cfg.RemoteFile = yamlCfg.Remote.File
	}
	if yamlCfg.Remote.Retries != nil {
		cfg.FetchRetries = *yamlCfg.Remote.Retries
	}
	if yamlCfg.Remote.MinFetchIntervalSeconds != nil {
		*minFetchInterval = yamlCfg.Remote.MinFetchIntervalSeconds
	}
	if yamlCfg.Remote.FetchOnStart != nil {
		cfg.FetchOnStart = *yamlCfg.Remote.FetchOnStart
	}

	if yamlCfg.VersionCode != nil {
		cfg.VersionCode = *yamlCfg.VersionCode
	}
	if yamlCfg.PackageName != "" {
		cfg.PackageName = yamlCfg.PackageName
	}

	defaults, err := parseDefaults(yamlCfg.Defaults)
	if err != nil {
		return fmt.Errorf("parse defaults: %w", err)
	}
	maps.Copy(cfg.Defaults, defaults)

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config, minFetchInterval **int) error {
	var vars envConfig
	if err := env.Parse(&vars); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if port := strings.TrimSpace(vars.Port); port != "" {
		cfg.Port = port
	}

	if value, err := strconv.ParseFloat(strings.TrimSpace(vars.RateLimitRPS), 64); err == nil && value >= 0 {
		cfg.RateLimitRPS = value
	}

	if value, err := strconv.Atoi(strings.TrimSpace(vars.RateLimitBurst)); err == nil && value >= 0 {
		cfg.RateLimitBurst = value
	}

	if value, err := strconv.ParseBool(strings.TrimSpace(vars.Debug)); err == nil {
		cfg.Debug = value
	}

	if value, err := strconv.Atoi(strings.TrimSpace(vars.MinFetchInterval)); err == nil && value >= 0 {
		*minFetchInterval = &value
	}

	if url := strings.TrimSpace(vars.RemoteURL); url != "" {
		cfg.RemoteURL = url
	}
	if path := strings.TrimSpace(vars.RemotePath); path != "" {
		cfg.RemotePath = path
	}
	if file := strings.TrimSpace(vars.RemoteFile); file != "" {
		cfg.RemoteFile = file
	}

	setDuration(&cfg.FetchTimeout, strings.TrimSpace(vars.FetchTimeout))

	if value, err := strconv.Atoi(strings.TrimSpace(vars.VersionCode)); err == nil && value >= 0 {
		cfg.VersionCode = value
	}
	if name := strings.TrimSpace(vars.PackageName); name != "" {
		cfg.PackageName = name
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides, minFetchInterval **int) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.Debug != nil {
		cfg.Debug = *overrides.Debug
	}

	if overrides.MinFetchInterval != nil && *overrides.MinFetchInterval >= 0 {
		*minFetchInterval = overrides.MinFetchInterval
	}

	if overrides.RemoteURL != nil && *overrides.RemoteURL != "" {
		cfg.RemoteURL = *overrides.RemoteURL
	}

	if overrides.RemoteFile != nil && *overrides.RemoteFile != "" {
		cfg.RemoteFile = *overrides.RemoteFile
	}

	if overrides.FetchOnStart != nil {
		cfg.FetchOnStart = *overrides.FetchOnStart
	}

	if overrides.VersionCode != nil && *overrides.VersionCode >= 0 {
		cfg.VersionCode = *overrides.VersionCode
	}

	if overrides.PackageName != nil && *overrides.PackageName != "" {
		cfg.PackageName = *overrides.PackageName
	}
}

// resolveMinFetchInterval returns the explicit interval when one was given,
// otherwise the debug or release default.
func resolveMinFetchInterval(debug bool, explicit *int) int {
	if explicit != nil {
		return *explicit
	}
	if debug {
		return debugMinFetchInterval
	}
	return releaseMinFetchInterval
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.MinFetchIntervalSeconds < 0 {
		return fmt.Errorf("MIN_FETCH_INTERVAL_SECONDS must be >= 0")
	}
	if cfg.FetchRetries < 0 {
		return fmt.Errorf("fetch retries must be >= 0")
	}
	if cfg.VersionCode < 0 {
		return fmt.Errorf("version code must be >= 0")
	}
	if cfg.RemoteURL != "" && cfg.RemoteFile != "" {
		return errors.New("remote URL and remote file are mutually exclusive")
	}
	return nil
}

// parseDefaults maps wire key names to keys. Unknown names are rejected.
func parseDefaults(raw map[string]string) (map[remoteconfig.Key]string, error) {
	out := make(map[remoteconfig.Key]string, len(raw))
	for name, value := range raw {
		key, err := remoteconfig.ParseKey(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func setDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}
