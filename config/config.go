package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pinftbay/piauth/core"
)

// Config holds the process configuration read from the environment
type Config struct {
	Port               int      `env:"PORT"                  envDefault:"3001"`
	Env                string   `env:"NODE_ENV"              envDefault:"production"`
	PiAPIKey           string   `env:"PI_API_KEY"`
	PiSandbox          bool     `env:"PI_SANDBOX"            envDefault:"false"`
	PiAPIURL           string   `env:"PI_API_URL"            envDefault:"https://api.minepi.com"`
	RedisURL           string   `env:"REDIS_URL"`
	SessionSecret      string   `env:"SESSION_SECRET"`
	SessionTokenFormat string   `env:"SESSION_TOKEN_FORMAT"  envDefault:"jwt"`
	RequireChallenge   bool     `env:"REQUIRE_CHALLENGE"     envDefault:"false"`
	CORSOrigins        []string `env:"CORS_ORIGINS"          envSeparator:"," envDefault:"https://pinftbay.art,https://www.pinftbay.art,http://localhost:3000"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	LogLevel           string   `env:"LOG_LEVEL"             envDefault:"info"`
	LogFormat          string   `env:"LOG_FORMAT"            envDefault:"json"`
}

const (
	TokenFormatJWT    = "jwt"
	TokenFormatLegacy = "legacy"
)

// Load reads the configuration from the process environment
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables instead of the process environment
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.SessionTokenFormat = strings.ToLower(strings.TrimSpace(cfg.SessionTokenFormat))
	switch cfg.SessionTokenFormat {
	case TokenFormatJWT, TokenFormatLegacy:
	default:
		return Config{}, fmt.Errorf("unknown SESSION_TOKEN_FORMAT %q", cfg.SessionTokenFormat)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}

	cfg.CORSOrigins = trimCSV(cfg.CORSOrigins)
	return cfg, nil
}

// Mode is production only when sandbox is off and an API key is configured
func (c Config) Mode() core.Mode {
	if !c.PiSandbox && c.PiAPIKey != "" {
		return core.ModeProduction
	}
	return core.ModeSandbox
}

// Development reports whether internal error details may be shown to clients
func (c Config) Development() bool {
	return c.Env == "development"
}

// Addr is the listen address
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func trimCSV(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}
