// Package config holds runtime configuration loaded from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/reactiveburst/rbc-engine/internal/errors"
)

// Config is the full server configuration.
type Config struct {
	// Server
	HTTPPort string `envconfig:"RBC_HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Redis
	RedisAddress string `envconfig:"REDIS_ADDRESS" default:"localhost:6379"`

	// Combat timing
	HistoryTTL          time.Duration `envconfig:"RBC_HISTORY_TTL" default:"24h"`
	SupervisorBusySleep time.Duration `envconfig:"RBC_SUPERVISOR_BUSY_SLEEP" default:"100ms"`
	SupervisorIdleSleep time.Duration `envconfig:"RBC_SUPERVISOR_IDLE_SLEEP" default:"500ms"`
	// RegenPerExchange is flat HP and energy regeneration applied to both
	// sides after each resolved exchange. Zero disables it.
	RegenPerExchange int `envconfig:"RBC_REGEN_PER_EXCHANGE" default:"0"`

	// Matchmaking
	ArenaMatchmakingTimeout time.Duration `envconfig:"RBC_ARENA_MATCHMAKING_TIMEOUT" default:"60s"`
	MatchRequestTTL         time.Duration `envconfig:"RBC_MATCH_REQUEST_TTL" default:"5m"`
	ShadowOpponentHP        int           `envconfig:"RBC_SHADOW_HP" default:"100"`
	ShadowOpponentEnergy    int           `envconfig:"RBC_SHADOW_ENERGY" default:"50"`

	// Analytics. Empty URL selects the no-op emitter.
	AMQPURL        string `envconfig:"RABBITMQ_URL" default:""`
	AnalyticsQueue string `envconfig:"RBC_ANALYTICS_QUEUE" default:"combat_session_analytics"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configured values for consistency.
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.RedisAddress == "" {
		vb.RequiredField("REDIS_ADDRESS")
	}
	if c.HistoryTTL <= 0 {
		vb.InvalidField("RBC_HISTORY_TTL", "must be positive")
	}
	if c.SupervisorBusySleep <= 0 || c.SupervisorIdleSleep <= 0 {
		vb.InvalidField("RBC_SUPERVISOR_SLEEP", "sleep intervals must be positive")
	}
	if c.ShadowOpponentHP <= 0 {
		vb.InvalidField("RBC_SHADOW_HP", "must be positive")
	}
	if c.ShadowOpponentEnergy < 0 {
		vb.InvalidField("RBC_SHADOW_ENERGY", "must not be negative")
	}
	if c.RegenPerExchange < 0 {
		vb.InvalidField("RBC_REGEN_PER_EXCHANGE", "must not be negative")
	}
	return vb.Build()
}
