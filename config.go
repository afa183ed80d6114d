package weakevent

import (
	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// Config tunes manager behavior. The zero value matches DefaultConfig except
// for LogSelfDetach.
type Config struct {
	// RecoverPanics recovers panics raised by a subscriber method instead of
	// letting them unwind into the broadcaster.
	RecoverPanics bool `yaml:"recover_panics" json:"recover_panics" env:"WEAKEVENT_RECOVER_PANICS"`
	// TraceForwarding logs every forwarded call at trace level.
	TraceForwarding bool `yaml:"trace_forwarding" json:"trace_forwarding" env:"WEAKEVENT_TRACE_FORWARDING"`
	// LogSelfDetach logs when a collected receiver causes a detach.
	LogSelfDetach bool `yaml:"log_self_detach" json:"log_self_detach" env:"WEAKEVENT_LOG_SELF_DETACH"`
}

func DefaultConfig() Config {
	return Config{
		LogSelfDetach: true,
	}
}

// ParseConfig reads a YAML or JSON document on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	// yaml can handle JSON too, so a single attempt is fine
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), errors.Wrap(err, errors.CategoryBadInput, "parse weakevent config").
			WithTextCode("CONFIG_PARSE_FAILED")
	}
	return cfg, nil
}

// ApplyEnv overrides fields from WEAKEVENT_* environment variables. Unset
// variables leave the current values untouched.
func (c Config) ApplyEnv() (Config, error) {
	if err := env.Parse(&c); err != nil {
		return c, errors.Wrap(err, errors.CategoryBadInput, "read weakevent config from environment").
			WithTextCode("CONFIG_ENV_FAILED")
	}
	return c, nil
}
