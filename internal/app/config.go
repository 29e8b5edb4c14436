package app

import (
	"github.com/campusfront/campusfront/internal/platform/envutil"
)

// Config collects the shell's environment knobs in one place. Component
// packages that own richer defaults (api client, state db, otel) still read
// their own env; this struct covers what main wires directly.
type Config struct {
	Env     string
	Version string

	Addr            string
	LogMode         string
	GuardPolicyPath string

	RedisAddr    string
	RedisChannel string
}

func Load() Config {
	return Config{
		Env:             envutil.String("APP_ENV", "development"),
		Version:         envutil.String("APP_VERSION", ""),
		Addr:            envutil.String("APP_ADDR", ":3000"),
		LogMode:         envutil.String("LOG_MODE", "development"),
		GuardPolicyPath: envutil.String("GUARD_POLICY_PATH", ""),
		RedisAddr:       envutil.String("REDIS_ADDR", ""),
		RedisChannel:    envutil.String("REDIS_CHANNEL", ""),
	}
}
