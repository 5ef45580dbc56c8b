package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	HTTPConfig
	SecurityConfig
	CacheConfig
	RealtimeConfig
}

type EnvConfig interface {
	GetAPIURL() string
	GetAppName() string
	GetDataFolder() string
	GetSessionBackend() string
	GetRedisURL() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	HTTP
	Security
	Cache
	Realtime
}

// New reads the environment into a Config. Call godotenv.Load beforehand when
// values should come from a .env file.
func New() (Config, error) {
	vars, err := env.ParseAs[EnvVars]()
	if err != nil {
		return nil, fmt.Errorf("[config New] failed to parse environment: %w", err)
	}
	return mainConfig{EnvVars: vars}, nil
}
