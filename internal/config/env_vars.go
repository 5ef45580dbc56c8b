package config

import "strings"

const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// EnvVars holds the values read from the process environment.
type EnvVars struct {
	APIURL         string `env:"API_URL" envDefault:"http://127.0.0.1:8000"`
	AppName        string `env:"APP_NAME" envDefault:"Pedidos"`
	DataFolder     string `env:"DATA_FOLDER" envDefault:"./data"`
	SessionBackend string `env:"SESSION_BACKEND" envDefault:"file"`
	RedisURL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Env            string `env:"ENV" envDefault:"DEV"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAPIURL() string {
	return strings.TrimRight(e.APIURL, "/")
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

func (e EnvVars) GetSessionBackend() string {
	switch backend := strings.ToLower(e.SessionBackend); backend {
	case SessionBackendRedis, SessionBackendMemory:
		return backend
	default:
		return SessionBackendFile
	}
}

func (e EnvVars) GetRedisURL() string {
	return e.RedisURL
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}
