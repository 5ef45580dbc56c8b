package config

import "time"

type RealtimeConfig interface {
	GetRealtimePath() string
	GetReconnectBaseDelay() time.Duration
	GetMaxReconnectAttempts() int
	GetDebounceWindow() time.Duration
	GetHandshakeTimeout() time.Duration
}

type Realtime struct{}

var _ RealtimeConfig = Realtime{}

func (Realtime) GetRealtimePath() string {
	return "/ws"
}

func (Realtime) GetReconnectBaseDelay() time.Duration {
	return 2 * time.Second
}

func (Realtime) GetMaxReconnectAttempts() int {
	return 5
}

func (Realtime) GetDebounceWindow() time.Duration {
	return time.Second
}

func (Realtime) GetHandshakeTimeout() time.Duration {
	return 20 * time.Second
}
