package bridge

import "time"

type Config struct {
	Path            string        `env:"BRIDGE_PATH" envDefault:"/bridge"`
	CallTimeout     time.Duration `env:"BRIDGE_CALL_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"BRIDGE_WRITE_TIMEOUT" envDefault:"10s"`
	PingInterval    time.Duration `env:"BRIDGE_PING_INTERVAL" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"BRIDGE_IDLE_TIMEOUT" envDefault:"90s"`
	MaxMessageBytes int64         `env:"BRIDGE_MAX_MESSAGE_BYTES" envDefault:"1048576"`
	// AllowedOrigins restricts the Origin header of the upgrade request,
	// e.g. "moz-extension://<uuid>". Empty allows any origin.
	AllowedOrigins []string `env:"BRIDGE_ALLOWED_ORIGINS" envSeparator:","`
}

// DefaultConfig returns the values used for zero fields.
func DefaultConfig() Config {
	return Config{
		Path:            "/bridge",
		CallTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		IdleTimeout:     90 * time.Second,
		MaxMessageBytes: 1 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = d.MaxMessageBytes
	}
	return c
}
