// Package config loads process configuration from environment variables.
//
// It wraps github.com/caarlos0/env/v11 for struct-tag parsing and
// github.com/joho/godotenv for optional dotenv files. Each component owns its
// own config struct (httpserver.Config, bridge.Config, redis.Config, ...) and
// the entry point composes them:
//
//	var cfg struct {
//		Env      string `env:"APP_ENV" envDefault:"development"`
//		LogLevel string `env:"LOG_LEVEL"`
//		Bridge   bridge.Config
//	}
//	config.MustLoad(&cfg)
//
// Nested structs are parsed recursively. User-facing scheduler settings are
// not read here; they live in a settings store.
package config
