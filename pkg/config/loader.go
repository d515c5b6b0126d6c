package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// Load parses environment variables into v using `env` and `envDefault`
// struct tags. The first call also reads a `.env` file from the working
// directory when one exists; variables already set in the process win.
//
//	type BridgeConfig struct {
//		Path        string        `env:"BRIDGE_PATH" envDefault:"/bridge"`
//		CallTimeout time.Duration `env:"BRIDGE_CALL_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg BridgeConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	dotenvOnce.Do(func() {
		// .env is optional
		_ = godotenv.Load()
	})
	return parse(v, env.Options{})
}

// LoadFiles reads the given dotenv files into the process environment and
// then parses v. Missing files are an error here, unlike the implicit .env.
func LoadFiles[T any](v *T, files ...string) error {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return errors.Join(ErrLoadingEnvFile, err)
		}
	}
	return parse(v, env.Options{})
}

// LoadPrefixed is like Load but prepends prefix to every variable name, so a
// struct tagged `env:"URL"` reads PREFIX_URL when prefix is "PREFIX_".
func LoadPrefixed[T any](v *T, prefix string) error {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
	return parse(v, env.Options{Prefix: prefix})
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Lookup returns the environment value for key or def when unset or empty.
func Lookup(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parse[T any](v *T, opts env.Options) error {
	if v == nil {
		return ErrNilPointer
	}
	if err := env.ParseWithOptions(v, opts); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}
