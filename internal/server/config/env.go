package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// legacyEnv carries the variable names the original deployment scripts use.
type legacyEnv struct {
	Port      string `env:"PORT"`
	JWTSecret string `env:"JWT_SECRET"`
}

// parseEnv overlays RELAY_* variables onto config. Only variables that are
// set are applied. PORT and JWT_SECRET are honoured when their RELAY_*
// counterparts are absent.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}

	var legacy legacyEnv
	if err := env.Parse(&legacy); err != nil {
		panic(err)
	}

	if port := strings.TrimSpace(legacy.Port); port != "" && !envSet("RELAY_HTTP_ADDR") {
		config.EndpointAddrHTTP = ":" + strings.TrimPrefix(port, ":")
	}
	if legacy.JWTSecret != "" && !envSet("RELAY_SECRET_KEY") {
		config.SecretKey = legacy.JWTSecret
	}
}

func envSet(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}
