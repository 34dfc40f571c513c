package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophrelay/internal/flagx"
	"github.com/dmitrijs2005/gophrelay/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "5s"-style
// strings or integer nanoseconds. Pointer fields distinguish "absent" from
// zero values so a partial file only overrides what it names.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	StorageDriver                *string         `json:"storage_driver"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	DeliveryTimeout              *timex.Duration `json:"delivery_timeout"`
	BroadcastConcurrency         *int            `json:"broadcast_concurrency"`
	AllowedOrigins               []string        `json:"allowed_origins"`
	SeedDemoUsers                *bool           `json:"seed_demo_users"`
	LogLevel                     *string         `json:"log_level"`
	BcryptCost                   *int            `json:"bcrypt_cost"`
}

// parseJson loads the file named by -c/-config (if any) over config.
// An unreadable file or invalid JSON panics: the process cannot start with a
// configuration the operator did not intend.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.StorageDriver, c.StorageDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.DeliveryTimeout != nil {
		config.DeliveryTimeout = c.DeliveryTimeout.Duration
	}
	if c.BroadcastConcurrency != nil {
		config.BroadcastConcurrency = *c.BroadcastConcurrency
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.SeedDemoUsers != nil {
		config.SeedDemoUsers = *c.SeedDemoUsers
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
