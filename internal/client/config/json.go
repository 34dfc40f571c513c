package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophrelay/internal/flagx"
	"github.com/dmitrijs2005/gophrelay/internal/timex"
)

// JsonConfig is the on-disk shape of the client config file. Zero values
// leave the corresponding Config field untouched.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	ServerHTTPAddr     string         `json:"server_http_addr"`
	DatabasePath       string         `json:"database_path"`
	PingInterval       timex.Duration `json:"ping_interval"`
}

// parseJson overlays cfg with the file named by -c/-config, if any.
// Read and decode failures panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.ServerHTTPAddr != "" {
		cfg.ServerHTTPAddr = jc.ServerHTTPAddr
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.PingInterval.Duration > 0 {
		cfg.PingInterval = jc.PingInterval.Duration
	}
}
