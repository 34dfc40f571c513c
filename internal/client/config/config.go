package config

import "time"

// Config holds runtime settings for the relay CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the relay gRPC endpoint.
//   - ServerHTTPAddr: base URL of the relay HTTP endpoint; the websocket is
//     dialed at <ServerHTTPAddr>/ws.
//   - DatabasePath: sqlite file holding the local message log and session.
//   - PingInterval: how often the client probes server reachability.
type Config struct {
	ServerEndpointAddr string
	ServerHTTPAddr     string
	DatabasePath       string
	PingInterval       time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.ServerHTTPAddr = "http://127.0.0.1:3030"
	c.DatabasePath = "relay.db"
	c.PingInterval = 5 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
