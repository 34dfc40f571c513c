// Package config loads runtime configuration for the relay CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the gRPC endpoint
//	-w string   base URL of the HTTP/websocket endpoint
//	-db string  local sqlite database path
//	-i int      ping interval (seconds)
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "server_http_addr": "http://127.0.0.1:3030",
//	  "database_path": "relay.db",
//	  "ping_interval": "5s"
//	}
package config
