package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the gRPC endpoint
//	-w string   base URL of the HTTP/websocket endpoint
//	-db string  path of the local sqlite database
//	-i int      ping interval (in seconds)
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-db", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.ServerHTTPAddr, "w", cfg.ServerHTTPAddr, "base URL of the websocket endpoint")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "local database path")
	pingInterval := fs.Int("i", int(cfg.PingInterval.Seconds()), "ping interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PingInterval = time.Duration(*pingInterval) * time.Second
}
