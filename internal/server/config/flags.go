package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP/websocket bind address (e.g., ":3030")
//	-g string   gRPC bind address (e.g., ":50051")
//	-S string   storage driver: memory | postgres
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-w int      delivery timeout, milliseconds
//	-o string   comma-separated allowed origins
//	-l string   log level
//	-seed bool  register demo users on startup
//
// Duration flags are integers in the noted unit, converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-S", "-d", "-s", "-t", "-r", "-w", "-o", "-l", "-seed"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve HTTP and websocket")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC")
	fs.StringVar(&config.StorageDriver, "S", config.StorageDriver, "storage driver (memory|postgres)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.SeedDemoUsers, "seed", config.SeedDemoUsers, "seed demo users")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidity := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	deliveryTimeout := fs.Int("w", int(config.DeliveryTimeout.Milliseconds()), "delivery timeout (in milliseconds)")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "allowed origins, comma separated")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * time.Minute
	config.DeliveryTimeout = time.Duration(*deliveryTimeout) * time.Millisecond
	config.AllowedOrigins = splitList(*origins)
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
