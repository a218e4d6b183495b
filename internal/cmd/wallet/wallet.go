// Package wallet parses wallet service flags and launches the service.
package wallet

import (
	"context"
	"flag"

	entrypoint "github.com/soniclabs/passkey-wallet/internal/platform/cmd"
	server "github.com/soniclabs/passkey-wallet/internal/services/wallet/app"
)

// Config holds wallet command configuration.
type Config struct {
	Port int `env:"PASSKEY_WALLET_PORT" envDefault:"3000"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The wallet HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the wallet HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWallet, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
