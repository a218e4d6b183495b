// Package main runs wallet client subcommands against a wallet server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	walletclicmd "github.com/soniclabs/passkey-wallet/internal/cmd/walletcli"
)

func main() {
	cfg, err := walletclicmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[WALLETCLI] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := walletclicmd.Run(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("walletcli: %v", err)
	}
}
