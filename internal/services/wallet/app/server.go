// Package app wires the wallet runtime and HTTP lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/soniclabs/passkey-wallet/internal/platform/config"
	"github.com/soniclabs/passkey-wallet/internal/platform/timeouts"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/api/httpapi"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/chain"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/derive"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/registry"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/relay"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/session"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/storage"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/storage/memory"
	walletsqlite "github.com/soniclabs/passkey-wallet/internal/services/wallet/storage/sqlite"
)

type serverEnv struct {
	DBPath            string `env:"PASSKEY_WALLET_DB_PATH"`
	Store             string `env:"PASSKEY_WALLET_STORE" envDefault:"sqlite"`
	ExposePrivateKeys bool   `env:"PASSKEY_WALLET_EXPOSE_PRIVATE_KEYS" envDefault:"false"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "wallet.db")
	}
	return cfg
}

// Server hosts the wallet HTTP API and storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      storage.AccountStore
	closeStore func() error
}

// New creates a configured wallet server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured wallet server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	store, closeStore, err := openAccountStore(env)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	network := chain.LoadNetworkFromEnv()
	deriver := derive.NewDeriver(derive.LoadConfigFromEnv().Salt)

	client, err := chain.NewHTTPClient(network.RPCURL)
	if err != nil {
		_ = listener.Close()
		_ = closeStore()
		return nil, fmt.Errorf("build chain client: %w", err)
	}

	handler, err := buildHandler(store, deriver, client, network, env)
	if err != nil {
		_ = listener.Close()
		_ = closeStore()
		return nil, err
	}

	httpServer := &http.Server{
		Handler:           otelhttp.NewHandler(handler.Routes(), "wallet"),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	return &Server{
		listener:   listener,
		httpServer: httpServer,
		store:      store,
		closeStore: closeStore,
	}, nil
}

func buildHandler(store storage.AccountStore, deriver *derive.Deriver, client chain.Client, network chain.Network, env serverEnv) (*httpapi.Handler, error) {
	reg, err := registry.New(store, deriver, network.ChainID)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	rel, err := relay.New(client, deriver, network)
	if err != nil {
		return nil, fmt.Errorf("build relay: %w", err)
	}

	sessionCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	minter, err := session.NewMinter(sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("build session minter: %w", err)
	}

	handler, err := httpapi.New(reg, rel, client, network, deriver, minter, httpapi.Config{
		RequireSession:    sessionCfg.Require,
		ExposePrivateKeys: env.ExposePrivateKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("build api handler: %w", err)
	}
	return handler, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a wallet server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("wallet server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases wallet server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.closeStore != nil {
		if err := s.closeStore(); err != nil {
			log.Printf("close account store: %v", err)
		}
	}
}

func openAccountStore(env serverEnv) (storage.AccountStore, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(env.Store)) {
	case "memory":
		return memory.NewStore(), func() error { return nil }, nil
	case "", "sqlite":
		if dir := filepath.Dir(env.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := walletsqlite.Open(env.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open wallet sqlite store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", env.Store)
	}
}
