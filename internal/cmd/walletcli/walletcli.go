// Package walletcli parses wallet client flags and dispatches subcommands.
package walletcli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/soniclabs/passkey-wallet/internal/client/credential"
	clientwallet "github.com/soniclabs/passkey-wallet/internal/client/wallet"
	entrypoint "github.com/soniclabs/passkey-wallet/internal/platform/cmd"
	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
)

// Config holds wallet client command configuration.
type Config struct {
	ServerURL string `env:"PASSKEY_WALLET_SERVER_URL" envDefault:"http://localhost:3000"`
	StatePath string `env:"PASSKEY_WALLET_CLIENT_STATE"`
	CachePath string `env:"PASSKEY_WALLET_CREDENTIAL_CACHE"`

	// Args carries the subcommand and its arguments after flag parsing.
	Args []string
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "The wallet server base URL")
	fs.StringVar(&cfg.StatePath, "state", cfg.StatePath, "Path to the local account state file")
	fs.StringVar(&cfg.CachePath, "cache", cfg.CachePath, "Path to the credential cache file")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Args = fs.Args()
	return cfg, nil
}

// unsupportedAuthenticator rejects ceremonies: a headless process has no
// platform authenticator, so credential operations must run where one exists.
type unsupportedAuthenticator struct{}

func (unsupportedAuthenticator) Create(context.Context, protocol.CredentialCreation) (credential.Credential, error) {
	return credential.Credential{}, apperrors.New(apperrors.CodeCeremonyUnsupported, "no platform authenticator available")
}

func (unsupportedAuthenticator) Get(context.Context, protocol.CredentialAssertion) (credential.Credential, error) {
	return credential.Credential{}, apperrors.New(apperrors.CodeCeremonyUnsupported, "no platform authenticator available")
}

// Run dispatches the wallet client subcommand.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWalletCLI, func(context.Context) error {
		return run(ctx, cfg, out)
	})
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	return runWith(ctx, cfg, out, unsupportedAuthenticator{})
}

// runWith dispatches subcommands over the given authenticator. Ceremony
// subcommands (create, connect, send) work only when an authenticator capable
// of running them is injected; the default headless one rejects ceremonies.
func runWith(ctx context.Context, cfg Config, out io.Writer, auth credential.Authenticator) error {
	credCfg := credential.LoadConfigFromEnv()
	if strings.TrimSpace(cfg.CachePath) != "" {
		credCfg.CachePath = cfg.CachePath
	}
	credentials, err := credential.NewManager(credCfg, auth)
	if err != nil {
		return fmt.Errorf("build credential manager: %w", err)
	}
	client, err := clientwallet.NewClient(clientwallet.Config{
		ServerURL: cfg.ServerURL,
		StatePath: cfg.StatePath,
	}, credentials)
	if err != nil {
		return fmt.Errorf("build wallet client: %w", err)
	}

	if len(cfg.Args) == 0 {
		return fmt.Errorf("usage: walletcli [flags] <create|connect|account|balance|send|history|disconnect>")
	}
	switch cfg.Args[0] {
	case "create":
		if len(cfg.Args) != 2 {
			return fmt.Errorf("usage: walletcli create <username>")
		}
		account, err := client.CreateAccount(ctx, cfg.Args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", account.Username, account.Address)
		return nil
	case "connect":
		account, recovered, err := client.ConnectAccount(ctx)
		if err != nil {
			return err
		}
		if recovered {
			fmt.Fprintln(out, "recovered account")
		}
		fmt.Fprintf(out, "%s\t%s\n", account.Username, account.Address)
		return nil
	case "send":
		if len(cfg.Args) != 3 {
			return fmt.Errorf("usage: walletcli send <to> <amount>")
		}
		record, err := client.Send(ctx, cfg.Args[1], cfg.Args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", record.Hash, record.ExplorerURL)
		return nil
	case "account":
		if account, ok := client.Account(); ok {
			fmt.Fprintf(out, "%s\t%s\n", account.Username, account.Address)
			return nil
		}
		// No registered account yet; show the local display address when a
		// credential is cached.
		address, err := client.DisplayAddress()
		if err != nil {
			return fmt.Errorf("no account connected")
		}
		fmt.Fprintf(out, "(local)\t%s\n", address)
		return nil
	case "balance":
		balance, symbol, err := client.Balance(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", balance, symbol)
		return nil
	case "history":
		for _, record := range client.History() {
			fmt.Fprintf(out, "%s\t%s -> %s\t%s\t%s\n",
				record.Timestamp.Format(time.RFC3339), record.From, record.To, record.Value, record.Hash)
		}
		return nil
	case "disconnect":
		return client.Disconnect()
	default:
		return fmt.Errorf("unknown subcommand %q", cfg.Args[0])
	}
}
