package credential

import (
	"github.com/caarlos0/env/v11"
)

// Config controls WebAuthn relying party settings for the client.
type Config struct {
	RPDisplayName string   `env:"PASSKEY_WALLET_RP_DISPLAY_NAME" envDefault:"Sonic Passkey Wallet"`
	RPID          string   `env:"PASSKEY_WALLET_RP_ID"           envDefault:"localhost"`
	RPOrigins     []string `env:"PASSKEY_WALLET_RP_ORIGINS"      envSeparator:","`
	CachePath     string   `env:"PASSKEY_WALLET_CREDENTIAL_CACHE"`
}

// LoadConfigFromEnv returns credential manager configuration with defaults.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{
			RPDisplayName: "Sonic Passkey Wallet",
			RPID:          "localhost",
			RPOrigins:     []string{"http://localhost:3000"},
		}
	}
	if len(cfg.RPOrigins) == 0 {
		cfg.RPOrigins = []string{"http://localhost:3000"}
	}
	return cfg
}
