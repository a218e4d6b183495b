package config

import "testing"

type sampleConfig struct {
	Addr    string `env:"PASSKEY_WALLET_TEST_ADDR" envDefault:"localhost:9000"`
	ChainID uint64 `env:"PASSKEY_WALLET_TEST_CHAIN_ID" envDefault:"14601"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg sampleConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "localhost:9000" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, "localhost:9000")
	}
	if cfg.ChainID != 14601 {
		t.Fatalf("chain id = %d, want %d", cfg.ChainID, 14601)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("PASSKEY_WALLET_TEST_ADDR", "0.0.0.0:3000")
	t.Setenv("PASSKEY_WALLET_TEST_CHAIN_ID", "1")

	var cfg sampleConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "0.0.0.0:3000" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, "0.0.0.0:3000")
	}
	if cfg.ChainID != 1 {
		t.Fatalf("chain id = %d, want %d", cfg.ChainID, 1)
	}
}
