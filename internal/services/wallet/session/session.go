// Package session mints and verifies short-lived grants binding a passkey
// credential to its wallet address.
//
// A grant is not passkey assertion verification; it only proves the caller
// completed a create or retrieve round-trip recently, so the send endpoint
// can refuse cold requests when the deployment opts in.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/soniclabs/passkey-wallet/internal/platform/errors"
	"github.com/soniclabs/passkey-wallet/internal/platform/id"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
)

const issuer = "passkey-wallet"

// Config defines how session grants are minted and verified.
type Config struct {
	// Secret is the HMAC key. Grants are disabled when it is empty.
	Secret string `env:"PASSKEY_WALLET_SESSION_SECRET"`
	// Require makes the send endpoint reject requests without a valid grant.
	Require bool `env:"PASSKEY_WALLET_REQUIRE_SESSION" envDefault:"false"`
	// TTL bounds grant lifetime.
	TTL time.Duration `env:"PASSKEY_WALLET_SESSION_TTL" envDefault:"15m"`
}

// LoadConfigFromEnv reads session grant configuration.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse session env: %w", err)
	}
	if cfg.Require && strings.TrimSpace(cfg.Secret) == "" {
		return Config{}, fmt.Errorf("PASSKEY_WALLET_SESSION_SECRET is required when sessions are enforced")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	return cfg, nil
}

// Claims captures a validated session grant.
type Claims struct {
	CredentialID string
	Address      string
	ExpiresAt    time.Time
	IssuedAt     time.Time
	JWTID        string
}

// grantClaims is the internal claims type used for JWT parsing.
type grantClaims struct {
	jwt.RegisteredClaims
	CredentialID string `json:"credential_id"`
	Address      string `json:"address"`
}

// Minter issues and verifies session grants with a shared HMAC secret.
type Minter struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	newID  func() (string, error)
}

// NewMinter builds a minter from configuration. A nil minter is returned
// without error when no secret is configured; callers treat that as grants
// being disabled.
func NewMinter(cfg Config) (*Minter, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, nil
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Minter{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		newID:  id.NewID,
	}, nil
}

// Mint issues a grant binding credentialID to address.
func (m *Minter) Mint(credentialID, address string) (string, error) {
	if m == nil {
		return "", errors.New("session grants are not configured")
	}
	if err := account.ValidateCredentialID(credentialID); err != nil {
		return "", err
	}
	if err := account.ValidateAddress(address); err != nil {
		return "", err
	}
	jti, err := m.newID()
	if err != nil {
		return "", fmt.Errorf("generate grant id: %w", err)
	}

	now := m.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		CredentialID: credentialID,
		Address:      address,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign grant: %w", err)
	}
	return signed, nil
}

// Validate verifies a grant and checks it was minted for the expected
// credential id.
func (m *Minter) Validate(grant, expectedCredentialID string) (Claims, error) {
	if m == nil {
		return Claims{}, errors.New("session grants are not configured")
	}
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return Claims{}, apperrors.New(apperrors.CodeSessionInvalid, "session grant is required")
	}

	var parsed grantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer != issuer {
		return Claims{}, apperrors.New(apperrors.CodeSessionInvalid, "session grant issuer mismatch")
	}
	if parsed.ID == "" {
		return Claims{}, apperrors.New(apperrors.CodeSessionInvalid, "session grant jti is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeSessionInvalid, "session grant exp is required")
	}

	now := m.now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeSessionExpired, "session grant is expired")
	}

	if strings.TrimSpace(parsed.CredentialID) == "" || parsed.CredentialID != expectedCredentialID {
		return Claims{}, apperrors.New(apperrors.CodeSessionInvalid, "session grant credential mismatch")
	}

	claims := Claims{
		CredentialID: parsed.CredentialID,
		Address:      parsed.Address,
		ExpiresAt:    exp,
		JWTID:        parsed.ID,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeSessionInvalid, "session grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeSessionInvalid, "session grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeSessionInvalid, "session grant is invalid")
}
