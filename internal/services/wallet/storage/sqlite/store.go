// Package sqlite provides a SQLite-backed account store implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	sqlitemigrate "github.com/soniclabs/passkey-wallet/internal/platform/storage/sqlitemigrate"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/account"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/storage"
	"github.com/soniclabs/passkey-wallet/internal/services/wallet/storage/sqlite/migrations"
)

// Store persists account registry state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite account store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutAccount inserts or overwrites the record for its credential id. The
// insertion position is assigned once and survives overwrites so ListAccounts
// keeps first-insertion order.
func (s *Store) PutAccount(ctx context.Context, record account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.CredentialID) == "" {
		return account.ErrEmptyCredentialID
	}
	if strings.TrimSpace(record.Address) == "" {
		return fmt.Errorf("address is required")
	}

	recovered := 0
	if record.Recovered {
		recovered = 1
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO accounts (
		   credential_id,
		   address,
		   username,
		   created_at,
		   last_access,
		   recovered,
		   position
		 ) VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM accounts))
		 ON CONFLICT(credential_id) DO UPDATE SET
		   address = excluded.address,
		   username = excluded.username,
		   created_at = excluded.created_at,
		   last_access = excluded.last_access,
		   recovered = excluded.recovered`,
		record.CredentialID,
		record.Address,
		record.Username,
		toMillis(record.CreatedAt),
		toMillis(record.LastAccess),
		recovered,
	)
	if err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

// GetAccount returns the record for a credential id.
func (s *Store) GetAccount(ctx context.Context, credentialID string) (account.Account, error) {
	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	if s == nil || s.sqlDB == nil {
		return account.Account{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(credentialID) == "" {
		return account.Account{}, account.ErrEmptyCredentialID
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT credential_id, address, username, created_at, last_access, recovered
		 FROM accounts WHERE credential_id = ?`,
		credentialID,
	)
	record, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, storage.ErrNotFound
		}
		return account.Account{}, fmt.Errorf("get account: %w", err)
	}
	return record, nil
}

// TouchAccount bumps the last-access timestamp for a known credential id.
func (s *Store) TouchAccount(ctx context.Context, credentialID string, lastAccess time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(credentialID) == "" {
		return account.ErrEmptyCredentialID
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE accounts SET last_access = ? WHERE credential_id = ?`,
		toMillis(lastAccess),
		credentialID,
	)
	if err != nil {
		return fmt.Errorf("touch account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch account rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListAccounts returns every record in first-insertion order.
func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT credential_id, address, username, created_at, last_access, recovered
		 FROM accounts ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var records []account.Account
	for rows.Next() {
		record, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (account.Account, error) {
	var (
		record     account.Account
		createdAt  int64
		lastAccess int64
		recovered  int
	)
	if err := row.Scan(
		&record.CredentialID,
		&record.Address,
		&record.Username,
		&createdAt,
		&lastAccess,
		&recovered,
	); err != nil {
		return account.Account{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.LastAccess = fromMillis(lastAccess)
	record.Recovered = recovered != 0
	return record, nil
}
