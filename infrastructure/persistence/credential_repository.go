package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-publisher/domain/model"
)

const credentialColumns = `id, owner_id, provider, account_id, account_name, page_id, access_secret, refresh_secret, expires_at, scopes, active, created_at, updated_at, disconnected_at`

// CredentialRepository stores provider credentials in PostgreSQL. Secrets are
// persisted as vault envelopes and never decrypted here.
type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// EnsureCredentialSchema creates the credentials table and its owner/provider index.
func EnsureCredentialSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS credentials (
			id BIGSERIAL PRIMARY KEY,
			owner_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			account_id TEXT NOT NULL,
			account_name TEXT NULL,
			page_id TEXT NULL,
			access_secret TEXT NOT NULL,
			refresh_secret TEXT NULL,
			expires_at TIMESTAMPTZ NULL,
			scopes TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			disconnected_at TIMESTAMPTZ NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_credentials_owner_provider ON credentials(owner_id, provider)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure credentials schema: %w", err)
		}
	}

	// columns added after the first release
	checks := []struct {
		column string
		ddl    string
	}{
		{"account_name", "ALTER TABLE credentials ADD COLUMN account_name TEXT NULL"},
		{"disconnected_at", "ALTER TABLE credentials ADD COLUMN disconnected_at TIMESTAMPTZ NULL"},
	}
	for _, c := range checks {
		exists, err := columnExists(ctx, db, "credentials", c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column credentials.%s failed: %w", c.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Upsert inserts a credential or replaces the one the owner already has for the
// provider, reactivating it.
func (r *CredentialRepository) Upsert(ctx context.Context, c *model.Credential) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.Active = true
	c.DisconnectedAt = nil
	q := `INSERT INTO credentials (owner_id, provider, account_id, account_name, page_id, access_secret, refresh_secret, expires_at, scopes, active, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,TRUE,$10,$11)
		  ON CONFLICT (owner_id, provider) DO UPDATE SET
			account_id=EXCLUDED.account_id,
			account_name=EXCLUDED.account_name,
			page_id=EXCLUDED.page_id,
			access_secret=EXCLUDED.access_secret,
			refresh_secret=EXCLUDED.refresh_secret,
			expires_at=EXCLUDED.expires_at,
			scopes=EXCLUDED.scopes,
			active=TRUE,
			disconnected_at=NULL,
			updated_at=EXCLUDED.updated_at
		  RETURNING id`
	row := r.db.QueryRowContext(ctx, q,
		c.OwnerID, string(c.Provider), c.AccountID, nullString(c.AccountName), nullString(c.PageID),
		c.AccessSecret, nullString(c.RefreshSecret), nullTime(c.ExpiresAt), joinScopes(c.Scopes),
		c.CreatedAt, c.UpdatedAt)
	return row.Scan(&c.ID)
}

func (r *CredentialRepository) GetActive(ctx context.Context, ownerID string, provider model.Provider) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE owner_id=$1 AND provider=$2 AND active=TRUE`, ownerID, string(provider))
	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return cred, err
}

// Save writes every mutable column of the credential. Concurrent saves are last-write-wins.
func (r *CredentialRepository) Save(ctx context.Context, c *model.Credential) error {
	c.UpdatedAt = time.Now().UTC()
	q := `UPDATE credentials SET
			account_id=$2, account_name=$3, page_id=$4, access_secret=$5, refresh_secret=$6,
			expires_at=$7, scopes=$8, active=$9, updated_at=$10, disconnected_at=$11
		  WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q,
		c.ID, c.AccountID, nullString(c.AccountName), nullString(c.PageID), c.AccessSecret,
		nullString(c.RefreshSecret), nullTime(c.ExpiresAt), joinScopes(c.Scopes), c.Active,
		c.UpdatedAt, nullTime(c.DisconnectedAt))
	if err != nil {
		return err
	}
	return expectOneRow(res, c.ID)
}

// Deactivate soft-deletes the owner's credential; the row is kept for audit.
func (r *CredentialRepository) Deactivate(ctx context.Context, ownerID string, provider model.Provider) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `UPDATE credentials SET active=FALSE, disconnected_at=$3, updated_at=$3 WHERE owner_id=$1 AND provider=$2 AND active=TRUE`,
		ownerID, string(provider), now)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*model.Credential, error) {
	c := &model.Credential{}
	var provider, scopes string
	var accountName, pageID, refresh sql.NullString
	var exp, disconnected sql.NullTime
	if err := row.Scan(&c.ID, &c.OwnerID, &provider, &c.AccountID, &accountName, &pageID, &c.AccessSecret,
		&refresh, &exp, &scopes, &c.Active, &c.CreatedAt, &c.UpdatedAt, &disconnected); err != nil {
		return nil, err
	}
	c.Provider = model.Provider(provider)
	c.AccountName = fromNullString(accountName)
	c.PageID = fromNullString(pageID)
	c.RefreshSecret = fromNullString(refresh)
	c.ExpiresAt = fromNullTime(exp)
	c.DisconnectedAt = fromNullTime(disconnected)
	c.Scopes = splitScopes(scopes)
	return c, nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("credential %d not found", id)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func joinScopes(scopes []string) string { return strings.Join(scopes, ",") }

func splitScopes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
