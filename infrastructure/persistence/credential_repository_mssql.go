package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
)

type CredentialRepositoryMSSQL struct{ db *sql.DB }

func NewCredentialRepositoryMSSQL(db *sql.DB) *CredentialRepositoryMSSQL {
	return &CredentialRepositoryMSSQL{db: db}
}

// EnsureCredentialSchemaMSSQL creates the credentials table for SQL Server if it does not exist.
func EnsureCredentialSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.credentials') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[credentials] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        owner_id NVARCHAR(128) NOT NULL,
        provider NVARCHAR(64) NOT NULL,
        account_id NVARCHAR(128) NOT NULL,
        account_name NVARCHAR(255) NULL,
        page_id NVARCHAR(128) NULL,
        access_secret NVARCHAR(MAX) NOT NULL,
        refresh_secret NVARCHAR(MAX) NULL,
        expires_at DATETIME2 NULL,
        scopes NVARCHAR(MAX) NOT NULL,
        active BIT NOT NULL DEFAULT 1,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL,
        disconnected_at DATETIME2 NULL
    );
    CREATE UNIQUE INDEX UX_credentials_owner_provider ON dbo.[credentials](owner_id, provider);
END`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create credentials (mssql): %w", err)
	}

	addIfMissing := func(column, alter string) error {
		q := fmt.Sprintf(`IF COL_LENGTH('dbo.credentials', '%s') IS NULL BEGIN %s END`, column, alter)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure column credentials.%s: %w", column, err)
		}
		return nil
	}
	if err := addIfMissing("account_name", "ALTER TABLE dbo.[credentials] ADD account_name NVARCHAR(255) NULL"); err != nil {
		return err
	}
	return addIfMissing("disconnected_at", "ALTER TABLE dbo.[credentials] ADD disconnected_at DATETIME2 NULL")
}

func (r *CredentialRepositoryMSSQL) Upsert(ctx context.Context, c *model.Credential) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.Active = true
	c.DisconnectedAt = nil
	// MERGE upsert by (owner_id, provider)
	q := `MERGE dbo.[credentials] AS target
USING (VALUES (@p1, @p2)) AS src(owner_id, provider)
ON target.owner_id = src.owner_id AND target.provider = src.provider
WHEN MATCHED THEN UPDATE SET
    account_id=@p3,
    account_name=@p4,
    page_id=@p5,
    access_secret=@p6,
    refresh_secret=@p7,
    expires_at=@p8,
    scopes=@p9,
    active=1,
    disconnected_at=NULL,
    updated_at=@p11
WHEN NOT MATCHED THEN
    INSERT (owner_id, provider, account_id, account_name, page_id, access_secret, refresh_secret, expires_at, scopes, active, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,1,@p10,@p11)
OUTPUT inserted.id;`
	row := r.db.QueryRowContext(ctx, q,
		c.OwnerID, string(c.Provider),
		c.AccountID,
		nullString(c.AccountName),
		nullString(c.PageID),
		c.AccessSecret,
		nullString(c.RefreshSecret),
		nullTime(c.ExpiresAt),
		joinScopes(c.Scopes),
		c.CreatedAt,
		c.UpdatedAt,
	)
	return row.Scan(&c.ID)
}

func (r *CredentialRepositoryMSSQL) GetActive(ctx context.Context, ownerID string, provider model.Provider) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM dbo.[credentials] WHERE owner_id=@p1 AND provider=@p2 AND active=1`, ownerID, string(provider))
	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return cred, err
}

func (r *CredentialRepositoryMSSQL) Save(ctx context.Context, c *model.Credential) error {
	c.UpdatedAt = time.Now().UTC()
	q := `UPDATE dbo.[credentials] SET
    account_id=@p2, account_name=@p3, page_id=@p4, access_secret=@p5, refresh_secret=@p6,
    expires_at=@p7, scopes=@p8, active=@p9, updated_at=@p10, disconnected_at=@p11
WHERE id=@p1`
	res, err := r.db.ExecContext(ctx, q,
		c.ID, c.AccountID, nullString(c.AccountName), nullString(c.PageID), c.AccessSecret,
		nullString(c.RefreshSecret), nullTime(c.ExpiresAt), joinScopes(c.Scopes), c.Active,
		c.UpdatedAt, nullTime(c.DisconnectedAt))
	if err != nil {
		return err
	}
	return expectOneRow(res, c.ID)
}

func (r *CredentialRepositoryMSSQL) Deactivate(ctx context.Context, ownerID string, provider model.Provider) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `UPDATE dbo.[credentials] SET active=0, disconnected_at=@p3, updated_at=@p3 WHERE owner_id=@p1 AND provider=@p2 AND active=1`,
		ownerID, string(provider), now)
	return err
}
