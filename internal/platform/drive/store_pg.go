package drive

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// credentialStorePG keeps the single drive credential row in Postgres.
// The table enforces id=1 so there is never more than one link.
type credentialStorePG struct {
	pool *pgxpool.Pool
}

func NewCredentialStorePG(pool *pgxpool.Pool) CredentialStore {
	return &credentialStorePG{pool: pool}
}

func (s *credentialStorePG) Load(ctx context.Context) (*Credentials, error) {
	var c Credentials
	err := s.pool.QueryRow(ctx, `
		SELECT access_token, refresh_token, scopes, expiry, updated_at
		FROM drive_credentials WHERE id = 1`).
		Scan(&c.AccessToken, &c.RefreshToken, &c.Scopes, &c.Expiry, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading drive credentials: %w", err)
	}
	return &c, nil
}

func (s *credentialStorePG) Save(ctx context.Context, creds *Credentials) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO drive_credentials (id, access_token, refresh_token, scopes, expiry, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			scopes = EXCLUDED.scopes,
			expiry = EXCLUDED.expiry,
			updated_at = EXCLUDED.updated_at`,
		creds.AccessToken, creds.RefreshToken, creds.Scopes, creds.Expiry, creds.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving drive credentials: %w", err)
	}
	return nil
}

func (s *credentialStorePG) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM drive_credentials WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("clearing drive credentials: %w", err)
	}
	return nil
}
