package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type settingsStorePG struct {
	pool *pgxpool.Pool
}

// NewSettingsStorePG returns a SettingsStore backed by the settings table.
func NewSettingsStorePG(pool *pgxpool.Pool) SettingsStore {
	return &settingsStorePG{pool: pool}
}

func (s *settingsStorePG) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT setting_value FROM settings WHERE setting_key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *settingsStorePG) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (setting_key, setting_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (setting_key)
		DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = NOW()`,
		key, value,
	)
	return err
}
