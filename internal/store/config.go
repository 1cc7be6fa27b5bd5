package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type ConfigStore struct {
	db *sqlx.DB
}

func (s *ConfigStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM system_config WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *ConfigStore) Set(ctx context.Context, key, value, description string) error {
	query := `
	INSERT INTO system_config (key, value, description, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, query, key, value, description, time.Now().UTC())
	return err
}
