package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type DescriptionStore struct {
	db *sqlx.DB
}

func (s *DescriptionStore) Exists(ctx context.Context, itemCode int64, description string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (
			SELECT 1 FROM item_description
			WHERE item_code = $1 AND description = $2
		)`, itemCode, description)
	return exists, err
}

func (s *DescriptionStore) Insert(ctx context.Context, desc *ItemDescription) error {
	query := `INSERT INTO item_description (
		item_code,
		description,
		recorded_at
	) VALUES (
		:item_code,
		:description,
		:recorded_at
	)`

	_, err := s.db.NamedExecContext(ctx, query, desc)
	return err
}

func (s *DescriptionStore) ListByItem(ctx context.Context, itemCode int64) ([]string, error) {
	descriptions := []string{}
	err := s.db.SelectContext(ctx, &descriptions,
		`SELECT description FROM item_description WHERE item_code = $1 ORDER BY id`, itemCode)
	return descriptions, err
}

func (s *DescriptionStore) ListAll(ctx context.Context) ([]ItemDescription, error) {
	descriptions := []ItemDescription{}
	err := s.db.SelectContext(ctx, &descriptions,
		`SELECT * FROM item_description ORDER BY item_code, id`)
	return descriptions, err
}

// OldestForItem returns the first description ever recorded for an item, or
// "" when the item has none.
func (s *DescriptionStore) OldestForItem(ctx context.Context, itemCode int64) (string, error) {
	var description string
	err := s.db.GetContext(ctx, &description,
		`SELECT description FROM item_description
		 WHERE item_code = $1 ORDER BY id LIMIT 1`, itemCode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return description, err
}

func (s *DescriptionStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM item_description`)
	return err
}
