package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ItemStore struct {
	db *sqlx.DB
}

// ItemWithAgreementCounts is a catalog item plus the number of agreements
// (active and expired) carrying it, used by the item search projection.
type ItemWithAgreementCounts struct {
	CatalogItem
	ActiveAgreements  int `db:"active_agreements"`
	ExpiredAgreements int `db:"expired_agreements"`
}

// ItemWithoutAgreement is a catalog item whose every agreement has expired.
type ItemWithoutAgreement struct {
	ItemCode           int64     `db:"item_code" json:"itemCode"`
	ItemType           string    `db:"item_type" json:"itemType"`
	PrimaryDescription *string   `db:"primary_description" json:"primaryDescription"`
	LastExpired        time.Time `db:"last_expired" json:"lastExpired"`
}

func (s *ItemStore) GetByCode(ctx context.Context, itemCode int64) (*CatalogItem, error) {
	var item CatalogItem
	err := s.db.GetContext(ctx, &item,
		`SELECT * FROM catalog_item WHERE item_code = $1`, itemCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *ItemStore) GetByCodes(ctx context.Context, itemCodes []int64, ref time.Time) ([]ItemWithAgreementCounts, error) {
	query := `
	SELECT i.*,
	       COUNT(DISTINCT ai.agreement_id) FILTER (WHERE a.validity_end >= $2) AS active_agreements,
	       COUNT(DISTINCT ai.agreement_id) FILTER (WHERE a.validity_end < $2) AS expired_agreements
	FROM catalog_item i
	LEFT JOIN agreement_item ai ON ai.item_code = i.item_code
	LEFT JOIN agreement a ON a.id = ai.agreement_id
	WHERE i.item_code = ANY($1)
	GROUP BY i.item_code`

	items := []ItemWithAgreementCounts{}
	err := s.db.SelectContext(ctx, &items, query, pq.Array(itemCodes), ref)
	return items, err
}

func (s *ItemStore) Insert(ctx context.Context, item *CatalogItem) error {
	query := `INSERT INTO catalog_item (
		item_code,
		item_type,
		primary_description,
		pdm_code,
		pdm_name,
		created_at
	) VALUES (
		:item_code,
		:item_type,
		:primary_description,
		:pdm_code,
		:pdm_name,
		:created_at
	)`

	_, err := s.db.NamedExecContext(ctx, query, item)
	return err
}

// SetPrimaryDescription backfills the primary description only while it is
// still empty; the first description observed stays authoritative.
func (s *ItemStore) SetPrimaryDescription(ctx context.Context, itemCode int64, description string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE catalog_item SET primary_description = $2
		 WHERE item_code = $1 AND (primary_description IS NULL OR primary_description = '')`,
		itemCode, description)
	return err
}

func (s *ItemStore) ListWithoutActiveAgreement(ctx context.Context, ref time.Time, limit int) ([]ItemWithoutAgreement, error) {
	query := `
	SELECT i.item_code, i.item_type, i.primary_description,
	       MAX(a.validity_end) AS last_expired
	FROM catalog_item i
	JOIN agreement_item ai ON ai.item_code = i.item_code
	JOIN agreement a ON a.id = ai.agreement_id
	GROUP BY i.item_code
	HAVING MAX(a.validity_end) < $1
	ORDER BY MAX(a.validity_end) DESC
	LIMIT $2`

	items := []ItemWithoutAgreement{}
	err := s.db.SelectContext(ctx, &items, query, ref, limit)
	return items, err
}

func (s *ItemStore) ListMissingPrimaryDescription(ctx context.Context) ([]int64, error) {
	codes := []int64{}
	err := s.db.SelectContext(ctx, &codes,
		`SELECT item_code FROM catalog_item
		 WHERE primary_description IS NULL OR primary_description = ''`)
	return codes, err
}

func (s *ItemStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM catalog_item`)
	return err
}
