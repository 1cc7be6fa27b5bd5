package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type LineItemStore struct {
	db *sqlx.DB
}

// LineItemDetail is a line item joined with its catalog entry, used by the
// agreement detail projection.
type LineItemDetail struct {
	ItemCode            int64    `db:"item_code" json:"itemCode"`
	ItemType            string   `db:"item_type" json:"itemType"`
	OriginalDescription *string  `db:"original_description" json:"originalDescription"`
	SupplierName        *string  `db:"supplier_name" json:"supplier"`
	UnitValue           *float64 `db:"unit_value" json:"unitValue"`
	HomologatedQty      *float64 `db:"homologated_qty" json:"homologatedQty"`
	CommittedQty        *float64 `db:"committed_qty" json:"committedQty"`
	Excluded            bool     `db:"excluded" json:"excluded"`
}

// ItemAgreementRow is one agreement carrying a given catalog item, with the
// line-level commercial terms, used by the item detail projection.
type ItemAgreementRow struct {
	AgreementID         int64     `db:"agreement_id" json:"agreementId"`
	AgreementNumber     string    `db:"agreement_number" json:"agreementNumber"`
	ControlNumber       string    `db:"control_number" json:"-"`
	ValidityEnd         time.Time `db:"validity_end" json:"validityEnd"`
	SupplierName        *string   `db:"supplier_name" json:"supplier"`
	UnitValue           *float64  `db:"unit_value" json:"unitValue"`
	OriginalDescription *string   `db:"original_description" json:"originalDescription"`
	Excluded            bool      `db:"excluded" json:"excluded"`
	TotalItems          int       `db:"total_items" json:"totalItems"`
	TotalValue          float64   `db:"total_value" json:"totalValue"`
}

func (s *LineItemStore) Get(ctx context.Context, agreementID, itemCode int64, lineNumber string) (*AgreementItem, error) {
	var item AgreementItem
	err := s.db.GetContext(ctx, &item,
		`SELECT * FROM agreement_item
		 WHERE agreement_id = $1 AND item_code = $2 AND line_number = $3`,
		agreementID, itemCode, lineNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *LineItemStore) Insert(ctx context.Context, item *AgreementItem) error {
	query := `INSERT INTO agreement_item (
		agreement_id,
		item_code,
		line_number,
		original_description,
		homologated_qty,
		supplier_ranking,
		supplier_ni,
		supplier_name,
		winner_homologated_qty,
		unit_value,
		total_value,
		max_adhesion_qty,
		committed_qty,
		best_discount_pct,
		sicaf_status,
		excluded,
		excluded_at
	) VALUES (
		:agreement_id,
		:item_code,
		:line_number,
		:original_description,
		:homologated_qty,
		:supplier_ranking,
		:supplier_ni,
		:supplier_name,
		:winner_homologated_qty,
		:unit_value,
		:total_value,
		:max_adhesion_qty,
		:committed_qty,
		:best_discount_pct,
		:sicaf_status,
		:excluded,
		:excluded_at
	) RETURNING id`

	rows, err := s.db.NamedQueryContext(ctx, query, item)
	if err != nil {
		return err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&item.ID); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Update overwrites every commercial field from the current payload; the
// freshest crawl is ground truth for mutable terms.
func (s *LineItemStore) Update(ctx context.Context, item *AgreementItem) error {
	query := `UPDATE agreement_item SET
		original_description = :original_description,
		homologated_qty = :homologated_qty,
		supplier_ranking = :supplier_ranking,
		supplier_ni = :supplier_ni,
		supplier_name = :supplier_name,
		winner_homologated_qty = :winner_homologated_qty,
		unit_value = :unit_value,
		total_value = :total_value,
		max_adhesion_qty = :max_adhesion_qty,
		committed_qty = :committed_qty,
		best_discount_pct = :best_discount_pct,
		sicaf_status = :sicaf_status,
		excluded = :excluded,
		excluded_at = :excluded_at
	WHERE id = :id`

	_, err := s.db.NamedExecContext(ctx, query, item)
	return err
}

func (s *LineItemStore) ListByAgreement(ctx context.Context, agreementID int64) ([]LineItemDetail, error) {
	query := `
	SELECT ai.item_code, i.item_type, ai.original_description, ai.supplier_name,
	       ai.unit_value, ai.homologated_qty, ai.committed_qty, ai.excluded
	FROM agreement_item ai
	JOIN catalog_item i ON i.item_code = ai.item_code
	WHERE ai.agreement_id = $1
	ORDER BY ai.line_number, ai.item_code`

	items := []LineItemDetail{}
	err := s.db.SelectContext(ctx, &items, query, agreementID)
	return items, err
}

func (s *LineItemStore) ListByItem(ctx context.Context, itemCode int64) ([]ItemAgreementRow, error) {
	query := `
	SELECT a.id AS agreement_id, a.agreement_number, a.control_number, a.validity_end,
	       ai.supplier_name, ai.unit_value, ai.original_description, ai.excluded,
	       t.total_items, t.total_value
	FROM agreement_item ai
	JOIN agreement a ON a.id = ai.agreement_id
	JOIN LATERAL (
		SELECT COUNT(*) AS total_items, COALESCE(SUM(total_value), 0) AS total_value
		FROM agreement_item WHERE agreement_id = a.id
	) t ON true
	WHERE ai.item_code = $1
	ORDER BY a.validity_end DESC`

	rows := []ItemAgreementRow{}
	err := s.db.SelectContext(ctx, &rows, query, itemCode)
	return rows, err
}

func (s *LineItemStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM agreement_item`)
	return err
}
