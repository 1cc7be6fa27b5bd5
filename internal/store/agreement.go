package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

type AgreementStore struct {
	db *sqlx.DB
}

// AgreementWithTotals is an agreement plus line-item aggregates, used by the
// read projections.
type AgreementWithTotals struct {
	Agreement
	TotalItems int     `db:"total_items"`
	TotalValue float64 `db:"total_value"`
}

// ActiveFilter restricts the active-agreement listing to a days-to-expiry
// band. Ref is the reference date for "active"; Min/MaxDays bound the window
// (nil means unbounded on that side).
type ActiveFilter struct {
	Ref     time.Time
	MinDays *int
	MaxDays *int
	Limit   int
}

const agreementTotalsSelect = `
	SELECT a.*,
	       COUNT(ai.id) AS total_items,
	       COALESCE(SUM(ai.total_value), 0) AS total_value
	FROM agreement a
	LEFT JOIN agreement_item ai ON ai.agreement_id = a.id`

func (s *AgreementStore) GetByControlNumber(ctx context.Context, controlNumber string) (*Agreement, error) {
	var agreement Agreement
	err := s.db.GetContext(ctx, &agreement,
		`SELECT * FROM agreement WHERE control_number = $1`, controlNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (s *AgreementStore) GetByID(ctx context.Context, id int64) (*Agreement, error) {
	var agreement Agreement
	err := s.db.GetContext(ctx, &agreement, `SELECT * FROM agreement WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (s *AgreementStore) Insert(ctx context.Context, agreement *Agreement) error {
	query := `INSERT INTO agreement (
		agreement_number,
		managing_unit_code,
		managing_unit_name,
		control_number,
		purchase_control_number,
		purchase_id,
		purchase_number,
		purchase_year,
		purchase_modality_code,
		purchase_modality_name,
		signing_date,
		validity_start,
		validity_end,
		inserted_at,
		updated_at
	) VALUES (
		:agreement_number,
		:managing_unit_code,
		:managing_unit_name,
		:control_number,
		:purchase_control_number,
		:purchase_id,
		:purchase_number,
		:purchase_year,
		:purchase_modality_code,
		:purchase_modality_name,
		:signing_date,
		:validity_start,
		:validity_end,
		:inserted_at,
		:updated_at
	) RETURNING id`

	rows, err := s.db.NamedQueryContext(ctx, query, agreement)
	if err != nil {
		return err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&agreement.ID); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *AgreementStore) Update(ctx context.Context, agreement *Agreement) error {
	query := `UPDATE agreement SET
		agreement_number = :agreement_number,
		managing_unit_code = :managing_unit_code,
		managing_unit_name = :managing_unit_name,
		purchase_control_number = :purchase_control_number,
		purchase_id = :purchase_id,
		purchase_number = :purchase_number,
		purchase_year = :purchase_year,
		purchase_modality_code = :purchase_modality_code,
		purchase_modality_name = :purchase_modality_name,
		signing_date = :signing_date,
		validity_start = :validity_start,
		validity_end = :validity_end,
		updated_at = :updated_at
	WHERE id = :id`

	_, err := s.db.NamedExecContext(ctx, query, agreement)
	return err
}

func (s *AgreementStore) MaxValidityStart(ctx context.Context) (*time.Time, error) {
	var max sql.NullTime
	if err := s.db.GetContext(ctx, &max, `SELECT MAX(validity_start) FROM agreement`); err != nil {
		return nil, err
	}
	if !max.Valid {
		return nil, nil
	}
	return &max.Time, nil
}

func (s *AgreementStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM agreement`)
	return count, err
}

func (s *AgreementStore) ListActive(ctx context.Context, f ActiveFilter) ([]AgreementWithTotals, error) {
	query := agreementTotalsSelect + `
	WHERE a.validity_end > $1`
	args := []interface{}{f.Ref}

	if f.MinDays != nil {
		args = append(args, f.Ref.AddDate(0, 0, *f.MinDays))
		query += ` AND a.validity_end > $` + strconv.Itoa(len(args))
	}
	if f.MaxDays != nil {
		args = append(args, f.Ref.AddDate(0, 0, *f.MaxDays))
		query += ` AND a.validity_end <= $` + strconv.Itoa(len(args))
	}

	args = append(args, f.Limit)
	query += `
	GROUP BY a.id
	ORDER BY a.validity_end ASC
	LIMIT $` + strconv.Itoa(len(args))

	agreements := []AgreementWithTotals{}
	err := s.db.SelectContext(ctx, &agreements, query, args...)
	return agreements, err
}

func (s *AgreementStore) ListRecent(ctx context.Context, since time.Time) ([]AgreementWithTotals, error) {
	query := agreementTotalsSelect + `
	WHERE a.validity_start >= $1
	GROUP BY a.id
	ORDER BY a.validity_start DESC`

	agreements := []AgreementWithTotals{}
	err := s.db.SelectContext(ctx, &agreements, query, since)
	return agreements, err
}

func (s *AgreementStore) ListRecentlyExpired(ctx context.Context, ref, since time.Time) ([]AgreementWithTotals, error) {
	query := agreementTotalsSelect + `
	WHERE a.validity_end < $1 AND a.validity_end >= $2
	GROUP BY a.id
	ORDER BY a.validity_end DESC`

	agreements := []AgreementWithTotals{}
	err := s.db.SelectContext(ctx, &agreements, query, ref, since)
	return agreements, err
}

func (s *AgreementStore) Search(ctx context.Context, term string, limit int) ([]AgreementWithTotals, error) {
	query := agreementTotalsSelect + `
	WHERE a.agreement_number ILIKE $1
	   OR a.id IN (
		SELECT DISTINCT agreement_id FROM agreement_item
		WHERE supplier_name ILIKE $1
	   )
	GROUP BY a.id
	ORDER BY a.validity_end DESC
	LIMIT $2`

	agreements := []AgreementWithTotals{}
	err := s.db.SelectContext(ctx, &agreements, query, "%"+term+"%", limit)
	return agreements, err
}

func (s *AgreementStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM agreement`)
	return err
}
