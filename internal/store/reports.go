package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type ReportStore struct {
	db *sqlx.DB
}

// DashboardSummary aggregates the headline counters shown on the dashboard.
type DashboardSummary struct {
	TotalAgreements       int `db:"total_agreements" json:"totalAgreements"`
	ActiveAgreements      int `db:"active_agreements" json:"activeAgreements"`
	ExpiredAgreements     int `db:"expired_agreements" json:"expiredAgreements"`
	CriticalAgreements    int `db:"critical_agreements" json:"criticalAgreements"`
	WarningAgreements     int `db:"warning_agreements" json:"warningAgreements"`
	CautionAgreements     int `db:"caution_agreements" json:"cautionAgreements"`
	TotalItems            int `db:"total_items" json:"totalItems"`
	ItemsWithAgreement    int `db:"items_with_agreement" json:"itemsWithActiveAgreement"`
	ItemsWithoutAgreement int `db:"items_without_agreement" json:"itemsWithoutActiveAgreement"`
}

type MonthlyCount struct {
	Month string `db:"month" json:"month"`
	Count int    `db:"count" json:"count"`
}

func (s *ReportStore) DashboardSummary(ctx context.Context, ref time.Time) (DashboardSummary, error) {
	var summary DashboardSummary

	agreementQuery := `
	SELECT
		COUNT(*) AS total_agreements,
		COUNT(*) FILTER (WHERE validity_end > $1) AS active_agreements,
		COUNT(*) FILTER (WHERE validity_end <= $1) AS expired_agreements,
		COUNT(*) FILTER (WHERE validity_end > $1 AND validity_end <= $1 + INTERVAL '30 days') AS critical_agreements,
		COUNT(*) FILTER (WHERE validity_end > $1 + INTERVAL '30 days' AND validity_end <= $1 + INTERVAL '60 days') AS warning_agreements,
		COUNT(*) FILTER (WHERE validity_end > $1 + INTERVAL '60 days' AND validity_end <= $1 + INTERVAL '120 days') AS caution_agreements
	FROM agreement`

	if err := s.db.GetContext(ctx, &summary, agreementQuery, ref); err != nil {
		return summary, err
	}

	itemQuery := `
	SELECT
		COUNT(*) AS total_items,
		COUNT(*) FILTER (WHERE covered) AS items_with_agreement,
		COUNT(*) FILTER (WHERE NOT covered) AS items_without_agreement
	FROM (
		SELECT i.item_code,
		       EXISTS (
		           SELECT 1 FROM agreement_item ai
		           JOIN agreement a ON a.id = ai.agreement_id
		           WHERE ai.item_code = i.item_code AND a.validity_end > $1
		       ) AS covered
		FROM catalog_item i
	) coverage`

	var items struct {
		TotalItems            int `db:"total_items"`
		ItemsWithAgreement    int `db:"items_with_agreement"`
		ItemsWithoutAgreement int `db:"items_without_agreement"`
	}
	if err := s.db.GetContext(ctx, &items, itemQuery, ref); err != nil {
		return summary, err
	}
	summary.TotalItems = items.TotalItems
	summary.ItemsWithAgreement = items.ItemsWithAgreement
	summary.ItemsWithoutAgreement = items.ItemsWithoutAgreement

	return summary, nil
}

// MonthlyActive counts agreements in force during each of the last n months,
// newest month last.
func (s *ReportStore) MonthlyActive(ctx context.Context, months int) ([]MonthlyCount, error) {
	query := `
	SELECT to_char(m, 'YYYY-MM') AS month,
	       (SELECT COUNT(*) FROM agreement a
	        WHERE a.validity_start <= (m + INTERVAL '1 month' - INTERVAL '1 day')
	          AND a.validity_end >= m) AS count
	FROM generate_series(
		date_trunc('month', now()) - ($1 - 1) * INTERVAL '1 month',
		date_trunc('month', now()),
		INTERVAL '1 month'
	) AS m
	ORDER BY m`

	counts := []MonthlyCount{}
	err := s.db.SelectContext(ctx, &counts, query, months)
	return counts, err
}
