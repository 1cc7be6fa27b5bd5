package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Storage struct {
	Agreements interface {
		GetByControlNumber(ctx context.Context, controlNumber string) (*Agreement, error)
		GetByID(ctx context.Context, id int64) (*Agreement, error)
		Insert(ctx context.Context, agreement *Agreement) error
		Update(ctx context.Context, agreement *Agreement) error
		MaxValidityStart(ctx context.Context) (*time.Time, error)
		Count(ctx context.Context) (int, error)
		ListActive(ctx context.Context, f ActiveFilter) ([]AgreementWithTotals, error)
		ListRecent(ctx context.Context, since time.Time) ([]AgreementWithTotals, error)
		ListRecentlyExpired(ctx context.Context, ref, since time.Time) ([]AgreementWithTotals, error)
		Search(ctx context.Context, term string, limit int) ([]AgreementWithTotals, error)
		DeleteAll(ctx context.Context) error
	}

	Items interface {
		GetByCode(ctx context.Context, itemCode int64) (*CatalogItem, error)
		GetByCodes(ctx context.Context, itemCodes []int64, ref time.Time) ([]ItemWithAgreementCounts, error)
		Insert(ctx context.Context, item *CatalogItem) error
		SetPrimaryDescription(ctx context.Context, itemCode int64, description string) error
		ListWithoutActiveAgreement(ctx context.Context, ref time.Time, limit int) ([]ItemWithoutAgreement, error)
		ListMissingPrimaryDescription(ctx context.Context) ([]int64, error)
		DeleteAll(ctx context.Context) error
	}

	Descriptions interface {
		Exists(ctx context.Context, itemCode int64, description string) (bool, error)
		Insert(ctx context.Context, desc *ItemDescription) error
		ListByItem(ctx context.Context, itemCode int64) ([]string, error)
		ListAll(ctx context.Context) ([]ItemDescription, error)
		OldestForItem(ctx context.Context, itemCode int64) (string, error)
		DeleteAll(ctx context.Context) error
	}

	LineItems interface {
		Get(ctx context.Context, agreementID, itemCode int64, lineNumber string) (*AgreementItem, error)
		Insert(ctx context.Context, item *AgreementItem) error
		Update(ctx context.Context, item *AgreementItem) error
		ListByAgreement(ctx context.Context, agreementID int64) ([]LineItemDetail, error)
		ListByItem(ctx context.Context, itemCode int64) ([]ItemAgreementRow, error)
		DeleteAll(ctx context.Context) error
	}

	Config interface {
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value, description string) error
	}

	Reports interface {
		DashboardSummary(ctx context.Context, ref time.Time) (DashboardSummary, error)
		MonthlyActive(ctx context.Context, months int) ([]MonthlyCount, error)
	}
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		Agreements:   &AgreementStore{db: db},
		Items:        &ItemStore{db: db},
		Descriptions: &DescriptionStore{db: db},
		LineItems:    &LineItemStore{db: db},
		Config:       &ConfigStore{db: db},
		Reports:      &ReportStore{db: db},
	}
}
