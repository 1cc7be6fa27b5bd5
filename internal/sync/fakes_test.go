package sync

import (
	"context"
	stdsync "sync"
	"time"

	"atasapi/internal/logger"
	"atasapi/internal/store"
)

func testLogger() *logger.Logger {
	return logger.New(logger.LevelError)
}

func newFakeStorage() *store.Storage {
	return &store.Storage{
		Agreements:   &fakeAgreements{byControl: map[string]*store.Agreement{}},
		Items:        &fakeItems{byCode: map[int64]*store.CatalogItem{}},
		Descriptions: &fakeDescriptions{},
		LineItems:    &fakeLineItems{byKey: map[lineKey]*store.AgreementItem{}},
		Config:       &fakeConfig{values: map[string]string{}},
		Reports:      &fakeReports{},
	}
}

type fakeAgreements struct {
	mu        stdsync.Mutex
	byControl map[string]*store.Agreement
	nextID    int64
	insertErr error
	updates   int
}

func (f *fakeAgreements) GetByControlNumber(ctx context.Context, controlNumber string) (*store.Agreement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byControl[controlNumber]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAgreements) GetByID(ctx context.Context, id int64) (*store.Agreement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byControl {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeAgreements) Insert(ctx context.Context, agreement *store.Agreement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextID++
	agreement.ID = f.nextID
	copied := *agreement
	f.byControl[agreement.ControlNumber] = &copied
	return nil
}

func (f *fakeAgreements) Update(ctx context.Context, agreement *store.Agreement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *agreement
	f.byControl[agreement.ControlNumber] = &copied
	f.updates++
	return nil
}

func (f *fakeAgreements) MaxValidityStart(ctx context.Context) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var max *time.Time
	for _, a := range f.byControl {
		if max == nil || a.ValidityStart.After(*max) {
			v := a.ValidityStart
			max = &v
		}
	}
	return max, nil
}

func (f *fakeAgreements) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byControl), nil
}

func (f *fakeAgreements) ListActive(ctx context.Context, filter store.ActiveFilter) ([]store.AgreementWithTotals, error) {
	return nil, nil
}

func (f *fakeAgreements) ListRecent(ctx context.Context, since time.Time) ([]store.AgreementWithTotals, error) {
	return nil, nil
}

func (f *fakeAgreements) ListRecentlyExpired(ctx context.Context, ref, since time.Time) ([]store.AgreementWithTotals, error) {
	return nil, nil
}

func (f *fakeAgreements) Search(ctx context.Context, term string, limit int) ([]store.AgreementWithTotals, error) {
	return nil, nil
}

func (f *fakeAgreements) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byControl = map[string]*store.Agreement{}
	return nil
}

type fakeItems struct {
	mu       stdsync.Mutex
	byCode   map[int64]*store.CatalogItem
	backfill map[int64]string
}

func (f *fakeItems) GetByCode(ctx context.Context, itemCode int64) (*store.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.byCode[itemCode]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeItems) GetByCodes(ctx context.Context, itemCodes []int64, ref time.Time) ([]store.ItemWithAgreementCounts, error) {
	return nil, nil
}

func (f *fakeItems) Insert(ctx context.Context, item *store.CatalogItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *item
	f.byCode[item.ItemCode] = &copied
	return nil
}

func (f *fakeItems) SetPrimaryDescription(ctx context.Context, itemCode int64, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.byCode[itemCode]; ok {
		if item.PrimaryDescription == nil || *item.PrimaryDescription == "" {
			item.PrimaryDescription = &description
		}
	}
	if f.backfill == nil {
		f.backfill = map[int64]string{}
	}
	f.backfill[itemCode] = description
	return nil
}

func (f *fakeItems) ListWithoutActiveAgreement(ctx context.Context, ref time.Time, limit int) ([]store.ItemWithoutAgreement, error) {
	return nil, nil
}

func (f *fakeItems) ListMissingPrimaryDescription(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := []int64{}
	for code, item := range f.byCode {
		if item.PrimaryDescription == nil || *item.PrimaryDescription == "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func (f *fakeItems) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byCode = map[int64]*store.CatalogItem{}
	return nil
}

type fakeDescriptions struct {
	mu   stdsync.Mutex
	all  []store.ItemDescription
	next int64
}

func (f *fakeDescriptions) Exists(ctx context.Context, itemCode int64, description string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.all {
		if d.ItemCode == itemCode && d.Description == description {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDescriptions) Insert(ctx context.Context, desc *store.ItemDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	desc.ID = f.next
	f.all = append(f.all, *desc)
	return nil
}

func (f *fakeDescriptions) ListByItem(ctx context.Context, itemCode int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for _, d := range f.all {
		if d.ItemCode == itemCode {
			out = append(out, d.Description)
		}
	}
	return out, nil
}

func (f *fakeDescriptions) ListAll(ctx context.Context) ([]store.ItemDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.ItemDescription{}, f.all...), nil
}

func (f *fakeDescriptions) OldestForItem(ctx context.Context, itemCode int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.all {
		if d.ItemCode == itemCode {
			return d.Description, nil
		}
	}
	return "", nil
}

func (f *fakeDescriptions) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.all = nil
	return nil
}

type lineKey struct {
	agreementID int64
	itemCode    int64
	lineNumber  string
}

type fakeLineItems struct {
	mu      stdsync.Mutex
	byKey   map[lineKey]*store.AgreementItem
	nextID  int64
	updates int
}

func (f *fakeLineItems) Get(ctx context.Context, agreementID, itemCode int64, lineNumber string) (*store.AgreementItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.byKey[lineKey{agreementID, itemCode, lineNumber}]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeLineItems) Insert(ctx context.Context, item *store.AgreementItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item.ID = f.nextID
	copied := *item
	f.byKey[lineKey{item.AgreementID, item.ItemCode, item.LineNumber}] = &copied
	return nil
}

func (f *fakeLineItems) Update(ctx context.Context, item *store.AgreementItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *item
	f.byKey[lineKey{item.AgreementID, item.ItemCode, item.LineNumber}] = &copied
	f.updates++
	return nil
}

func (f *fakeLineItems) ListByAgreement(ctx context.Context, agreementID int64) ([]store.LineItemDetail, error) {
	return nil, nil
}

func (f *fakeLineItems) ListByItem(ctx context.Context, itemCode int64) ([]store.ItemAgreementRow, error) {
	return nil, nil
}

func (f *fakeLineItems) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey = map[lineKey]*store.AgreementItem{}
	return nil
}

type fakeConfig struct {
	mu     stdsync.Mutex
	values map[string]string
}

func (f *fakeConfig) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key], nil
}

func (f *fakeConfig) Set(ctx context.Context, key, value, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

type fakeReports struct{}

func (f *fakeReports) DashboardSummary(ctx context.Context, ref time.Time) (store.DashboardSummary, error) {
	return store.DashboardSummary{}, nil
}

func (f *fakeReports) MonthlyActive(ctx context.Context, months int) ([]store.MonthlyCount, error) {
	return nil, nil
}
