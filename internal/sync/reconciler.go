package sync

import (
	"context"
	"time"

	"atasapi/internal/logger"
	"atasapi/internal/pncp"
	"atasapi/internal/store"
)

// Reconciler folds API records into the database. Each record touches up to
// four tables: the agreement, the catalog item, the description history and
// the priced line.
type Reconciler struct {
	storage  *store.Storage
	log      *logger.Logger
	unitCode string
}

func NewReconciler(storage *store.Storage, log *logger.Logger, unitCode string) *Reconciler {
	return &Reconciler{storage: storage, log: log, unitCode: unitCode}
}

// PageResult counts what a page of records produced.
type PageResult struct {
	Processed     int
	NewAgreements int
	NewLineItems  int
}

// ProcessPage reconciles every record on the page. A record hitting a
// unique violation was raced in by another page and counts as processed.
// Any other record error is logged and skipped without aborting the page.
func (r *Reconciler) ProcessPage(ctx context.Context, page *pncp.Page) PageResult {
	var result PageResult
	for i := range page.Records {
		rec := &page.Records[i]
		newAgreement, newLine, err := r.ReconcileRecord(ctx, rec)
		result.Processed++
		if err != nil {
			if store.IsUniqueViolation(err) {
				continue
			}
			r.log.Error("sync", "Record %s failed: %v", rec.ControlNumber.Value, err)
			continue
		}
		if newAgreement {
			result.NewAgreements++
		}
		if newLine {
			result.NewLineItems++
		}
	}
	return result
}

// ReconcileRecord upserts one record. It reports whether a new agreement
// and a new line item were created.
func (r *Reconciler) ReconcileRecord(ctx context.Context, rec *pncp.Record) (bool, bool, error) {
	if !rec.ControlNumber.Valid || rec.ControlNumber.Value == "" {
		r.log.Warn("sync", "Record without control number skipped (item %d)", rec.ItemCode.Value)
		return false, false, nil
	}

	agreement, newAgreement, err := r.reconcileAgreement(ctx, rec)
	if err != nil {
		return false, false, err
	}

	if rec.ItemCode.Valid {
		if err := r.reconcileItem(ctx, rec); err != nil {
			return newAgreement, false, err
		}
		newLine, err := r.reconcileLineItem(ctx, agreement, rec)
		if err != nil {
			return newAgreement, false, err
		}
		return newAgreement, newLine, nil
	}

	return newAgreement, false, nil
}

func (r *Reconciler) reconcileAgreement(ctx context.Context, rec *pncp.Record) (*store.Agreement, bool, error) {
	existing, err := r.storage.Agreements.GetByControlNumber(ctx, rec.ControlNumber.Value)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		agreement := r.agreementFromRecord(rec)
		if err := r.storage.Agreements.Insert(ctx, agreement); err != nil {
			return nil, false, err
		}
		return agreement, true, nil
	}

	applyRecordToAgreement(existing, rec)
	if err := r.storage.Agreements.Update(ctx, existing); err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *Reconciler) agreementFromRecord(rec *pncp.Record) *store.Agreement {
	number := "SEM NUMERO"
	if rec.AgreementNumber.Valid && rec.AgreementNumber.Value != "" {
		number = rec.AgreementNumber.Value
	}
	unitCode := r.unitCode
	if rec.ManagingUnitCode.Valid && rec.ManagingUnitCode.Value != "" {
		unitCode = rec.ManagingUnitCode.Value
	}

	now := time.Now().UTC()
	agreement := &store.Agreement{
		AgreementNumber:       number,
		ManagingUnitCode:      unitCode,
		ManagingUnitName:      rec.ManagingUnitName.Ptr(),
		ControlNumber:         rec.ControlNumber.Value,
		PurchaseControlNumber: rec.PurchaseControlNumber.Ptr(),
		PurchaseID:            rec.PurchaseID.Ptr(),
		PurchaseNumber:        rec.PurchaseNumber.Ptr(),
		PurchaseYear:          rec.PurchaseYear.Ptr(),
		PurchaseModalityCode:  rec.ModalityCode.Ptr(),
		PurchaseModalityName:  rec.ModalityName.Ptr(),
		SigningDate:           rec.SigningDate.Ptr(),
		InsertedAt:            now,
		UpdatedAt:             now,
	}
	if rec.ValidityStart.Valid {
		agreement.ValidityStart = rec.ValidityStart.Value
	}
	if rec.ValidityEnd.Valid {
		agreement.ValidityEnd = rec.ValidityEnd.Value
	}
	return agreement
}

// applyRecordToAgreement overwrites a field only when the record carries a
// value for it. Fields the API comes back empty on keep what an earlier
// crawl stored.
func applyRecordToAgreement(a *store.Agreement, rec *pncp.Record) {
	if rec.AgreementNumber.Valid && rec.AgreementNumber.Value != "" {
		a.AgreementNumber = rec.AgreementNumber.Value
	}
	if rec.ManagingUnitCode.Valid && rec.ManagingUnitCode.Value != "" {
		a.ManagingUnitCode = rec.ManagingUnitCode.Value
	}
	if rec.ManagingUnitName.Valid {
		a.ManagingUnitName = rec.ManagingUnitName.Ptr()
	}
	if rec.PurchaseControlNumber.Valid {
		a.PurchaseControlNumber = rec.PurchaseControlNumber.Ptr()
	}
	if rec.PurchaseID.Valid {
		a.PurchaseID = rec.PurchaseID.Ptr()
	}
	if rec.PurchaseNumber.Valid {
		a.PurchaseNumber = rec.PurchaseNumber.Ptr()
	}
	if rec.PurchaseYear.Valid {
		a.PurchaseYear = rec.PurchaseYear.Ptr()
	}
	if rec.ModalityCode.Valid {
		a.PurchaseModalityCode = rec.ModalityCode.Ptr()
	}
	if rec.ModalityName.Valid {
		a.PurchaseModalityName = rec.ModalityName.Ptr()
	}
	if rec.SigningDate.Valid {
		a.SigningDate = rec.SigningDate.Ptr()
	}
	if rec.ValidityStart.Valid {
		a.ValidityStart = rec.ValidityStart.Value
	}
	if rec.ValidityEnd.Valid {
		a.ValidityEnd = rec.ValidityEnd.Value
	}
	a.UpdatedAt = time.Now().UTC()
}

func (r *Reconciler) reconcileItem(ctx context.Context, rec *pncp.Record) error {
	item, err := r.storage.Items.GetByCode(ctx, rec.ItemCode.Value)
	if err != nil {
		return err
	}

	description := ""
	if rec.ItemDescription.Valid {
		description = rec.ItemDescription.Value
	}

	if item == nil {
		itemType := "Material"
		if rec.ItemType.Valid && rec.ItemType.Value != "" {
			itemType = rec.ItemType.Value
		}
		item = &store.CatalogItem{
			ItemCode:  rec.ItemCode.Value,
			ItemType:  itemType,
			PdmCode:   rec.PdmCode.Ptr(),
			PdmName:   rec.PdmName.Ptr(),
			CreatedAt: time.Now().UTC(),
		}
		if description != "" {
			item.PrimaryDescription = &description
		}
		if err := r.storage.Items.Insert(ctx, item); err != nil {
			return err
		}
	} else if description != "" && (item.PrimaryDescription == nil || *item.PrimaryDescription == "") {
		if err := r.storage.Items.SetPrimaryDescription(ctx, rec.ItemCode.Value, description); err != nil {
			return err
		}
	}

	if description == "" {
		return nil
	}

	// Each distinct description text observed for an item is kept as a
	// variant, once.
	exists, err := r.storage.Descriptions.Exists(ctx, rec.ItemCode.Value, description)
	if err != nil {
		return err
	}
	if !exists {
		err := r.storage.Descriptions.Insert(ctx, &store.ItemDescription{
			ItemCode:    rec.ItemCode.Value,
			Description: description,
			RecordedAt:  time.Now().UTC(),
		})
		if err != nil && !store.IsUniqueViolation(err) {
			return err
		}
	}
	return nil
}

func (r *Reconciler) reconcileLineItem(ctx context.Context, agreement *store.Agreement, rec *pncp.Record) (bool, error) {
	lineNumber := ""
	if rec.LineNumber.Valid {
		lineNumber = rec.LineNumber.Value
	}

	existing, err := r.storage.LineItems.Get(ctx, agreement.ID, rec.ItemCode.Value, lineNumber)
	if err != nil {
		return false, err
	}

	line := &store.AgreementItem{
		AgreementID:          agreement.ID,
		ItemCode:             rec.ItemCode.Value,
		LineNumber:           lineNumber,
		OriginalDescription:  rec.ItemDescription.Ptr(),
		HomologatedQty:       rec.HomologatedQty.Ptr(),
		SupplierRanking:      rec.SupplierRanking.Ptr(),
		SupplierNI:           rec.SupplierNI.Ptr(),
		SupplierName:         rec.SupplierName.Ptr(),
		WinnerHomologatedQty: rec.WinnerHomologatedQty.Ptr(),
		UnitValue:            rec.UnitValue.Ptr(),
		TotalValue:           rec.TotalValue.Ptr(),
		MaxAdhesionQty:       rec.MaxAdhesionQty.Ptr(),
		CommittedQty:         rec.CommittedQty.Ptr(),
		BestDiscountPct:      rec.BestDiscountPct.Ptr(),
		SicafStatus:          rec.SicafStatus.Ptr(),
		Excluded:             rec.Excluded.Or(false),
		ExcludedAt:           rec.ExcludedAt.Ptr(),
	}

	if existing == nil {
		if err := r.storage.LineItems.Insert(ctx, line); err != nil {
			return false, err
		}
		return true, nil
	}

	// Pricing and supplier terms always track the latest payload.
	line.ID = existing.ID
	if err := r.storage.LineItems.Update(ctx, line); err != nil {
		return false, err
	}
	return false, nil
}

// BackfillDescriptions fills in a missing primary description from the
// oldest recorded variant, for items ingested before the variant existed.
func (r *Reconciler) BackfillDescriptions(ctx context.Context) (int, error) {
	codes, err := r.storage.Items.ListMissingPrimaryDescription(ctx)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, code := range codes {
		description, err := r.storage.Descriptions.OldestForItem(ctx, code)
		if err != nil {
			return fixed, err
		}
		if description == "" {
			continue
		}
		if err := r.storage.Items.SetPrimaryDescription(ctx, code, description); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}
