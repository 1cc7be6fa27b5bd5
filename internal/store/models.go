package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Agreement represents the 'agreement' table (ata de registro de preços).
type Agreement struct {
	ID                    int64      `db:"id"`
	AgreementNumber       string     `db:"agreement_number"`
	ManagingUnitCode      string     `db:"managing_unit_code"`
	ManagingUnitName      *string    `db:"managing_unit_name"`
	ControlNumber         string     `db:"control_number"`
	PurchaseControlNumber *string    `db:"purchase_control_number"`
	PurchaseID            *string    `db:"purchase_id"`
	PurchaseNumber        *string    `db:"purchase_number"`
	PurchaseYear          *string    `db:"purchase_year"`
	PurchaseModalityCode  *string    `db:"purchase_modality_code"`
	PurchaseModalityName  *string    `db:"purchase_modality_name"`
	SigningDate           *time.Time `db:"signing_date"`
	ValidityStart         time.Time  `db:"validity_start"`
	ValidityEnd           time.Time  `db:"validity_end"`
	InsertedAt            time.Time  `db:"inserted_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

// PncpLink derives the PNCP document URL from the control number.
// Control numbers look like "42498600000171-1-000586/2023-000007":
// cnpj-modality-purchase/year-sequence.
func (a *Agreement) PncpLink() *string {
	if a.ControlNumber == "" {
		return nil
	}

	parts := strings.Split(a.ControlNumber, "-")
	if len(parts) < 4 {
		return nil
	}

	cnpj := parts[0]
	purchaseYear := strings.Split(parts[2], "/")
	if len(purchaseYear) < 2 {
		return nil
	}

	purchase, err := strconv.Atoi(purchaseYear[0])
	if err != nil {
		return nil
	}
	seq, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil
	}

	link := fmt.Sprintf("https://pncp.gov.br/pncp-api/v1/orgaos/%s/compras/%s/%d/atas/%d/arquivos/1",
		cnpj, purchaseYear[1], purchase, seq)
	return &link
}

// CatalogItem represents the 'catalog_item' table, keyed by the external
// item code that is stable across agreements.
type CatalogItem struct {
	ItemCode           int64     `db:"item_code"`
	ItemType           string    `db:"item_type"`
	PrimaryDescription *string   `db:"primary_description"`
	PdmCode            *int64    `db:"pdm_code"`
	PdmName            *string   `db:"pdm_name"`
	CreatedAt          time.Time `db:"created_at"`
}

// ItemDescription represents the 'item_description' table. Catalogs report
// inconsistent free-text descriptions for the same item code, so every
// distinct text observed for an item is kept.
type ItemDescription struct {
	ID          int64     `db:"id"`
	ItemCode    int64     `db:"item_code"`
	Description string    `db:"description"`
	RecordedAt  time.Time `db:"recorded_at"`
}

// AgreementItem represents the 'agreement_item' table: one priced line of an
// agreement, unique per (agreement_id, item_code, line_number).
type AgreementItem struct {
	ID                   int64      `db:"id"`
	AgreementID          int64      `db:"agreement_id"`
	ItemCode             int64      `db:"item_code"`
	LineNumber           string     `db:"line_number"`
	OriginalDescription  *string    `db:"original_description"`
	HomologatedQty       *float64   `db:"homologated_qty"`
	SupplierRanking      *string    `db:"supplier_ranking"`
	SupplierNI           *string    `db:"supplier_ni"`
	SupplierName         *string    `db:"supplier_name"`
	WinnerHomologatedQty *float64   `db:"winner_homologated_qty"`
	UnitValue            *float64   `db:"unit_value"`
	TotalValue           *float64   `db:"total_value"`
	MaxAdhesionQty       *float64   `db:"max_adhesion_qty"`
	CommittedQty         *float64   `db:"committed_qty"`
	BestDiscountPct      *float64   `db:"best_discount_pct"`
	SicafStatus          *string    `db:"sicaf_status"`
	Excluded             bool       `db:"excluded"`
	ExcludedAt           *time.Time `db:"excluded_at"`
}

// SystemConfig represents the 'system_config' key/value table.
type SystemConfig struct {
	ID          int64     `db:"id"`
	Key         string    `db:"key"`
	Value       string    `db:"value"`
	Description *string   `db:"description"`
	UpdatedAt   time.Time `db:"updated_at"`
}
