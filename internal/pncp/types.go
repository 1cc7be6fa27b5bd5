package pncp

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// The open data API is loose about scalar types: numbers arrive as strings,
// booleans as "sim"/"nao", dates in several layouts. These wrappers decode
// whatever shows up and flag absent or unparsable values instead of failing
// the whole page.

type String struct {
	Value string
	Valid bool
}

func (s *String) UnmarshalJSON(data []byte) error {
	s.Value, s.Valid = "", false
	if isNull(data) {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Value, s.Valid = str, true
		return nil
	}
	// Numbers and booleans are accepted as their literal text.
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	s.Value, s.Valid = string(bytes.TrimSpace(raw)), true
	return nil
}

func (s String) Ptr() *string {
	if !s.Valid {
		return nil
	}
	v := s.Value
	return &v
}

type Int struct {
	Value int64
	Valid bool
}

func (i *Int) UnmarshalJSON(data []byte) error {
	i.Value, i.Valid = 0, false
	if isNull(data) {
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		i.Value, i.Valid = n, true
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64)
	if err != nil {
		return nil
	}
	i.Value, i.Valid = n, true
	return nil
}

func (i Int) Ptr() *int64 {
	if !i.Valid {
		return nil
	}
	v := i.Value
	return &v
}

type Decimal struct {
	Value float64
	Valid bool
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	d.Value, d.Valid = 0, false
	if isNull(data) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		d.Value, d.Valid = f, true
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil
	}
	str = strings.Replace(strings.TrimSpace(str), ",", ".", 1)
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil
	}
	d.Value, d.Valid = f, true
	return nil
}

func (d Decimal) Ptr() *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Value
	return &v
}

type Bool struct {
	Value bool
	Valid bool
}

func (b *Bool) UnmarshalJSON(data []byte) error {
	b.Value, b.Valid = false, false
	if isNull(data) {
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		b.Value, b.Valid = v, true
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		b.Value, b.Valid = n != 0, true
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "true", "sim", "s", "1":
		b.Value, b.Valid = true, true
	case "false", "nao", "não", "n", "0":
		b.Value, b.Valid = false, true
	}
	return nil
}

// Or returns the decoded value, or def when the field was absent.
func (b Bool) Or(def bool) bool {
	if !b.Valid {
		return def
	}
	return b.Value
}

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"02/01/2006",
}

type Date struct {
	Value time.Time
	Valid bool
}

func (d *Date) UnmarshalJSON(data []byte) error {
	d.Value, d.Valid = time.Time{}, false
	if isNull(data) {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil
	}
	str = strings.TrimSpace(str)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			d.Value, d.Valid = t, true
			return nil
		}
	}
	return nil
}

func (d Date) Ptr() *time.Time {
	if !d.Valid {
		return nil
	}
	v := d.Value
	return &v
}

func isNull(data []byte) bool {
	return len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// Record is one price registration line as published by the open data API.
type Record struct {
	ControlNumber         String  `json:"numeroControlePncpAta"`
	AgreementNumber       String  `json:"numeroAtaRegistroPreco"`
	ManagingUnitCode      String  `json:"codigoUnidadeGerenciadora"`
	ManagingUnitName      String  `json:"nomeUnidadeGerenciadora"`
	PurchaseNumber        String  `json:"numeroCompra"`
	PurchaseYear          String  `json:"anoCompra"`
	ModalityCode          String  `json:"codigoModalidadeCompra"`
	ModalityName          String  `json:"nomeModalidadeCompra"`
	SigningDate           Date    `json:"dataAssinatura"`
	ValidityStart         Date    `json:"dataVigenciaInicial"`
	ValidityEnd           Date    `json:"dataVigenciaFinal"`
	PurchaseID            String  `json:"idCompra"`
	PurchaseControlNumber String  `json:"numeroControlePncpCompra"`
	ItemCode              Int     `json:"codigoItem"`
	ItemType              String  `json:"tipoItem"`
	ItemDescription       String  `json:"descricaoItem"`
	LineNumber            String  `json:"numeroItem"`
	HomologatedQty        Decimal `json:"quantidadeHomologadaItem"`
	SupplierRanking       String  `json:"classificacaoFornecedor"`
	SupplierNI            String  `json:"niFornecedor"`
	SupplierName          String  `json:"nomeRazaoSocialFornecedor"`
	WinnerHomologatedQty  Decimal `json:"quantidadeHomologadaVencedor"`
	UnitValue             Decimal `json:"valorUnitario"`
	TotalValue            Decimal `json:"valorTotal"`
	MaxAdhesionQty        Decimal `json:"maximoAdesao"`
	CommittedQty          Decimal `json:"quantidadeEmpenhada"`
	BestDiscountPct       Decimal `json:"percentualMaiorDesconto"`
	SicafStatus           String  `json:"situacaoSicaf"`
	Excluded              Bool    `json:"itemExcluido"`
	ExcludedAt            Date    `json:"dataHoraExclusao"`
	PdmCode               Int     `json:"codigoPdm"`
	PdmName               String  `json:"nomePdm"`
}

// Page is the paginated envelope wrapping a batch of records.
type Page struct {
	Records      []Record `json:"resultado"`
	CurrentPage  int      `json:"paginaAtual"`
	PageSize     int      `json:"itensPorPagina"`
	TotalPages   int      `json:"totalPaginas"`
	TotalRecords int      `json:"totalRegistros"`
}
