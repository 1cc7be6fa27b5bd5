package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"atasapi/internal/response"
	"atasapi/internal/store"
	"atasapi/internal/validity"
)

type AgreementListResponse = response.APIResponse[[]AgreementSummary]
type AgreementDetailResponse = response.APIResponse[AgreementDetail]

// AgreementSummary is the list projection of an agreement, with the expiry
// tier computed against today.
type AgreementSummary struct {
	ID               int64      `json:"id"`
	AgreementNumber  string     `json:"agreementNumber"`
	ManagingUnitCode string     `json:"managingUnitCode"`
	ManagingUnitName *string    `json:"managingUnitName"`
	ControlNumber    string     `json:"controlNumber"`
	SigningDate      *time.Time `json:"signingDate"`
	ValidityStart    time.Time  `json:"validityStart"`
	ValidityEnd      time.Time  `json:"validityEnd"`
	DaysToExpiry     int        `json:"daysToExpiry"`
	Status           string     `json:"status"`
	PncpLink         *string    `json:"pncpLink"`
	TotalItems       int        `json:"totalItems"`
	TotalValue       float64    `json:"totalValue"`
}

type AgreementDetail struct {
	AgreementSummary
	PurchaseModalityName *string                `json:"purchaseModalityName"`
	PurchaseYear         *string                `json:"purchaseYear"`
	Items                []store.LineItemDetail `json:"items"`
}

func agreementSummaryFrom(a store.AgreementWithTotals, ref time.Time) AgreementSummary {
	return AgreementSummary{
		ID:               a.ID,
		AgreementNumber:  a.AgreementNumber,
		ManagingUnitCode: a.ManagingUnitCode,
		ManagingUnitName: a.ManagingUnitName,
		ControlNumber:    a.ControlNumber,
		SigningDate:      a.SigningDate,
		ValidityStart:    a.ValidityStart,
		ValidityEnd:      a.ValidityEnd,
		DaysToExpiry:     validity.DaysUntil(a.ValidityEnd, ref),
		Status:           validity.Status(a.ValidityEnd, ref),
		PncpLink:         a.PncpLink(),
		TotalItems:       a.TotalItems,
		TotalValue:       a.TotalValue,
	}
}

func agreementSummariesFrom(agreements []store.AgreementWithTotals, ref time.Time) []AgreementSummary {
	summaries := make([]AgreementSummary, 0, len(agreements))
	for _, a := range agreements {
		summaries = append(summaries, agreementSummaryFrom(a, ref))
	}
	return summaries
}

// statusBands maps an expiry tier to its days-to-expiry band.
func statusBands(status string) (minDays, maxDays *int, ok bool) {
	band := func(lo, hi int) (*int, *int, bool) { return &lo, &hi, true }
	switch status {
	case validity.StatusCritical:
		return band(0, 30)
	case validity.StatusWarning:
		return band(30, 60)
	case validity.StatusCaution:
		return band(60, 120)
	case validity.StatusCurrent:
		lo := 120
		return &lo, nil, true
	case "":
		return nil, nil, true
	default:
		return nil, nil, false
	}
}

func (app *application) handleGetActiveAgreements(w http.ResponseWriter, r *http.Request) {
	statusParam := r.URL.Query().Get("status")
	limit := parseIntQuery(r, "limit", 100)

	minDays, maxDays, ok := statusBands(statusParam)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid status parameter")
		return
	}

	ref := time.Now().UTC()
	filter := store.ActiveFilter{Ref: ref, MinDays: minDays, MaxDays: maxDays, Limit: limit}

	agreements, err := app.store.Agreements.ListActive(r.Context(), filter)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list active agreements: "+err.Error())
		return
	}

	resp := &AgreementListResponse{
		Success: true,
		Data:    agreementSummariesFrom(agreements, ref),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleGetRecentAgreements(w http.ResponseWriter, r *http.Request) {
	days := parseIntQuery(r, "days", 30)
	ref := time.Now().UTC()
	since := ref.AddDate(0, 0, -days)

	agreements, err := app.store.Agreements.ListRecent(r.Context(), since)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list recent agreements: "+err.Error())
		return
	}

	resp := &AgreementListResponse{
		Success: true,
		Data:    agreementSummariesFrom(agreements, ref),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleGetRecentlyExpiredAgreements(w http.ResponseWriter, r *http.Request) {
	days := parseIntQuery(r, "days", 60)
	ref := time.Now().UTC()
	since := ref.AddDate(0, 0, -days)

	agreements, err := app.store.Agreements.ListRecentlyExpired(r.Context(), ref, since)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list expired agreements: "+err.Error())
		return
	}

	resp := &AgreementListResponse{
		Success: true,
		Data:    agreementSummariesFrom(agreements, ref),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleSearchAgreements(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeJSONError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	limit := parseIntQuery(r, "limit", 50)

	agreements, err := app.store.Agreements.Search(r.Context(), term, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to search agreements: "+err.Error())
		return
	}

	resp := &AgreementListResponse{
		Success: true,
		Data:    agreementSummariesFrom(agreements, time.Now().UTC()),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleGetAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid agreement id")
		return
	}

	ctx := r.Context()
	agreement, err := app.store.Agreements.GetByID(ctx, id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load agreement: "+err.Error())
		return
	}
	if agreement == nil {
		writeJSONError(w, http.StatusNotFound, "agreement not found")
		return
	}

	items, err := app.store.LineItems.ListByAgreement(ctx, id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load agreement items: "+err.Error())
		return
	}

	totalValue := 0.0
	for _, item := range items {
		if item.UnitValue != nil && item.HomologatedQty != nil {
			totalValue += *item.UnitValue * *item.HomologatedQty
		}
	}

	ref := time.Now().UTC()
	detail := AgreementDetail{
		AgreementSummary: agreementSummaryFrom(store.AgreementWithTotals{
			Agreement:  *agreement,
			TotalItems: len(items),
			TotalValue: totalValue,
		}, ref),
		PurchaseModalityName: agreement.PurchaseModalityName,
		PurchaseYear:         agreement.PurchaseYear,
		Items:                items,
	}

	resp := &AgreementDetailResponse{Success: true, Data: detail}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
