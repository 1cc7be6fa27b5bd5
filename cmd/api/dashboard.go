package main

import (
	"net/http"
	"time"

	"atasapi/internal/response"
	"atasapi/internal/store"
)

type DashboardResponse = response.APIResponse[Dashboard]
type DashboardHistoryResponse = response.APIResponse[[]store.MonthlyCount]

type Dashboard struct {
	store.DashboardSummary
	NextToExpire []AgreementSummary `json:"nextToExpire"`
}

func (app *application) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := time.Now().UTC()

	summary, err := app.store.Reports.DashboardSummary(ctx, ref)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to build dashboard: "+err.Error())
		return
	}

	expiring, err := app.store.Agreements.ListActive(ctx, store.ActiveFilter{Ref: ref, Limit: 10})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list expiring agreements: "+err.Error())
		return
	}

	resp := &DashboardResponse{
		Success: true,
		Data: Dashboard{
			DashboardSummary: summary,
			NextToExpire:     agreementSummariesFrom(expiring, ref),
		},
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleGetDashboardHistory(w http.ResponseWriter, r *http.Request) {
	months := parseIntQuery(r, "months", 12)
	if months < 1 || months > 60 {
		writeJSONError(w, http.StatusBadRequest, "months must be between 1 and 60")
		return
	}

	counts, err := app.store.Reports.MonthlyActive(r.Context(), months)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load history: "+err.Error())
		return
	}

	resp := &DashboardHistoryResponse{Success: true, Data: counts}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
