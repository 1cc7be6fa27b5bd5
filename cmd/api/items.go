package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"atasapi/internal/response"
	"atasapi/internal/store"
	"atasapi/internal/textutil"
	"atasapi/internal/validity"
)

type ItemSearchResponse = response.APIResponse[[]ItemSearchResult]
type ItemDetailResponse = response.APIResponse[ItemDetail]
type ItemsWithoutAgreementResponse = response.APIResponse[[]store.ItemWithoutAgreement]

type ItemSearchResult struct {
	ItemCode           int64   `json:"itemCode"`
	ItemType           string  `json:"itemType"`
	PrimaryDescription *string `json:"primaryDescription"`
	ActiveAgreements   int     `json:"activeAgreements"`
	ExpiredAgreements  int     `json:"expiredAgreements"`
}

type ItemAgreementEntry struct {
	store.ItemAgreementRow
	DaysToExpiry int     `json:"daysToExpiry"`
	Status       string  `json:"status"`
	PncpLink     *string `json:"pncpLink"`
}

type ItemDetail struct {
	ItemCode           int64                `json:"itemCode"`
	ItemType           string               `json:"itemType"`
	PrimaryDescription *string              `json:"primaryDescription"`
	PdmName            *string              `json:"pdmName"`
	Descriptions       []string             `json:"descriptions"`
	ActiveAgreements   []ItemAgreementEntry `json:"activeAgreements"`
	ExpiredAgreements  []ItemAgreementEntry `json:"expiredAgreements"`
}

// handleSearchItems matches every query term against all recorded
// description variants, accent- and case-insensitively. The catalog is small
// enough that matching in memory beats teaching the database to unaccent.
func (app *application) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeJSONError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	onlyActive := parseBoolQuery(r, "onlyActive")
	limit := parseIntQuery(r, "limit", 50)
	terms := strings.Fields(query)

	ctx := r.Context()
	descriptions, err := app.store.Descriptions.ListAll(ctx)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load descriptions: "+err.Error())
		return
	}

	matched := make(map[int64]struct{})
	codes := []int64{}
	for _, desc := range descriptions {
		if _, ok := matched[desc.ItemCode]; ok {
			continue
		}
		if textutil.MatchesAll(desc.Description, terms) {
			matched[desc.ItemCode] = struct{}{}
			codes = append(codes, desc.ItemCode)
		}
	}

	results := []ItemSearchResult{}
	if len(codes) > 0 {
		items, err := app.store.Items.GetByCodes(ctx, codes, time.Now().UTC())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to load items: "+err.Error())
			return
		}
		for _, item := range items {
			if onlyActive && item.ActiveAgreements == 0 {
				continue
			}
			results = append(results, ItemSearchResult{
				ItemCode:           item.ItemCode,
				ItemType:           item.ItemType,
				PrimaryDescription: item.PrimaryDescription,
				ActiveAgreements:   item.ActiveAgreements,
				ExpiredAgreements:  item.ExpiredAgreements,
			})
			if len(results) >= limit {
				break
			}
		}
	}

	resp := &ItemSearchResponse{Success: true, Data: results}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleGetItem(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.ParseInt(chi.URLParam(r, "code"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid item code")
		return
	}

	ctx := r.Context()
	item, err := app.store.Items.GetByCode(ctx, code)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load item: "+err.Error())
		return
	}
	if item == nil {
		writeJSONError(w, http.StatusNotFound, "item not found")
		return
	}

	descriptions, err := app.store.Descriptions.ListByItem(ctx, code)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load descriptions: "+err.Error())
		return
	}

	rows, err := app.store.LineItems.ListByItem(ctx, code)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load agreements: "+err.Error())
		return
	}

	ref := time.Now().UTC()
	detail := ItemDetail{
		ItemCode:           item.ItemCode,
		ItemType:           item.ItemType,
		PrimaryDescription: item.PrimaryDescription,
		PdmName:            item.PdmName,
		Descriptions:       descriptions,
		ActiveAgreements:   []ItemAgreementEntry{},
		ExpiredAgreements:  []ItemAgreementEntry{},
	}
	for _, row := range rows {
		agreement := store.Agreement{ControlNumber: row.ControlNumber}
		entry := ItemAgreementEntry{
			ItemAgreementRow: row,
			DaysToExpiry:     validity.DaysUntil(row.ValidityEnd, ref),
			Status:           validity.Status(row.ValidityEnd, ref),
			PncpLink:         agreement.PncpLink(),
		}
		if entry.Status == validity.StatusExpired {
			detail.ExpiredAgreements = append(detail.ExpiredAgreements, entry)
		} else {
			detail.ActiveAgreements = append(detail.ActiveAgreements, entry)
		}
	}

	resp := &ItemDetailResponse{Success: true, Data: detail}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleGetItemsWithoutAgreement(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 100)

	items, err := app.store.Items.ListWithoutActiveAgreement(r.Context(), time.Now().UTC(), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list items: "+err.Error())
		return
	}

	resp := &ItemsWithoutAgreementResponse{Success: true, Data: items}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
