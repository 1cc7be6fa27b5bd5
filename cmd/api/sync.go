package main

import (
	"errors"
	"net/http"
	"time"

	"atasapi/internal/response"
	"atasapi/internal/sync"
)

type SyncResultResponse = response.APIResponse[*sync.Result]
type SyncStatusResponse = response.APIResponse[sync.Status]

func (app *application) writeSyncResult(w http.ResponseWriter, result *sync.Result, err error) {
	if errors.Is(err, sync.ErrRunInProgress) {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "sync failed: "+err.Error())
		return
	}

	resp := &SyncResultResponse{
		Success: result.Success,
		Data:    result,
		Message: result.Message,
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleRunSync(w http.ResponseWriter, r *http.Request) {
	result, err := app.sync.Run(r.Context())
	app.writeSyncResult(w, result, err)
}

type runParallelRequest struct {
	LaunchIntervalMs int `json:"launchIntervalMs"`
	MaxConcurrency   int `json:"maxConcurrency"`
}

func (app *application) handleRunSyncParallel(w http.ResponseWriter, r *http.Request) {
	var req runParallelRequest
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := app.sync.RunParallel(r.Context(), sync.ParallelConfig{
		LaunchInterval: time.Duration(req.LaunchIntervalMs) * time.Millisecond,
		MaxConcurrency: req.MaxConcurrency,
	})
	app.writeSyncResult(w, result, err)
}

func (app *application) handleResumeSync(w http.ResponseWriter, r *http.Request) {
	result, err := app.sync.Resume(r.Context())
	app.writeSyncResult(w, result, err)
}

func (app *application) handleRunSyncIncremental(w http.ResponseWriter, r *http.Request) {
	result, err := app.sync.RunIncremental(r.Context())
	app.writeSyncResult(w, result, err)
}

func (app *application) handleStopSync(w http.ResponseWriter, r *http.Request) {
	stopped := app.sync.Stop()

	message := "no sync in progress"
	if stopped {
		message = "cancellation requested"
	}
	resp := &response.APIResponse[map[string]bool]{
		Success: true,
		Data:    map[string]bool{"stopped": stopped},
		Message: message,
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := app.sync.Status(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to read sync status: "+err.Error())
		return
	}

	resp := &SyncStatusResponse{Success: true, Data: status}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// handleResetData wipes every ingested table, children first.
func (app *application) handleResetData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"agreement items", func() error { return app.store.LineItems.DeleteAll(ctx) }},
		{"item descriptions", func() error { return app.store.Descriptions.DeleteAll(ctx) }},
		{"catalog items", func() error { return app.store.Items.DeleteAll(ctx) }},
		{"agreements", func() error { return app.store.Agreements.DeleteAll(ctx) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to delete "+step.name+": "+err.Error())
			return
		}
	}

	app.logger.Warn("api", "All ingested data deleted")

	resp := &response.APIResponse[any]{Success: true, Message: "all ingested data deleted"}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleFixDescriptions(w http.ResponseWriter, r *http.Request) {
	fixed, err := app.sync.BackfillDescriptions(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to backfill descriptions: "+err.Error())
		return
	}

	resp := &response.APIResponse[map[string]int]{
		Success: true,
		Data:    map[string]int{"fixed": fixed},
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
