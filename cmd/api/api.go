package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"atasapi/internal/logger"
	"atasapi/internal/store"
	"atasapi/internal/sync"
)

type application struct {
	config config
	store  store.Storage
	logger *logger.Logger
	sync   *sync.Service
}

type config struct {
	addr     string
	logLevel string
	db       dbConfig
	sync     syncConfig
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
}

type syncConfig struct {
	baseURL          string
	unitCode         string
	pageSize         int
	pageIntervalMs   int
	launchIntervalMs int
	maxConcurrency   int
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		// Sync runs can take far longer than any sane request timeout, so
		// the timeout middleware only wraps the read routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/agreements", func(r chi.Router) {
				r.Get("/active", app.handleGetActiveAgreements)
				r.Get("/recent", app.handleGetRecentAgreements)
				r.Get("/recently-expired", app.handleGetRecentlyExpiredAgreements)
				r.Get("/search", app.handleSearchAgreements)
				r.Get("/{id}", app.handleGetAgreement)
			})
			r.Route("/items", func(r chi.Router) {
				r.Get("/search", app.handleSearchItems)
				r.Get("/without-agreement", app.handleGetItemsWithoutAgreement)
				r.Get("/{code}", app.handleGetItem)
			})
			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", app.handleGetDashboard)
				r.Get("/history", app.handleGetDashboardHistory)
			})
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/", app.handleRunSync)
			r.Post("/parallel", app.handleRunSyncParallel)
			r.Post("/resume", app.handleResumeSync)
			r.Post("/incremental", app.handleRunSyncIncremental)
			r.Post("/stop", app.handleStopSync)
			r.Post("/fix-descriptions", app.handleFixDescriptions)
			r.Get("/status", app.handleSyncStatus)
			r.Delete("/reset", app.handleResetData)
		})
	})

	return r
}

func (app *application) run(mux http.Handler) error {

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Hour,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}

	log.Printf("Server started on %s", app.config.addr)
	return srv.ListenAndServe()
}
