// Package sync drives ingestion runs against the open data API: full
// sequential crawls, bounded-concurrency parallel crawls, incremental
// windows and resumption of failed pages.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"atasapi/internal/logger"
	"atasapi/internal/pncp"
	"atasapi/internal/store"
)

// LastSyncKey is the system_config key holding the completion time of the
// most recent run that ingested data.
const LastSyncKey = "last_sync"

// Fetcher retrieves one page of records.
type Fetcher interface {
	FetchPage(ctx context.Context, page int, window pncp.Window) (*pncp.Page, error)
}

type Config struct {
	// PageInterval is the pause between consecutive page fetches in a
	// sequential run.
	PageInterval time.Duration
	// LaunchInterval throttles how fast a parallel run starts page workers.
	LaunchInterval time.Duration
	// MaxConcurrency caps in-flight page workers of a parallel run.
	MaxConcurrency int
	UnitCode       string
}

// Result summarizes a finished (or aborted) run.
type Result struct {
	RunID          string   `json:"runId"`
	Success        bool     `json:"success"`
	Cancelled      bool     `json:"cancelled"`
	Message        string   `json:"message"`
	PagesProcessed int      `json:"pagesProcessed"`
	TotalPages     int      `json:"totalPages"`
	ItemsProcessed int      `json:"itemsProcessed"`
	NewAgreements  int      `json:"newAgreements"`
	NewLineItems   int      `json:"newLineItems"`
	Errors         []string `json:"errors,omitempty"`
}

// ErrRunInProgress is returned when a run is requested while another one
// holds the lock.
var ErrRunInProgress = fmt.Errorf("a sync run is already in progress")

type Service struct {
	storage  *store.Storage
	fetcher  Fetcher
	rec      *Reconciler
	log      *logger.Logger
	cfg      Config
	progress *Progress

	runMu stdsync.Mutex

	cancelMu stdsync.Mutex
	cancel   context.CancelFunc
}

func NewService(storage *store.Storage, fetcher Fetcher, log *logger.Logger, cfg Config) *Service {
	if cfg.PageInterval <= 0 {
		cfg.PageInterval = time.Second
	}
	if cfg.LaunchInterval <= 0 {
		cfg.LaunchInterval = time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 10
	}
	return &Service{
		storage:  storage,
		fetcher:  fetcher,
		rec:      NewReconciler(storage, log, cfg.UnitCode),
		log:      log,
		cfg:      cfg,
		progress: NewProgress(),
	}
}

// Run performs a full sequential crawl over the default validity window.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	return s.runWindow(ctx, pncp.DefaultWindow)
}

// RunIncremental crawls only the window that can contain agreements newer
// than what is already stored. With an empty database it falls back to a
// full run.
func (s *Service) RunIncremental(ctx context.Context) (*Result, error) {
	maxStart, err := s.storage.Agreements.MaxValidityStart(ctx)
	if err != nil {
		return nil, err
	}
	if maxStart == nil {
		s.log.Info("sync", "No agreements stored yet, falling back to full run")
		return s.Run(ctx)
	}

	window := pncp.Window{
		Start: maxStart.AddDate(0, 0, -1).Format("2006-01-02"),
		End:   time.Now().UTC().AddDate(0, 0, 365).Format("2006-01-02"),
	}
	s.log.Info("sync", "Incremental run over window %s..%s", window.Start, window.End)
	return s.runWindow(ctx, window)
}

func (s *Service) runWindow(ctx context.Context, window pncp.Window) (*Result, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	ctx = s.armCancel(ctx)
	defer s.disarmCancel()

	s.progress.Reset()
	s.progress.SetInProgress(true)
	defer s.progress.SetInProgress(false)

	result := &Result{RunID: uuid.New().String()}
	s.log.Info("sync", "Run %s started (window %s..%s)", result.RunID, window.Start, window.End)

	first, err := s.fetcher.FetchPage(ctx, 1, window)
	if err != nil {
		result.Message = fmt.Sprintf("failed to fetch first page: %v", err)
		result.Errors = append(result.Errors, result.Message)
		return result, nil
	}

	s.progress.SetTotalPages(first.TotalPages)
	result.TotalPages = first.TotalPages

	if first.TotalRecords == 0 || len(first.Records) == 0 {
		result.Success = true
		result.Message = "no records in window"
		s.log.Info("sync", "Run %s: nothing to ingest", result.RunID)
		return result, nil
	}

	s.processPage(ctx, first, result)

	for page := 2; page <= first.TotalPages; page++ {
		if ctx.Err() != nil {
			return s.finalizeCancelled(ctx, result), nil
		}

		select {
		case <-time.After(s.cfg.PageInterval):
		case <-ctx.Done():
			return s.finalizeCancelled(ctx, result), nil
		}

		p, err := s.fetcher.FetchPage(ctx, page, window)
		if err != nil {
			if ctx.Err() != nil {
				return s.finalizeCancelled(ctx, result), nil
			}
			s.log.Error("sync", "Page %d failed, recorded for resume: %v", page, err)
			s.progress.MarkPageFailed(page)
			result.Errors = append(result.Errors, fmt.Sprintf("page %d: %v", page, err))
			result.PagesProcessed++
			continue
		}
		s.processPage(ctx, p, result)
	}

	return s.finalize(ctx, result), nil
}

// ParallelConfig overrides the service defaults for one parallel run. Zero
// values fall back to the configured defaults.
type ParallelConfig struct {
	LaunchInterval time.Duration
	MaxConcurrency int
}

// RunParallel performs a full crawl fetching pages concurrently. Worker
// launches are throttled by LaunchInterval and in-flight workers are capped
// by MaxConcurrency.
func (s *Service) RunParallel(ctx context.Context, pcfg ParallelConfig) (*Result, error) {
	if pcfg.LaunchInterval <= 0 {
		pcfg.LaunchInterval = s.cfg.LaunchInterval
	}
	if pcfg.MaxConcurrency <= 0 {
		pcfg.MaxConcurrency = s.cfg.MaxConcurrency
	}

	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	ctx = s.armCancel(ctx)
	defer s.disarmCancel()

	s.progress.Reset()
	s.progress.SetInProgress(true)
	defer s.progress.SetInProgress(false)

	window := pncp.DefaultWindow
	result := &Result{RunID: uuid.New().String()}
	s.log.Info("sync", "Parallel run %s started (concurrency %d)", result.RunID, pcfg.MaxConcurrency)

	first, err := s.fetcher.FetchPage(ctx, 1, window)
	if err != nil {
		result.Message = fmt.Sprintf("failed to fetch first page: %v", err)
		result.Errors = append(result.Errors, result.Message)
		return result, nil
	}

	s.progress.SetTotalPages(first.TotalPages)
	result.TotalPages = first.TotalPages

	if first.TotalRecords == 0 || len(first.Records) == 0 {
		result.Success = true
		result.Message = "no records in window"
		return result, nil
	}

	var resultMu stdsync.Mutex
	s.processPageLocked(ctx, first, result, &resultMu)

	sem := make(chan struct{}, pcfg.MaxConcurrency)
	var wg stdsync.WaitGroup

launch:
	for page := 2; page <= first.TotalPages; page++ {
		select {
		case <-ctx.Done():
			break launch
		case <-time.After(pcfg.LaunchInterval):
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break launch
		}

		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			defer func() { <-sem }()

			p, err := s.fetcher.FetchPage(ctx, page, window)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Error("sync", "Page %d failed, recorded for resume: %v", page, err)
				}
				s.progress.MarkPageFailed(page)
				resultMu.Lock()
				result.Errors = append(result.Errors, fmt.Sprintf("page %d: %v", page, err))
				result.PagesProcessed++
				resultMu.Unlock()
				return
			}
			s.processPageLocked(ctx, p, result, &resultMu)
		}(page)
	}

	wg.Wait()

	if ctx.Err() != nil {
		return s.finalizeCancelled(ctx, result), nil
	}
	return s.finalize(ctx, result), nil
}

// Resume reprocesses only the pages that failed in the previous run. With
// nothing in the failed set it reports success without taking the run lock.
func (s *Service) Resume(ctx context.Context) (*Result, error) {
	pages := s.progress.FailedPages()
	if len(pages) == 0 {
		return &Result{
			RunID:   uuid.New().String(),
			Success: true,
			Message: "no failed pages to resume",
		}, nil
	}

	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	ctx = s.armCancel(ctx)
	defer s.disarmCancel()

	s.progress.SetInProgress(true)
	defer s.progress.SetInProgress(false)

	result := &Result{RunID: uuid.New().String()}
	s.log.Info("sync", "Resume %s: reprocessing %d failed pages", result.RunID, len(pages))

	for i, page := range pages {
		if ctx.Err() != nil {
			return s.finalizeCancelled(ctx, result), nil
		}
		if i > 0 {
			select {
			case <-time.After(s.cfg.PageInterval):
			case <-ctx.Done():
				return s.finalizeCancelled(ctx, result), nil
			}
		}

		p, err := s.fetcher.FetchPage(ctx, page, pncp.DefaultWindow)
		if err != nil {
			if ctx.Err() != nil {
				return s.finalizeCancelled(ctx, result), nil
			}
			s.log.Error("sync", "Page %d failed again: %v", page, err)
			result.Errors = append(result.Errors, fmt.Sprintf("page %d: %v", page, err))
			result.PagesProcessed++
			continue
		}

		pr := s.rec.ProcessPage(ctx, p)
		s.progress.AddItems(pr.Processed)
		s.progress.RemoveFailedPage(page)
		result.PagesProcessed++
		result.ItemsProcessed += pr.Processed
		result.NewAgreements += pr.NewAgreements
		result.NewLineItems += pr.NewLineItems
	}

	remaining := len(s.progress.FailedPages())
	result.Success = remaining == 0
	if result.Success {
		result.Message = fmt.Sprintf("resumed %d pages", result.PagesProcessed)
	} else {
		result.Message = fmt.Sprintf("resumed %d pages, %d still failing", result.PagesProcessed, remaining)
	}
	if result.ItemsProcessed > 0 {
		s.registerLastSync(ctx)
	}
	s.log.Info("sync", "Resume %s finished: %s", result.RunID, result.Message)
	return result, nil
}

// Stop cancels the in-flight run, if any. It reports whether there was one.
func (s *Service) Stop() bool {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Status returns the live progress plus stored context: last sync marker,
// newest validity start and agreement count.
func (s *Service) Status(ctx context.Context) (Status, error) {
	status := s.progress.Snapshot()

	lastSync, err := s.storage.Config.Get(ctx, LastSyncKey)
	if err != nil {
		return status, err
	}
	if lastSync != "" {
		status.LastSync = &lastSync
	}

	maxStart, err := s.storage.Agreements.MaxValidityStart(ctx)
	if err != nil {
		return status, err
	}
	if maxStart != nil {
		v := maxStart.Format("2006-01-02")
		status.LatestValidityStart = &v
	}

	count, err := s.storage.Agreements.Count(ctx)
	if err != nil {
		return status, err
	}
	status.TotalAgreements = count

	return status, nil
}

// BackfillDescriptions exposes the description repair pass.
func (s *Service) BackfillDescriptions(ctx context.Context) (int, error) {
	return s.rec.BackfillDescriptions(ctx)
}

func (s *Service) processPage(ctx context.Context, p *pncp.Page, result *Result) {
	pr := s.rec.ProcessPage(ctx, p)
	s.progress.MarkPageDone(pr.Processed)
	result.PagesProcessed++
	result.ItemsProcessed += pr.Processed
	result.NewAgreements += pr.NewAgreements
	result.NewLineItems += pr.NewLineItems
}

func (s *Service) processPageLocked(ctx context.Context, p *pncp.Page, result *Result, mu *stdsync.Mutex) {
	pr := s.rec.ProcessPage(ctx, p)
	s.progress.MarkPageDone(pr.Processed)

	mu.Lock()
	result.PagesProcessed++
	result.ItemsProcessed += pr.Processed
	result.NewAgreements += pr.NewAgreements
	result.NewLineItems += pr.NewLineItems
	mu.Unlock()
}

func (s *Service) finalize(ctx context.Context, result *Result) *Result {
	failed := len(s.progress.FailedPages())
	result.Success = failed == 0
	if result.Success {
		result.Message = fmt.Sprintf("processed %d pages, %d records", result.PagesProcessed, result.ItemsProcessed)
	} else {
		result.Message = fmt.Sprintf("processed %d pages, %d records, %d pages failed", result.PagesProcessed, result.ItemsProcessed, failed)
	}
	s.registerLastSync(ctx)
	s.log.Info("sync", "Run %s finished: %s", result.RunID, result.Message)
	return result
}

func (s *Service) finalizeCancelled(ctx context.Context, result *Result) *Result {
	result.Cancelled = true
	result.Message = fmt.Sprintf("cancelled after %d pages", result.PagesProcessed)
	if result.ItemsProcessed > 0 {
		s.registerLastSync(ctx)
	}
	s.log.Warn("sync", "Run %s cancelled", result.RunID)
	return result
}

// registerLastSync persists the marker even when the run context was
// cancelled after data was ingested.
func (s *Service) registerLastSync(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.storage.Config.Set(ctx, LastSyncKey, now, "completion time of the last data sync"); err != nil {
		s.log.Error("sync", "Failed to record last sync marker: %v", err)
	}
}

func (s *Service) armCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelMu.Lock()
	s.cancel = cancel
	s.cancelMu.Unlock()
	return ctx
}

func (s *Service) disarmCancel() {
	s.cancelMu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.cancelMu.Unlock()
}
