package sync

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Progress tracks the state of the current (or most recent) run. Counters
// are updated from multiple page workers, so everything here is safe for
// concurrent use.
type Progress struct {
	inProgress     atomic.Bool
	totalPages     atomic.Int64
	pagesProcessed atomic.Int64
	pagesSucceeded atomic.Int64
	itemsProcessed atomic.Int64

	mu          sync.Mutex
	failedPages map[int]struct{}
}

func NewProgress() *Progress {
	return &Progress{failedPages: make(map[int]struct{})}
}

// Reset clears all counters and the failed page set, ready for a new run.
func (p *Progress) Reset() {
	p.totalPages.Store(0)
	p.pagesProcessed.Store(0)
	p.pagesSucceeded.Store(0)
	p.itemsProcessed.Store(0)

	p.mu.Lock()
	p.failedPages = make(map[int]struct{})
	p.mu.Unlock()
}

func (p *Progress) SetInProgress(v bool) {
	p.inProgress.Store(v)
}

func (p *Progress) InProgress() bool {
	return p.inProgress.Load()
}

func (p *Progress) SetTotalPages(n int) {
	p.totalPages.Store(int64(n))
}

// MarkPageDone records a successfully processed page carrying n items.
func (p *Progress) MarkPageDone(items int) {
	p.pagesProcessed.Add(1)
	p.pagesSucceeded.Add(1)
	p.itemsProcessed.Add(int64(items))
}

// AddItems credits reprocessed items to the running total without touching
// the page counters, which already counted the page when it first failed.
func (p *Progress) AddItems(n int) {
	p.itemsProcessed.Add(int64(n))
}

// MarkPageFailed records a page that exhausted its retries. The page lands
// in the failed set so a later resume can pick it up.
func (p *Progress) MarkPageFailed(page int) {
	p.pagesProcessed.Add(1)

	p.mu.Lock()
	p.failedPages[page] = struct{}{}
	p.mu.Unlock()
}

// RemoveFailedPage drops a page from the failed set after a resume
// reprocessed it successfully.
func (p *Progress) RemoveFailedPage(page int) {
	p.mu.Lock()
	delete(p.failedPages, page)
	p.mu.Unlock()
}

// FailedPages returns the failed set in ascending order.
func (p *Progress) FailedPages() []int {
	p.mu.Lock()
	pages := make([]int, 0, len(p.failedPages))
	for page := range p.failedPages {
		pages = append(pages, page)
	}
	p.mu.Unlock()

	sort.Ints(pages)
	return pages
}

// Status is the JSON projection of Progress served by the status endpoint.
type Status struct {
	InProgress          bool    `json:"inProgress"`
	TotalPages          int     `json:"totalPages"`
	PagesProcessed      int     `json:"pagesProcessed"`
	PagesSucceeded      int     `json:"pagesSucceeded"`
	PagesPending        int     `json:"pagesPending"`
	PagesFailed         int     `json:"pagesFailed"`
	ItemsProcessed      int     `json:"itemsProcessed"`
	FailedPages         []int   `json:"failedPages"`
	LastSync            *string `json:"lastSync"`
	LatestValidityStart *string `json:"latestValidityStart"`
	TotalAgreements     int     `json:"totalAgreements"`
}

// Snapshot captures the counters at a point in time. Pending never goes
// negative even if total pages is not known yet.
func (p *Progress) Snapshot() Status {
	total := int(p.totalPages.Load())
	processed := int(p.pagesProcessed.Load())
	pending := total - processed
	if pending < 0 {
		pending = 0
	}

	failed := p.FailedPages()
	return Status{
		InProgress:     p.inProgress.Load(),
		TotalPages:     total,
		PagesProcessed: processed,
		PagesSucceeded: int(p.pagesSucceeded.Load()),
		PagesPending:   pending,
		PagesFailed:    len(failed),
		ItemsProcessed: int(p.itemsProcessed.Load()),
		FailedPages:    failed,
	}
}
