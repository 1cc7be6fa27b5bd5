package sync

import (
	stdsync "sync"
	"testing"
)

func TestProgressSnapshot(t *testing.T) {
	p := NewProgress()
	p.SetInProgress(true)
	p.SetTotalPages(10)
	p.MarkPageDone(500)
	p.MarkPageDone(500)
	p.MarkPageFailed(7)

	s := p.Snapshot()
	if !s.InProgress {
		t.Error("in progress flag lost")
	}
	if s.TotalPages != 10 || s.PagesProcessed != 3 || s.PagesSucceeded != 2 {
		t.Errorf("totals = %d/%d/%d, want 10/3/2", s.TotalPages, s.PagesProcessed, s.PagesSucceeded)
	}
	if s.PagesPending != 7 {
		t.Errorf("pending = %d, want 7", s.PagesPending)
	}
	if s.ItemsProcessed != 1000 {
		t.Errorf("items = %d, want 1000", s.ItemsProcessed)
	}
	if s.PagesFailed != 1 || len(s.FailedPages) != 1 || s.FailedPages[0] != 7 {
		t.Errorf("failed pages = %v", s.FailedPages)
	}
}

func TestProgressResetClearsFailedSet(t *testing.T) {
	p := NewProgress()
	p.SetTotalPages(5)
	p.MarkPageFailed(2)
	p.MarkPageFailed(4)

	p.Reset()

	s := p.Snapshot()
	if s.TotalPages != 0 || s.PagesProcessed != 0 || len(s.FailedPages) != 0 {
		t.Errorf("reset left state behind: %+v", s)
	}
}

func TestProgressFailedPagesSorted(t *testing.T) {
	p := NewProgress()
	p.MarkPageFailed(9)
	p.MarkPageFailed(3)
	p.MarkPageFailed(6)

	pages := p.FailedPages()
	if len(pages) != 3 || pages[0] != 3 || pages[1] != 6 || pages[2] != 9 {
		t.Errorf("pages = %v, want [3 6 9]", pages)
	}

	p.RemoveFailedPage(6)
	pages = p.FailedPages()
	if len(pages) != 2 || pages[0] != 3 || pages[1] != 9 {
		t.Errorf("pages = %v, want [3 9]", pages)
	}
}

func TestProgressConcurrentUpdates(t *testing.T) {
	p := NewProgress()

	var wg stdsync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			if page%5 == 0 {
				p.MarkPageFailed(page)
			} else {
				p.MarkPageDone(10)
			}
		}(i)
	}
	wg.Wait()

	s := p.Snapshot()
	if s.PagesProcessed != 50 {
		t.Errorf("processed = %d, want 50", s.PagesProcessed)
	}
	if s.PagesFailed != 10 {
		t.Errorf("failed = %d, want 10", s.PagesFailed)
	}
	if s.ItemsProcessed != 400 {
		t.Errorf("items = %d, want 400", s.ItemsProcessed)
	}
}
