package pncp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"atasapi/internal/logger"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		AttemptTimeout: time.Second,
		RetryWait:      time.Millisecond,
	}
}

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		BaseURL:  srv.URL,
		UnitCode: "986001",
		PageSize: 500,
		Policy:   testPolicy(),
	}, logger.New(logger.LevelError))
	return client, srv
}

func TestFetchPageSendsQueryParams(t *testing.T) {
	var gotQuery atomic.Value
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		w.Write([]byte(`{"resultado": [], "totalPaginas": 0, "totalRegistros": 0}`))
	}))

	if _, err := client.FetchPage(context.Background(), 3, DefaultWindow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	query := gotQuery.Load().(url.Values)
	checks := map[string]string{
		"pagina":                    "3",
		"tamanhoPagina":             "500",
		"codigoUnidadeGerenciadora": "986001",
		"dataVigenciaInicialMin":    "2000-01-01",
		"dataVigenciaInicialMax":    "2050-01-01",
	}
	for key, want := range checks {
		if got := query[key]; len(got) != 1 || got[0] != want {
			t.Errorf("query %s = %v, want %s", key, got, want)
		}
	}
}

func TestFetchPageRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"resultado": [], "totalPaginas": 1, "totalRegistros": 0}`))
	}))

	page, err := client.FetchPage(context.Background(), 1, DefaultWindow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalPages != 1 {
		t.Errorf("total pages = %d, want 1", page.TotalPages)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchPageExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := client.FetchPage(context.Background(), 1, DefaultWindow); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRetryPolicyStopsOnParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := RetryPolicy{
		MaxAttempts:    5,
		AttemptTimeout: time.Second,
		RetryWait:      10 * time.Second,
	}

	var attempts int
	start := time.Now()
	err := policy.Do(ctx, func(ctx context.Context, n int) error {
		attempts++
		cancel()
		return errors.New("boom")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	// The retry wait must be abandoned, not served out.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
}

func TestRetryPolicyTimesOutAttempt(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:    2,
		AttemptTimeout: 10 * time.Millisecond,
		RetryWait:      time.Millisecond,
	}

	var attempts int
	err := policy.Do(context.Background(), func(ctx context.Context, n int) error {
		attempts++
		<-ctx.Done()
		return ctx.Err()
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (attempt timeout must retry)", attempts)
	}
}
