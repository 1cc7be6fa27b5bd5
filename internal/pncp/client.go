// Package pncp fetches price registration data from the federal open data
// API, with per-page retry and timeout handling.
package pncp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"atasapi/internal/logger"
)

const DefaultBaseURL = "https://dadosabertos.compras.gov.br/modulo-arp/2_consultarARPItem"

// Window bounds the validity start dates a query covers, as YYYY-MM-DD.
type Window struct {
	Start string
	End   string
}

// DefaultWindow is wide enough to cover everything the API holds.
var DefaultWindow = Window{Start: "2000-01-01", End: "2050-01-01"}

// RetryPolicy retries an operation a fixed number of times, giving each
// attempt its own timeout and pausing between attempts.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryWait      time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	AttemptTimeout: 45 * time.Second,
	RetryWait:      5 * time.Second,
}

// Do runs attempt until it succeeds or the policy is exhausted. Each call
// gets a child context bounded by AttemptTimeout. Cancellation of ctx itself
// stops immediately with ctx.Err(); an attempt that merely timed out is
// retried after RetryWait.
func (p RetryPolicy) Do(ctx context.Context, attempt func(ctx context.Context, n int) error) error {
	var lastErr error
	for n := 1; n <= p.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
		err := attempt(attemptCtx, n)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err

		if n < p.MaxAttempts {
			select {
			case <-time.After(p.RetryWait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", p.MaxAttempts, lastErr)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	unitCode   string
	pageSize   int
	policy     RetryPolicy
	log        *logger.Logger
}

type ClientConfig struct {
	BaseURL  string
	UnitCode string
	PageSize int
	Policy   RetryPolicy
}

func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy = DefaultRetryPolicy
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    cfg.BaseURL,
		unitCode:   cfg.UnitCode,
		pageSize:   cfg.PageSize,
		policy:     cfg.Policy,
		log:        log,
	}
}

// FetchPage retrieves one page of records for the configured managing unit,
// retrying per the client policy.
func (c *Client) FetchPage(ctx context.Context, page int, window Window) (*Page, error) {
	params := url.Values{}
	params.Set("pagina", strconv.Itoa(page))
	params.Set("tamanhoPagina", strconv.Itoa(c.pageSize))
	params.Set("codigoUnidadeGerenciadora", c.unitCode)
	params.Set("dataVigenciaInicialMin", window.Start)
	params.Set("dataVigenciaInicialMax", window.End)
	requestURL := c.baseURL + "?" + params.Encode()

	var result *Page
	err := c.policy.Do(ctx, func(ctx context.Context, n int) error {
		if n > 1 {
			c.log.Warn("pncp", "Retrying page %d (attempt %d/%d)", page, n, c.policy.MaxAttempts)
		}
		p, err := c.fetch(ctx, requestURL)
		if err != nil {
			c.log.Warn("pncp", "Page %d attempt %d failed: %v", page, n, err)
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching page %d: %w", page, err)
	}
	return result, nil
}

func (c *Client) fetch(ctx context.Context, requestURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &page, nil
}
