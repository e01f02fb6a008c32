package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/bookbin/internal/config"
)

const maxBody = 4 << 20

// errNotFound marks a definitive empty answer that must not be retried.
var errNotFound = errors.New("not found")

// fetcher runs bounded, retried and paced GET requests for one source.
type fetcher struct {
	name      string
	client    *http.Client
	userAgent string
	timeout   time.Duration
	attempts  int
	delay     time.Duration
	gate      *gate
}

func newFetcher(name string, src config.Source, cfg config.Config, client *http.Client) *fetcher {
	if client == nil {
		client = &http.Client{}
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &fetcher{
		name:      name,
		client:    client,
		userAgent: cfg.UserAgent,
		timeout:   src.Timeout,
		attempts:  attempts,
		delay:     cfg.RetryDelay,
		gate:      newGate(src.Interval),
	}
}

// fetch performs one paced attempt sequence against url.
// parse returns errNotFound for a well-formed empty answer.
func (f *fetcher) fetch(ctx context.Context, identifier, url string, parse func([]byte) (*Record, error)) (*Record, bool) {
	var rec *Record
	err := f.gate.do(ctx, func() {
		rec = f.retry(ctx, identifier, url, parse)
	})
	if err != nil {
		slog.Warn("catalog request skipped", "source", f.name, "identifier", identifier, "error", err)
		return nil, false
	}
	return rec, rec != nil
}

func (f *fetcher) retry(ctx context.Context, identifier, url string, parse func([]byte) (*Record, error)) *Record {
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 && !sleep(ctx, f.delay) {
			return nil
		}

		body, err := f.get(ctx, url)
		if err == nil {
			var rec *Record
			rec, err = parse(body)
			if err == nil {
				rec.Source = f.name
				return rec
			}
		}
		if errors.Is(err, errNotFound) {
			slog.Info("no catalog data", "source", f.name, "identifier", identifier)
			return nil
		}

		slog.Warn("catalog request failed",
			"source", f.name, "identifier", identifier,
			"attempt", attempt, "max_attempts", f.attempts, "error", err)
		if ctx.Err() != nil {
			return nil
		}
	}

	slog.Warn("catalog attempts exhausted", "source", f.name, "identifier", identifier)
	return nil
}

func (f *fetcher) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// sleep waits for d or until ctx is done. It reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
