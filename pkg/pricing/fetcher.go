package pricing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultSourceURL is the default remote price document. Tests override
// the Estimator's URL via httptest.
const DefaultSourceURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

// cacheMaxAge is the freshness ceiling for the local price cache,
// measured from the file's modification time.
const cacheMaxAge = 24 * time.Hour

// fetchRemote performs the single HTTPS GET against the price source and
// returns the raw payload. Non-2xx responses are errors.
func (e *Estimator) fetchRemote(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pricing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch pricing: HTTP %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pricing body: %w", err)
	}
	return payload, nil
}

// loadCache reads the local cache file if it is within the freshness
// ceiling, returning nil when missing, stale, or unreadable.
func (e *Estimator) loadCache() []byte {
	if e.cachePath == "" {
		return nil
	}
	info, err := os.Stat(e.cachePath)
	if err != nil {
		return nil
	}
	if time.Since(info.ModTime()) > cacheMaxAge {
		return nil
	}
	payload, err := os.ReadFile(e.cachePath)
	if err != nil {
		return nil
	}
	return payload
}

// saveCache persists the raw remote payload. Failures are logged and
// otherwise ignored; the in-memory table is already updated.
func (e *Estimator) saveCache(payload []byte) {
	if e.cachePath == "" {
		return
	}
	if err := os.WriteFile(e.cachePath, payload, 0o644); err != nil {
		e.logger.Warn("failed to persist price cache", "path", e.cachePath, "error", err)
	}
}
