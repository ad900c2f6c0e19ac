package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// httpCheck probes a backend with a single GET that costs no tokens.
type httpCheck struct {
	url    string
	bearer string
	client *http.Client
}

// HealthCheck returns nil when url answers with a 2xx status.
func (h *httpCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("provider: health check request: %w", err)
	}
	if h.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+h.bearer)
	}

	client := h.client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider: health check: HTTP %d from %s", resp.StatusCode, h.url)
	}
	return nil
}

func trimSlash(s string) string { return strings.TrimRight(s, "/") }
