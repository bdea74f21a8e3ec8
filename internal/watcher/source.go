package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leadbridge-au/leadbridge/internal/leads"
)

// HTTPSource fetches the marketplace's current lead listings as JSON.
type HTTPSource struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSource builds a source polling the given endpoint.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if url == "" {
		panic("watcher: source url cannot be empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchLeads returns the leads currently visible at the source endpoint.
func (s *HTTPSource) FetchLeads(ctx context.Context) ([]leads.SubmitLeadRequest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("watcher: build source request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watcher: fetch leads: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watcher: source returned status %d", resp.StatusCode)
	}

	var listings []leads.SubmitLeadRequest
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return nil, fmt.Errorf("watcher: decode source payload: %w", err)
	}
	return listings, nil
}
