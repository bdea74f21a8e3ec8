package watcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/leadbridge-au/leadbridge/internal/leads"
)

// HTTPForwarder posts new leads to the relay backend.
type HTTPForwarder struct {
	backendURL string
	httpClient *http.Client
}

// NewHTTPForwarder builds a forwarder targeting the backend base URL.
func NewHTTPForwarder(backendURL string, timeout time.Duration) *HTTPForwarder {
	if backendURL == "" {
		panic("watcher: backend url cannot be empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPForwarder{
		backendURL: strings.TrimRight(backendURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forward submits one lead to POST /newlead. Any non-2xx reply is an error;
// the caller must not mark the lead seen so a later cycle retries it.
func (f *HTTPForwarder) Forward(ctx context.Context, lead leads.SubmitLeadRequest) error {
	body, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("watcher: marshal lead %s: %w", lead.LeadID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.backendURL+"/newlead", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("watcher: build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("watcher: forward lead %s: %w", lead.LeadID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("watcher: backend rejected lead %s with status %d", lead.LeadID, resp.StatusCode)
	}
	return nil
}
