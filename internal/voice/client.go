package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

var callTracer = otel.Tracer("leadbridge.internal.voice.twilio")

const defaultTwilioBaseURL = "https://api.twilio.com"

// CallRequest describes one outbound notification call to place.
type CallRequest struct {
	// To is the tradie's phone number in E.164 form.
	To string
	// TwiMLURL is fetched by the provider when the call connects.
	TwiMLURL string
	// StatusCallbackURL receives initiated/ringing/answered/completed events.
	StatusCallbackURL string
}

// TwilioClient places calls through Twilio's REST API.
type TwilioClient struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// TwilioConfig configures the outbound call client.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	// BaseURL overrides the Twilio API base URL (for testing).
	BaseURL string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// NewTwilioClient builds a call client with sane defaults.
func NewTwilioClient(cfg TwilioConfig) (*TwilioClient, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("voice: twilio credentials required")
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, errors.New("voice: twilio from number required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioClient{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// PlaceCall creates an outbound call and returns the provider call id.
func (c *TwilioClient) PlaceCall(ctx context.Context, call CallRequest) (string, error) {
	if call.To == "" {
		return "", errors.New("voice: to required")
	}
	if call.TwiMLURL == "" {
		return "", errors.New("voice: twiml url required")
	}

	ctx, span := callTracer.Start(ctx, "voice.twilio.place_call")
	defer span.End()
	span.SetAttributes(attribute.String("leadbridge.to", call.To))

	payload := url.Values{}
	payload.Set("To", call.To)
	payload.Set("From", c.from)
	payload.Set("Url", call.TwiMLURL)
	if call.StatusCallbackURL != "" {
		payload.Set("StatusCallback", call.StatusCallbackURL)
		payload.Set("StatusCallbackMethod", http.MethodPost)
		for _, event := range []string{"initiated", "ringing", "answered", "completed"} {
			payload.Add("StatusCallbackEvent", event)
		}
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return "", fmt.Errorf("voice: build call request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("voice: place call: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("voice: place call failed: %s", formatTwilioError(resp.StatusCode, body))
		span.RecordError(err)
		return "", err
	}

	var parsed struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.SID == "" {
		return "", fmt.Errorf("voice: place call: missing call sid in response")
	}

	c.logger.Info("call placed", "call_sid", parsed.SID, "to", call.To)
	return parsed.SID, nil
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
