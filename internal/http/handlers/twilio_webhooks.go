package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/leadbridge-au/leadbridge/internal/callevents"
	"github.com/leadbridge-au/leadbridge/internal/leads"
	"github.com/leadbridge-au/leadbridge/internal/observability/metrics"
	"github.com/leadbridge-au/leadbridge/internal/voice"
	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

type twimlBuilder interface {
	NotificationTwiML(p voice.NotificationParams) (string, error)
	BridgeTwiML(customerPhone, actionURL string) (string, error)
	SkipTwiML() (string, error)
	InvalidInputTwiML() (string, error)
	UnavailableTwiML() (string, error)
}

// TwilioWebhookHandler serves the provider-facing callbacks that drive the
// notification call flow.
type TwilioWebhookHandler struct {
	twiml     twimlBuilder
	leads     leads.Store
	events    callevents.Store
	authToken string
	logger    *logging.Logger
	metrics   *metrics.RelayMetrics
}

// TwilioWebhookConfig wires the webhook handler's collaborators.
type TwilioWebhookConfig struct {
	TwiML  twimlBuilder
	Leads  leads.Store
	Events callevents.Store
	// AuthToken enables request signature validation. Leave empty only in
	// local development; every callback is then accepted unverified.
	AuthToken string
	Logger    *logging.Logger
	Metrics   *metrics.RelayMetrics
}

// NewTwilioWebhookHandler builds the webhook handler.
func NewTwilioWebhookHandler(cfg TwilioWebhookConfig) *TwilioWebhookHandler {
	if cfg.TwiML == nil {
		panic("handlers: twiml builder cannot be nil")
	}
	if cfg.Leads == nil {
		panic("handlers: lead store cannot be nil")
	}
	if cfg.Events == nil {
		panic("handlers: call event store cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &TwilioWebhookHandler{
		twiml:     cfg.TwiML,
		leads:     cfg.Leads,
		events:    cfg.Events,
		authToken: cfg.AuthToken,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// HandleNotification answers the outbound call with the spoken lead summary
// and a one-digit gather. Twilio fetches this with the lead context the
// dispatcher placed in the query string.
func (h *TwilioWebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.verify(r) {
		h.reject(w, "notification")
		return
	}

	q := r.URL.Query()
	action := tradieResponseAction(q)

	twiml, err := h.twiml.NotificationTwiML(voice.NotificationParams{
		CustomerName: q.Get("customerName"),
		JobType:      q.Get("jobType"),
		Location:     q.Get("location"),
		ActionURL:    action,
	})
	if err != nil {
		h.logger.Error("failed to build notification twiml", "error", err, "lead_id", q.Get("leadId"))
		h.metrics.ObserveCallback("notification", "error")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveCallback("notification", "ok")
	h.metrics.ObserveCallbackLatency("notification", time.Since(start).Seconds())
	writeTwiML(w, twiml)
}

// HandleTradieResponse processes the gathered keypress. Press 1 bridges the
// tradie to the customer, press 2 skips the lead, anything else replays the
// options and hangs up.
func (h *TwilioWebhookHandler) HandleTradieResponse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.verify(r) {
		h.reject(w, "tradie_response")
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	digits := r.PostForm.Get("Digits")
	leadID := q.Get("leadId")

	var (
		twiml string
		err   error
	)
	switch digits {
	case "1":
		customerPhone := q.Get("customerPhone")
		if customerPhone == "" {
			h.logger.Warn("bridge requested but no customer number on file", "lead_id", leadID)
			twiml, err = h.twiml.UnavailableTwiML()
			break
		}
		h.markCallingCustomer(r, leadID, q.Get("date"))
		twiml, err = h.twiml.BridgeTwiML(customerPhone, "/twilio/call-complete")
	case "2":
		h.logger.Info("tradie skipped lead", "lead_id", leadID)
		twiml, err = h.twiml.SkipTwiML()
	default:
		h.logger.Info("unrecognised keypress", "lead_id", leadID, "digits", digits)
		twiml, err = h.twiml.InvalidInputTwiML()
	}
	if err != nil {
		h.logger.Error("failed to build response twiml", "error", err, "lead_id", leadID)
		h.metrics.ObserveCallback("tradie_response", "error")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveCallback("tradie_response", "ok")
	h.metrics.ObserveCallbackLatency("tradie_response", time.Since(start).Seconds())
	writeTwiML(w, twiml)
}

// HandleStatus records call lifecycle status callbacks against the call event.
func (h *TwilioWebhookHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.verify(r) {
		h.reject(w, "status")
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	callID := r.PostForm.Get("CallSid")
	rawStatus := r.PostForm.Get("CallStatus")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	err := h.events.UpdateStatus(r.Context(), callID, mapProviderStatus(rawStatus))
	switch {
	case errors.Is(err, callevents.ErrCallEventNotFound):
		// Unknown call ids are acknowledged so the provider stops retrying.
		h.logger.Warn("status callback for unknown call", "call_id", callID, "status", rawStatus)
		h.metrics.ObserveCallback("status", "miss")
	case err != nil:
		h.logger.Error("failed to update call status", "error", err, "call_id", callID)
		h.metrics.ObserveCallback("status", "error")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	default:
		h.metrics.ObserveCallback("status", "ok")
	}

	h.metrics.ObserveCallbackLatency("status", time.Since(start).Seconds())
	writeOK(w)
}

// HandleCallComplete records the bridged call's duration once the dial leg
// finishes.
func (h *TwilioWebhookHandler) HandleCallComplete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.verify(r) {
		h.reject(w, "call_complete")
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	callID := r.PostForm.Get("CallSid")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	duration := 0
	for _, field := range []string{"CallDuration", "DialCallDuration"} {
		if raw := r.PostForm.Get(field); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				duration = parsed
				break
			}
		}
	}

	rawStatus := r.PostForm.Get("DialCallStatus")
	if rawStatus == "" {
		rawStatus = r.PostForm.Get("CallStatus")
	}
	status := callevents.StatusCompleted
	if rawStatus != "" {
		status = mapProviderStatus(rawStatus)
	}

	err := h.events.UpdateDuration(r.Context(), callID, duration, status)
	switch {
	case errors.Is(err, callevents.ErrCallEventNotFound):
		h.logger.Warn("completion callback for unknown call", "call_id", callID)
		h.metrics.ObserveCallback("call_complete", "miss")
	case err != nil:
		h.logger.Error("failed to record call duration", "error", err, "call_id", callID)
		h.metrics.ObserveCallback("call_complete", "error")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	default:
		h.metrics.ObserveCallback("call_complete", "ok")
	}

	h.metrics.ObserveCallbackLatency("call_complete", time.Since(start).Seconds())
	writeOK(w)
}

func (h *TwilioWebhookHandler) verify(r *http.Request) bool {
	if h.authToken == "" {
		return true
	}
	return voice.ValidateSignature(r, h.authToken, voice.BuildAbsoluteURL(r))
}

func (h *TwilioWebhookHandler) reject(w http.ResponseWriter, endpoint string) {
	h.logger.Warn("invalid webhook signature", "endpoint", endpoint)
	h.metrics.ObserveCallback(endpoint, "rejected")
	http.Error(w, "invalid signature", http.StatusForbidden)
}

// markCallingCustomer flags the lead while the bridge dials out. Failures are
// logged only; the call flow must not stall on a bookkeeping write.
func (h *TwilioWebhookHandler) markCallingCustomer(r *http.Request, leadID, date string) {
	if leadID == "" || date == "" {
		return
	}
	receivedDate, err := time.Parse(leads.DateLayout, date)
	if err != nil {
		h.logger.Warn("unparseable date on tradie response", "lead_id", leadID, "date", date)
		return
	}
	if err := h.leads.UpdateStatus(r.Context(), leadID, receivedDate, leads.StatusCallingCustomer, ""); err != nil {
		h.logger.Error("failed to mark lead calling customer", "error", err, "lead_id", leadID)
	}
}

// tradieResponseAction builds the relative gather action URL, carrying the
// lead context forward so the keypress handler can act on it.
func tradieResponseAction(q url.Values) string {
	params := url.Values{}
	params.Set("leadId", q.Get("leadId"))
	if date := q.Get("date"); date != "" {
		params.Set("date", date)
	}
	if phone := q.Get("customerPhone"); phone != "" {
		params.Set("customerPhone", phone)
	}
	return "/twilio/tradie-response?" + params.Encode()
}

// mapProviderStatus normalises Twilio call statuses onto the call event
// lifecycle. Unknown values pass through untouched.
func mapProviderStatus(raw string) callevents.Status {
	switch raw {
	case "queued", "initiated":
		return callevents.StatusInitiated
	case "ringing":
		return callevents.StatusRinging
	case "in-progress", "answered":
		return callevents.StatusAnswered
	case "completed":
		return callevents.StatusCompleted
	case "busy", "failed", "no-answer", "canceled":
		return callevents.StatusFailed
	default:
		return callevents.Status(raw)
	}
}

func writeTwiML(w http.ResponseWriter, twiml string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(twiml))
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
