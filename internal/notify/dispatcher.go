package notify

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leadbridge-au/leadbridge/internal/callevents"
	"github.com/leadbridge-au/leadbridge/internal/dnd"
	"github.com/leadbridge-au/leadbridge/internal/leads"
	"github.com/leadbridge-au/leadbridge/internal/observability/metrics"
	"github.com/leadbridge-au/leadbridge/internal/voice"
	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

var dispatchTracer = otel.Tracer("leadbridge.internal.notify.dispatcher")

// OutcomeKind is the tri-state result of a dispatch.
type OutcomeKind string

const (
	OutcomeSent       OutcomeKind = "sent"
	OutcomeSuppressed OutcomeKind = "suppressed"
	OutcomeFailed     OutcomeKind = "failed"
)

// ReasonDNDHours is the suppression reason for do-not-disturb windows.
const ReasonDNDHours = "DND_HOURS"

// Outcome reports what happened to a dispatched lead.
type Outcome struct {
	Kind   OutcomeKind
	CallID string
	Reason string
	Err    error
}

// Caller is the outbound call-placement capability.
type Caller interface {
	PlaceCall(ctx context.Context, call voice.CallRequest) (string, error)
}

// Alerter delivers operator alerts; implementations must be non-blocking-safe
// to skip (a nil Alerter disables alerts).
type Alerter interface {
	Alert(ctx context.Context, subject, body string) error
}

// Dispatcher orchestrates lead intake: persist, gate on DND, place the
// notification call, and record the attempt.
type Dispatcher struct {
	leads   leads.Store
	events  callevents.Store
	caller  Caller
	alerter Alerter
	baseURL string
	timeout time.Duration
	metrics *metrics.RelayMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// DispatcherConfig wires the dispatcher's collaborators.
type DispatcherConfig struct {
	Leads  leads.Store
	Events callevents.Store
	Caller Caller
	// Alerter is optional; when set, call-placement failures raise an alert.
	Alerter Alerter
	// CallbackBaseURL is the public base for provider-facing webhook URLs.
	CallbackBaseURL string
	// CallTimeout bounds outbound call placement.
	CallTimeout time.Duration
	Metrics     *metrics.RelayMetrics
	Logger      *logging.Logger
}

// NewDispatcher builds a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Leads == nil {
		panic("notify: lead store cannot be nil")
	}
	if cfg.Events == nil {
		panic("notify: call event store cannot be nil")
	}
	if cfg.Caller == nil {
		panic("notify: caller cannot be nil")
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Dispatcher{
		leads:   cfg.Leads,
		events:  cfg.Events,
		caller:  cfg.Caller,
		alerter: cfg.Alerter,
		baseURL: cfg.CallbackBaseURL,
		timeout: cfg.CallTimeout,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Dispatch runs the intake pipeline for one lead. A validation failure is
// returned as an error before any store write; every other path yields an
// Outcome. The lead is always written with status Received before the DND
// check, so a crash mid-dispatch leaves an observable Received record.
func (d *Dispatcher) Dispatch(ctx context.Context, req *leads.SubmitLeadRequest) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	ctx, span := dispatchTracer.Start(ctx, "notify.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("leadbridge.lead_id", req.LeadID))

	now := d.now().UTC()
	lead := leads.NewLead(req, now)
	if err := d.leads.Save(ctx, lead); err != nil {
		span.RecordError(err)
		return d.outcome(Outcome{Kind: OutcomeFailed, Err: err}), nil
	}

	window := dnd.NewWindow(req.DNDStartHour, req.DNDEndHour)
	if window.Suppressed(now) {
		if err := d.leads.UpdateStatus(ctx, lead.LeadID, now, leads.StatusSkippedDND, ""); err != nil {
			d.logger.Error("failed to mark lead skipped", "error", err, "lead_id", lead.LeadID)
		}
		d.logger.Info("lead suppressed by DND window", "lead_id", lead.LeadID)
		return d.outcome(Outcome{Kind: OutcomeSuppressed, Reason: ReasonDNDHours}), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	callID, err := d.caller.PlaceCall(callCtx, voice.CallRequest{
		To:                lead.TradiePhone,
		TwiMLURL:          d.notificationURL(lead),
		StatusCallbackURL: d.callbackURL("/twilio/status"),
	})
	if err != nil {
		span.RecordError(err)
		if updateErr := d.leads.UpdateStatus(ctx, lead.LeadID, now, leads.StatusFailed, ""); updateErr != nil {
			d.logger.Error("failed to mark lead failed", "error", updateErr, "lead_id", lead.LeadID)
		}
		d.alert(ctx, lead, err)
		return d.outcome(Outcome{Kind: OutcomeFailed, Err: err}), nil
	}

	if err := d.leads.UpdateStatus(ctx, lead.LeadID, now, leads.StatusNotified, callID); err != nil {
		d.logger.Error("failed to mark lead notified", "error", err, "lead_id", lead.LeadID, "call_id", callID)
	}

	// Lead and call event writes are not transactional; a crash here leaves
	// a Notified lead with no CallEvent, an accepted inconsistency window.
	event := &callevents.CallEvent{
		CallID:      callID,
		LeadID:      lead.LeadID,
		TradiePhone: lead.TradiePhone,
		JobType:     lead.JobType,
		Location:    lead.Location,
		Status:      callevents.StatusInitiated,
		CreatedAt:   now,
	}
	if err := d.events.Save(ctx, event); err != nil {
		d.logger.Error("failed to record call event", "error", err, "call_id", callID)
	}

	d.logger.Info("notification call dispatched", "lead_id", lead.LeadID, "call_id", callID)
	return d.outcome(Outcome{Kind: OutcomeSent, CallID: callID}), nil
}

func (d *Dispatcher) outcome(o Outcome) Outcome {
	d.metrics.ObserveDispatch(string(o.Kind))
	return o
}

func (d *Dispatcher) notificationURL(lead *leads.Lead) string {
	params := url.Values{}
	params.Set("leadId", lead.LeadID)
	params.Set("date", lead.Date)
	params.Set("customerName", lead.CustomerName)
	params.Set("jobType", lead.JobType)
	params.Set("location", lead.Location)
	if lead.CustomerPhone != "" {
		params.Set("customerPhone", lead.CustomerPhone)
	}
	return d.callbackURL("/twilio/notification") + "?" + params.Encode()
}

func (d *Dispatcher) callbackURL(path string) string {
	return d.baseURL + path
}

func (d *Dispatcher) alert(ctx context.Context, lead *leads.Lead, callErr error) {
	if d.alerter == nil {
		return
	}
	subject := fmt.Sprintf("LeadBridge: call placement failed for lead %s", lead.LeadID)
	body := fmt.Sprintf("Lead %s (%s, %s) could not be dispatched: %v\nThe lead is marked Failed; resubmit manually once the provider recovers.",
		lead.LeadID, lead.JobType, lead.Location, callErr)
	if err := d.alerter.Alert(ctx, subject, body); err != nil {
		d.logger.Error("failed to send ops alert", "error", err, "lead_id", lead.LeadID)
	}
}
