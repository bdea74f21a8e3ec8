package watcher

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leadbridge-au/leadbridge/internal/leads"
	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

// Source yields the leads currently visible at the marketplace.
type Source interface {
	FetchLeads(ctx context.Context) ([]leads.SubmitLeadRequest, error)
}

// Forwarder submits one lead to the relay backend.
type Forwarder interface {
	Forward(ctx context.Context, lead leads.SubmitLeadRequest) error
}

// Tracker remembers which lead ids were already forwarded.
type Tracker interface {
	Seen(ctx context.Context, leadID string) (bool, error)
	MarkSeen(ctx context.Context, leadID string) error
}

// LeadDefaults are stamped onto forwarded leads that do not carry their own
// values. The marketplace feed never knows the tradie's number or quiet
// hours; those belong to this agent's owner.
type LeadDefaults struct {
	TradiePhone  string
	DNDStartHour *int
	DNDEndHour   *int
}

// Watcher polls the marketplace and forwards unseen leads to the backend.
type Watcher struct {
	source    Source
	forwarder Forwarder
	tracker   Tracker
	defaults  LeadDefaults
	interval  time.Duration
	logger    *logging.Logger
}

// Config wires the watcher's collaborators.
type Config struct {
	Source       Source
	Forwarder    Forwarder
	Tracker      Tracker
	Defaults     LeadDefaults
	PollInterval time.Duration
	Logger       *logging.Logger
}

// New builds a watcher.
func New(cfg Config) *Watcher {
	if cfg.Source == nil {
		panic("watcher: source cannot be nil")
	}
	if cfg.Forwarder == nil {
		panic("watcher: forwarder cannot be nil")
	}
	if cfg.Tracker == nil {
		panic("watcher: tracker cannot be nil")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Watcher{
		source:    cfg.Source,
		forwarder: cfg.Forwarder,
		tracker:   cfg.Tracker,
		defaults:  cfg.Defaults,
		interval:  cfg.PollInterval,
		logger:    cfg.Logger,
	}
}

// Run polls until the context is cancelled. The first cycle fires
// immediately rather than waiting out a full interval.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll runs one fetch-dedup-forward cycle. A lead id is marked seen only
// after the backend accepts it, so transient failures are retried on the
// next cycle.
func (w *Watcher) Poll(ctx context.Context) {
	cycleID := uuid.NewString()
	log := w.logger.With("cycle_id", cycleID)

	listings, err := w.source.FetchLeads(ctx)
	if err != nil {
		log.Error("failed to fetch leads", "error", err)
		return
	}

	forwarded := 0
	for _, lead := range listings {
		if lead.LeadID == "" {
			log.Warn("skipping listing without lead id")
			continue
		}
		seen, err := w.tracker.Seen(ctx, lead.LeadID)
		if err != nil {
			log.Error("dedup lookup failed", "error", err, "lead_id", lead.LeadID)
			continue
		}
		if seen {
			continue
		}

		if err := w.forwarder.Forward(ctx, w.applyDefaults(lead)); err != nil {
			log.Error("failed to forward lead", "error", err, "lead_id", lead.LeadID)
			continue
		}
		if err := w.tracker.MarkSeen(ctx, lead.LeadID); err != nil {
			// The backend has the lead; the worst case on the next cycle
			// is one duplicate submission, which the backend upserts.
			log.Error("failed to mark lead seen", "error", err, "lead_id", lead.LeadID)
		}
		forwarded++
	}

	if forwarded > 0 || len(listings) > 0 {
		log.Info("poll cycle complete", "listings", len(listings), "forwarded", forwarded)
	}
}

func (w *Watcher) applyDefaults(lead leads.SubmitLeadRequest) leads.SubmitLeadRequest {
	if lead.TradiePhone == "" {
		lead.TradiePhone = w.defaults.TradiePhone
	}
	if lead.DNDStartHour == nil {
		lead.DNDStartHour = w.defaults.DNDStartHour
	}
	if lead.DNDEndHour == nil {
		lead.DNDEndHour = w.defaults.DNDEndHour
	}
	return lead
}
