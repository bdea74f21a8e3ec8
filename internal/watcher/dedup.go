package watcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

// seenCap bounds the dedup memory. Marketplace listings churn quickly, so a
// small FIFO window is enough to stop re-forwarding leads still on the page.
const seenCap = 100

const (
	seenSetKey   = "leadbridge:watcher:seen"
	seenOrderKey = "leadbridge:watcher:seen:order"
)

// DedupTracker remembers recently forwarded lead ids across watcher restarts.
// Membership lives in a set, insertion order in a list; once the window
// exceeds seenCap the oldest id is evicted from both.
type DedupTracker struct {
	redis  *redis.Client
	cap    int64
	logger *logging.Logger
}

// NewDedupTracker builds a Redis-backed tracker.
func NewDedupTracker(client *redis.Client, logger *logging.Logger) *DedupTracker {
	if client == nil {
		panic("watcher: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DedupTracker{
		redis:  client,
		cap:    seenCap,
		logger: logger,
	}
}

// Seen reports whether the lead id was already forwarded.
func (t *DedupTracker) Seen(ctx context.Context, leadID string) (bool, error) {
	if leadID == "" {
		return false, errors.New("watcher: leadID required")
	}
	member, err := t.redis.SIsMember(ctx, seenSetKey, leadID).Result()
	if err != nil {
		return false, fmt.Errorf("watcher: seen lookup for %s: %w", leadID, err)
	}
	return member, nil
}

// MarkSeen records a forwarded lead id, evicting the oldest entries once the
// window is full. Marking an already-seen id is a no-op.
func (t *DedupTracker) MarkSeen(ctx context.Context, leadID string) error {
	if leadID == "" {
		return errors.New("watcher: leadID required")
	}

	added, err := t.redis.SAdd(ctx, seenSetKey, leadID).Result()
	if err != nil {
		return fmt.Errorf("watcher: mark seen %s: %w", leadID, err)
	}
	if added == 0 {
		return nil
	}
	if err := t.redis.RPush(ctx, seenOrderKey, leadID).Err(); err != nil {
		return fmt.Errorf("watcher: record seen order for %s: %w", leadID, err)
	}

	for {
		size, err := t.redis.LLen(ctx, seenOrderKey).Result()
		if err != nil {
			return fmt.Errorf("watcher: seen window size: %w", err)
		}
		if size <= t.cap {
			return nil
		}
		oldest, err := t.redis.LPop(ctx, seenOrderKey).Result()
		if err != nil {
			return fmt.Errorf("watcher: evict oldest seen id: %w", err)
		}
		if err := t.redis.SRem(ctx, seenSetKey, oldest).Err(); err != nil {
			return fmt.Errorf("watcher: evict %s from seen set: %w", oldest, err)
		}
		t.logger.Debug("evicted seen lead id", "lead_id", oldest)
	}
}
