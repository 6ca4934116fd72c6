package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// EventLog replays the persisted change event history of one entity.
// Implemented by the reservation store.
type EventLog interface {
	EventsSince(ctx context.Context, entityID uuid.UUID, sinceVersion int64) ([]Event, error)
}

const defaultSubscriberBuffer = 64

// Distributor is the in-process fan-out hub. Delivery is at-least-once per
// subscriber; events for one entity arrive in non-decreasing version order.
// Nothing is guaranteed across entities.
type Distributor struct {
	mu          sync.Mutex
	subs        map[*Subscription]struct{}
	lastVersion map[uuid.UUID]int64
	log         EventLog
	logger      *slog.Logger
}

func NewDistributor(log EventLog, logger *slog.Logger) *Distributor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Distributor{
		subs:        make(map[*Subscription]struct{}),
		lastVersion: make(map[uuid.UUID]int64),
		log:         log,
		logger:      logger,
	}
}

// Subscription is a disposable handle on the live feed. Release it with
// Unsubscribe on every exit path of the owning viewer.
type Subscription struct {
	ch     chan Event
	gapped bool
	mu     sync.Mutex
	closed bool
}

// Events yields the ordered live sequence. The channel closes on Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Gapped reports whether delivery was dropped because this subscriber lagged.
// A gapped subscriber must call Replay (or fully resync) before trusting its
// local view again.
func (s *Subscription) Gapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gapped
}

func (s *Subscription) clearGap() {
	s.mu.Lock()
	s.gapped = false
	s.mu.Unlock()
}

func (d *Distributor) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Event, defaultSubscriberBuffer)}
	d.mu.Lock()
	d.subs[sub] = struct{}{}
	d.mu.Unlock()
	return sub
}

// Unsubscribe releases the handle. Safe to call more than once.
func (d *Distributor) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	d.mu.Lock()
	_, live := d.subs[sub]
	delete(d.subs, sub)
	d.mu.Unlock()

	sub.mu.Lock()
	if live && !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
	sub.mu.Unlock()
}

// Publish fans one committed event out to every subscriber. Publishes are
// serialized, so per-entity order holds as long as versions for an entity are
// committed in order, which the store's compare-and-swap guarantees. An event
// whose version does not exceed the last one seen for its entity is dropped:
// payloads are full snapshots, so the later version already subsumes it.
func (d *Distributor) Publish(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.lastVersion[e.EntityID]; ok && e.Version <= last {
		d.logger.Debug("feed: dropping superseded event",
			"entity_id", e.EntityID, "version", e.Version, "last_version", last)
		return
	}
	d.lastVersion[e.EntityID] = e.Version

	for sub := range d.subs {
		select {
		case sub.ch <- e:
		default:
			// Slow subscriber: never block the publisher. The subscriber
			// recovers through Replay once it notices the gap.
			sub.mu.Lock()
			sub.gapped = true
			sub.mu.Unlock()
			d.logger.Warn("feed: subscriber buffer full, event dropped",
				"entity_id", e.EntityID, "version", e.Version)
		}
	}
}

// Replay returns the persisted events of one entity with version greater than
// sinceVersion, in version order, and clears the subscription's gap mark.
func (d *Distributor) Replay(ctx context.Context, sub *Subscription, entityID uuid.UUID, sinceVersion int64) ([]Event, error) {
	events, err := d.log.EventsSince(ctx, entityID, sinceVersion)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		sub.clearGap()
	}
	return events, nil
}
