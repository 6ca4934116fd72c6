// Package viewer holds the per-connection sync agent: the one place that
// applies feed events to a local materialized view and reconciles optimistic
// staff actions. Every open view (list, calendar, detail) goes through the
// same agent so there is exactly one reconciliation algorithm.
package viewer

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tablepilot/internal/feed"
	"tablepilot/internal/pkg/errs"
	"tablepilot/internal/usecase/commands"
	"tablepilot/internal/usecase/queries"
)

type cacheEntry struct {
	snap          feed.Snapshot
	pendingCommit bool
	saved         *feed.Snapshot // pre-optimistic state, kept until commit or rollback
}

type Agent struct {
	mu        sync.Mutex
	cache     map[uuid.UUID]*cacheEntry
	dist      *feed.Distributor
	decisions commands.DecisionCommands
	queries   queries.ReservationQueries
	logger    *slog.Logger
}

func NewAgent(
	dist *feed.Distributor,
	decisions commands.DecisionCommands,
	qs queries.ReservationQueries,
	logger *slog.Logger,
) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		cache:     make(map[uuid.UUID]*cacheEntry),
		dist:      dist,
		decisions: decisions,
		queries:   qs,
		logger:    logger,
	}
}

// Resync replaces the whole local view with the authoritative current state.
func (a *Agent) Resync(ctx context.Context) error {
	views, err := a.queries.List(ctx, queries.ListFilter{})
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache = make(map[uuid.UUID]*cacheEntry, len(views))
	for _, v := range views {
		a.cache[v.ID] = &cacheEntry{snap: snapshotFromView(v)}
	}
	return nil
}

// ApplyRemote folds one feed event into the view. Events at or below the
// version already applied are duplicates of an at-least-once feed and are
// safely ignored. Returns whether the event changed the view.
func (a *Agent) ApplyRemote(e feed.Event) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.cache[e.EntityID]
	if !ok {
		a.cache[e.EntityID] = &cacheEntry{snap: e.Payload}
		return true
	}
	if e.Version <= entry.snap.Version {
		return false
	}
	// The feed is authoritative: a newer remote version settles any local
	// optimistic state, including our own committed action echoing back.
	entry.snap = e.Payload
	entry.pendingCommit = false
	entry.saved = nil
	return true
}

// ProposeAction optimistically applies a staff accept/decline, then commits
// it through the store with the version this view last saw. On conflict or
// illegal transition the optimistic change rolls back and the entry is
// resynchronized to the server's state; the error is the caller's failure
// notice.
func (a *Agent) ProposeAction(ctx context.Context, id uuid.UUID, action commands.DecisionAction) error {
	next, ok := action.ToStatus()
	if !ok {
		return errs.Mark(errs.New("unknown action "+string(action)), errs.ErrDomainValidation)
	}

	a.mu.Lock()
	entry, found := a.cache[id]
	if !found {
		a.mu.Unlock()
		view, err := a.queries.Get(ctx, id)
		if err != nil {
			return err
		}
		a.mu.Lock()
		entry = &cacheEntry{snap: snapshotFromView(view)}
		a.cache[id] = entry
	}

	saved := entry.snap
	entry.saved = &saved
	entry.pendingCommit = true
	entry.snap.Status = next.String()
	expectedVersion := saved.Version
	a.mu.Unlock()

	result, err := a.decisions.Decide(ctx, id, expectedVersion, action)
	if err != nil {
		a.rollback(ctx, id)
		return err
	}

	a.mu.Lock()
	entry.snap = feed.SnapshotFrom(result.Reservation)
	entry.pendingCommit = false
	entry.saved = nil
	a.mu.Unlock()
	return nil
}

// rollback restores the pre-optimistic state, then pulls the authoritative
// row so the view reflects whatever the winning actor committed.
func (a *Agent) rollback(ctx context.Context, id uuid.UUID) {
	a.mu.Lock()
	if entry, ok := a.cache[id]; ok && entry.saved != nil {
		entry.snap = *entry.saved
		entry.saved = nil
		entry.pendingCommit = false
	}
	a.mu.Unlock()

	view, err := a.queries.Get(ctx, id)
	if err != nil {
		a.logger.Warn("viewer resync after rollback failed", "reservation_id", id, "error", err)
		return
	}
	a.mu.Lock()
	a.cache[id] = &cacheEntry{snap: snapshotFromView(view)}
	a.mu.Unlock()
}

// Get returns the cached snapshot for one reservation.
func (a *Agent) Get(id uuid.UUID) (feed.Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.cache[id]
	if !ok {
		return feed.Snapshot{}, false
	}
	return entry.snap, true
}

// Snapshot returns the current view, newest first.
func (a *Agent) Snapshot() []feed.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]feed.Snapshot, 0, len(a.cache))
	for _, entry := range a.cache {
		result = append(result, entry.snap)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Subscribe attaches to the live feed. Attach before Resync: a commit landing
// between the snapshot read and the event loop is then buffered on the
// subscription instead of lost, and the version guard in ApplyRemote makes
// the overlap an idempotent no-op.
func (a *Agent) Subscribe() *feed.Subscription {
	return a.dist.Subscribe()
}

// Unsubscribe releases a subscription that never reached Run.
func (a *Agent) Unsubscribe(sub *feed.Subscription) {
	a.dist.Unsubscribe(sub)
}

// Run applies events from sub until ctx ends. The subscription is released on
// every exit path. onEvent, when non-nil, fires after each event that changed
// the view.
func (a *Agent) Run(ctx context.Context, sub *feed.Subscription, onEvent func(feed.Event)) error {
	defer a.dist.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if a.ApplyRemote(e) && onEvent != nil {
				onEvent(e)
			}
			if sub.Gapped() {
				a.recoverGap(ctx, sub, onEvent)
			}
		}
	}
}

// recoverGap replays each cached entity past its last applied version after
// the subscriber lagged and the hub dropped deliveries.
func (a *Agent) recoverGap(ctx context.Context, sub *feed.Subscription, onEvent func(feed.Event)) {
	a.mu.Lock()
	versions := make(map[uuid.UUID]int64, len(a.cache))
	for id, entry := range a.cache {
		versions[id] = entry.snap.Version
	}
	a.mu.Unlock()

	for id, version := range versions {
		events, err := a.dist.Replay(ctx, sub, id, version)
		if err != nil {
			a.logger.Warn("feed gap replay failed", "reservation_id", id, "error", err)
			continue
		}
		for _, e := range events {
			if a.ApplyRemote(e) && onEvent != nil {
				onEvent(e)
			}
		}
	}
}

func snapshotFromView(v *queries.ReservationView) feed.Snapshot {
	return feed.Snapshot{
		ID:            v.ID,
		CustomerName:  v.CustomerName,
		CustomerPhone: v.CustomerPhone,
		Date:          v.Date,
		Time:          v.Time,
		GuestCount:    v.GuestCount,
		Status:        v.Status,
		Source:        v.Source,
		Note:          v.Note,
		Version:       v.Version,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}
