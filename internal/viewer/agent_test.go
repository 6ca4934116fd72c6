//go:build unit

package viewer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/feed"
	"tablepilot/internal/infra/memstore"
	"tablepilot/internal/pkg/clock"
	"tablepilot/internal/pkg/errs"
	"tablepilot/internal/usecase/commands"
	"tablepilot/internal/usecase/queries"
	"tablepilot/internal/usecase/shared"
	"tablepilot/internal/viewer"
	"tablepilot/tests/common/builder"
)

// fixture wires two agents against one store and one hub, the way two staff
// terminals share the same restaurant.
type agentFixture struct {
	store     *memstore.ReservationStore
	dist      *feed.Distributor
	decisions commands.DecisionCommands
	queries   queries.ReservationQueries
	clk       *clock.MockClock
}

func newAgentFixture(t *testing.T) *agentFixture {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	store := memstore.NewReservationStore(clk)
	dist := feed.NewDistributor(store, nil)
	return &agentFixture{
		store:     store,
		dist:      dist,
		decisions: commands.NewDecisionCommands(store, dist, nil),
		queries:   queries.NewReservationQueries(store),
		clk:       clk,
	}
}

func (f *agentFixture) newAgent() *viewer.Agent {
	return viewer.NewAgent(f.dist, f.decisions, f.queries, nil)
}

func (f *agentFixture) seedPending(t *testing.T, key string) *reservation.Reservation {
	t.Helper()
	res, err := builder.NewReservationBuilder().
		With(func(b *builder.ReservationBuilder) { b.Phone = "+3361234" + key }).
		BuildDomain()
	require.NoError(t, err)
	created, inserted, err := f.store.Create(context.Background(), res, "wamid."+key)
	require.NoError(t, err)
	require.True(t, inserted)
	return created
}

var _ shared.EventPublisher = (*feed.Distributor)(nil)

func TestAgentApplyRemote(t *testing.T) {
	f := newAgentFixture(t)
	agent := f.newAgent()
	seeded := f.seedPending(t, "1")

	t.Run("未知のエンティティは追加される", func(t *testing.T) {
		e := feed.NewEvent(feed.OpInsert, seeded, f.clk.Now())
		assert.True(t, agent.ApplyRemote(e))

		snap, ok := agent.Get(seeded.ID())
		require.True(t, ok)
		assert.Equal(t, "pending", snap.Status)
	})

	t.Run("新しいバージョンが適用される", func(t *testing.T) {
		updated, err := f.store.UpdateStatus(context.Background(), seeded.ID(), 1, reservation.StatusConfirmed)
		require.NoError(t, err)

		assert.True(t, agent.ApplyRemote(feed.NewEvent(feed.OpUpdate, updated, f.clk.Now())))
		snap, _ := agent.Get(seeded.ID())
		assert.Equal(t, "confirmed", snap.Status)
		assert.Equal(t, int64(2), snap.Version)
	})

	t.Run("古いバージョンは無視される", func(t *testing.T) {
		stale := feed.NewEvent(feed.OpInsert, seeded, f.clk.Now()) // version 1
		assert.False(t, agent.ApplyRemote(stale))

		snap, _ := agent.Get(seeded.ID())
		assert.Equal(t, int64(2), snap.Version, "表示はロールバックしない")
	})
}

func TestAgentProposeAction(t *testing.T) {
	ctx := context.Background()

	t.Run("楽観的反映とコミット", func(t *testing.T) {
		f := newAgentFixture(t)
		agent := f.newAgent()
		seeded := f.seedPending(t, "1")
		require.NoError(t, agent.Resync(ctx))

		require.NoError(t, agent.ProposeAction(ctx, seeded.ID(), commands.ActionAccept))

		snap, _ := agent.Get(seeded.ID())
		assert.Equal(t, "confirmed", snap.Status)
		assert.Equal(t, int64(2), snap.Version)

		current, err := f.store.FindByID(ctx, seeded.ID())
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusConfirmed, current.Status())
	})

	t.Run("競合時はロールバックして権威状態に再同期", func(t *testing.T) {
		f := newAgentFixture(t)
		agent := f.newAgent()
		seeded := f.seedPending(t, "1")
		require.NoError(t, agent.Resync(ctx))

		// Another actor wins the race before this agent's action lands.
		_, err := f.store.UpdateStatus(ctx, seeded.ID(), 1, reservation.StatusDeclined)
		require.NoError(t, err)

		err = agent.ProposeAction(ctx, seeded.ID(), commands.ActionAccept)
		require.ErrorIs(t, err, errs.ErrVersionConflict)

		snap, ok := agent.Get(seeded.ID())
		require.True(t, ok)
		assert.Equal(t, "declined", snap.Status, "勝者の状態が表示される")
		assert.Equal(t, int64(2), snap.Version)
	})

	t.Run("二つのエージェントはちょうど一方が成功し収束する", func(t *testing.T) {
		f := newAgentFixture(t)
		agentA := f.newAgent()
		agentB := f.newAgent()
		seeded := f.seedPending(t, "1")
		require.NoError(t, agentA.Resync(ctx))
		require.NoError(t, agentB.Resync(ctx))

		errA := agentA.ProposeAction(ctx, seeded.ID(), commands.ActionAccept)
		errB := agentB.ProposeAction(ctx, seeded.ID(), commands.ActionDecline)

		require.NoError(t, errA)
		require.ErrorIs(t, errB, errs.ErrVersionConflict)

		snapA, _ := agentA.Get(seeded.ID())
		snapB, _ := agentB.Get(seeded.ID())
		assert.Equal(t, snapA.Status, snapB.Status, "両者の表示が一致する")
		assert.Equal(t, "confirmed", snapB.Status)
	})

	t.Run("キャッシュ外のIDは権威状態を取得して処理", func(t *testing.T) {
		f := newAgentFixture(t)
		agent := f.newAgent()
		seeded := f.seedPending(t, "1")

		require.NoError(t, agent.ProposeAction(ctx, seeded.ID(), commands.ActionDecline))
		snap, ok := agent.Get(seeded.ID())
		require.True(t, ok)
		assert.Equal(t, "declined", snap.Status)
	})
}

func TestAgentRun(t *testing.T) {
	t.Run("ライブイベントが表示に反映される", func(t *testing.T) {
		f := newAgentFixture(t)
		agent := f.newAgent()
		seeded := f.seedPending(t, "1")
		sub := agent.Subscribe()
		require.NoError(t, agent.Resync(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		applied := make(chan feed.Event, 8)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = agent.Run(ctx, sub, func(e feed.Event) { applied <- e })
		}()

		// Commit through the command path so the event flows hub-first.
		_, err := f.decisions.Decide(context.Background(), seeded.ID(), 1, commands.ActionAccept)
		require.NoError(t, err)

		select {
		case e := <-applied:
			assert.Equal(t, seeded.ID(), e.EntityID)
			assert.Equal(t, int64(2), e.Version)
		case <-time.After(2 * time.Second):
			t.Fatal("イベントが適用されなかった")
		}

		snap, _ := agent.Get(seeded.ID())
		assert.Equal(t, "confirmed", snap.Status)

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Runが終了しなかった")
		}
	})

	t.Run("スナップショット直後のコミットも失われない", func(t *testing.T) {
		f := newAgentFixture(t)
		agent := f.newAgent()
		seeded := f.seedPending(t, "2")

		sub := agent.Subscribe()
		require.NoError(t, agent.Resync(context.Background()))

		// A terminal decision lands between the snapshot read and the event
		// loop; no later event for this entity will ever arrive.
		_, err := f.decisions.Decide(context.Background(), seeded.ID(), 1, commands.ActionAccept)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = agent.Run(ctx, sub, nil)
		}()

		require.Eventually(t, func() bool {
			snap, ok := agent.Get(seeded.ID())
			return ok && snap.Status == "confirmed" && snap.Version == 2
		}, 2*time.Second, 10*time.Millisecond, "決定が表示に反映されなかった")

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Runが終了しなかった")
		}
	})
}
