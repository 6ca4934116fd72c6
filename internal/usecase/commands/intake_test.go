//go:build unit

package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/extraction"
	"tablepilot/internal/feed"
	"tablepilot/internal/infra/memstore"
	"tablepilot/internal/pkg/clock"
	"tablepilot/internal/pkg/errs"
	"tablepilot/internal/usecase/commands"
	"tablepilot/tests/common/builder"
)

type fakeExtractor struct {
	cand reservation.CandidateFields
	err  error
	// calls counts extraction attempts; duplicates must still pay for one.
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (reservation.CandidateFields, error) {
	f.calls++
	if f.err != nil {
		return reservation.CandidateFields{}, f.err
	}
	return f.cand, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []feed.Event
}

func (p *recordingPublisher) Publish(e feed.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Events() []feed.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]feed.Event(nil), p.events...)
}

type intakeFixture struct {
	intake    commands.IntakeCommands
	store     *memstore.ReservationStore
	extractor *fakeExtractor
	publisher *recordingPublisher
}

func newIntakeFixture(t *testing.T, ex *fakeExtractor) *intakeFixture {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	store := memstore.NewReservationStore(clk)
	pub := &recordingPublisher{}
	return &intakeFixture{
		intake:    commands.NewIntakeCommands(store, ex, pub, clk, nil),
		store:     store,
		extractor: ex,
		publisher: pub,
	}
}

func TestIngestMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("新規メッセージで予約作成", func(t *testing.T) {
		b := builder.NewReservationBuilder()
		f := newIntakeFixture(t, &fakeExtractor{cand: b.BuildCandidate()})

		result, err := f.intake.IngestMessage(ctx, b.BuildInbound("wamid.1", "table pour 4 le 10/09 à 19h30, Marie Dupont"))
		require.NoError(t, err)

		assert.Equal(t, commands.IntakeCreated, result.Outcome)
		require.NotNil(t, result.Reservation)
		assert.True(t, result.Reservation.IsPending())
		assert.Equal(t, int64(1), result.Reservation.Version())

		events := f.publisher.Events()
		require.Len(t, events, 1, "作成はコマンド完了前に配信される")
		assert.Equal(t, feed.OpInsert, events[0].Op)
		assert.Equal(t, result.Reservation.ID(), events[0].EntityID)
	})

	t.Run("同一メッセージIDの再送は重複", func(t *testing.T) {
		b := builder.NewReservationBuilder()
		f := newIntakeFixture(t, &fakeExtractor{cand: b.BuildCandidate()})

		first, err := f.intake.IngestMessage(ctx, b.BuildInbound("wamid.1", "table pour 4"))
		require.NoError(t, err)
		second, err := f.intake.IngestMessage(ctx, b.BuildInbound("wamid.1", "table pour 4"))
		require.NoError(t, err)

		assert.Equal(t, commands.IntakeDuplicate, second.Outcome)
		assert.Equal(t, first.Reservation.ID(), second.Reservation.ID())
		assert.Len(t, f.publisher.Events(), 1, "重複はイベントを生まない")
	})

	t.Run("メッセージIDなしでも本文ダイジェストで重複排除", func(t *testing.T) {
		b := builder.NewReservationBuilder()
		f := newIntakeFixture(t, &fakeExtractor{cand: b.BuildCandidate()})

		first, err := f.intake.IngestMessage(ctx, b.BuildInbound("", "table pour 4"))
		require.NoError(t, err)
		second, err := f.intake.IngestMessage(ctx, b.BuildInbound("", "table pour 4"))
		require.NoError(t, err)

		assert.Equal(t, commands.IntakeCreated, first.Outcome)
		assert.Equal(t, commands.IntakeDuplicate, second.Outcome)
	})

	t.Run("空本文は無視", func(t *testing.T) {
		f := newIntakeFixture(t, &fakeExtractor{})

		result, err := f.intake.IngestMessage(ctx, commands.InboundMessage{
			From: "+33612345678", Body: "   ", Source: reservation.SourceChat,
		})
		require.NoError(t, err)

		assert.Equal(t, commands.IntakeIgnored, result.Outcome)
		assert.Zero(t, f.extractor.calls, "空本文は抽出に回らない")
	})

	t.Run("送信者なしは破棄", func(t *testing.T) {
		f := newIntakeFixture(t, &fakeExtractor{})

		result, err := f.intake.IngestMessage(ctx, commands.InboundMessage{
			Body: "table pour 4", Source: reservation.SourceChat,
		})
		require.NoError(t, err)
		assert.Equal(t, commands.IntakeDropped, result.Outcome)
	})

	t.Run("抽出失敗は破棄でありエラーではない", func(t *testing.T) {
		f := newIntakeFixture(t, &fakeExtractor{err: extraction.ErrExtractionFailed})

		result, err := f.intake.IngestMessage(ctx, commands.InboundMessage{
			From: "+33612345678", Body: "bonjour", Source: reservation.SourceChat,
		})
		require.NoError(t, err)

		assert.Equal(t, commands.IntakeDropped, result.Outcome)
		assert.Empty(t, f.publisher.Events())
	})

	t.Run("全フィールド不使用の候補は破棄", func(t *testing.T) {
		f := newIntakeFixture(t, &fakeExtractor{cand: reservation.CandidateFields{}})

		result, err := f.intake.IngestMessage(ctx, commands.InboundMessage{
			From: "+33612345678", Body: "bonjour", Source: reservation.SourceChat,
		})
		require.NoError(t, err)
		assert.Equal(t, commands.IntakeDropped, result.Outcome)
	})

	t.Run("ストア障害はエラーとして伝播", func(t *testing.T) {
		b := builder.NewReservationBuilder()
		clk := clock.NewMockClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
		pub := &recordingPublisher{}
		failing := &failingRepo{}
		intake := commands.NewIntakeCommands(failing, &fakeExtractor{cand: b.BuildCandidate()}, pub, clk, nil)

		_, err := intake.IngestMessage(ctx, b.BuildInbound("wamid.9", "table pour 4"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrDatabaseOperationFailed))
		assert.Empty(t, pub.Events(), "失敗した書き込みは配信されない")
	})
}
