package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/feed"
	"tablepilot/internal/infra"
	"tablepilot/internal/usecase/shared"
)

const reservationColumns = `id, customer_name, customer_phone, dedupe_key, reservation_date,
	reservation_time, guest_count, status, source, notes, version, created_at, updated_at`

// ReservationRepository is the Postgres-backed store. The unique index on
// (customer_phone, dedupe_key) carries the idempotency guarantee; the version
// predicate on UPDATE carries the compare-and-swap. Each commit appends its
// ChangeEvent row in the same transaction.
type ReservationRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewReservationRepository(pool *pgxpool.Pool, logger *slog.Logger) *ReservationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservationRepository{pool: pool, logger: logger}
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation, dedupeKey string) (*reservation.Reservation, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, infra.WrapRepoErr("failed to begin transaction", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			r.logger.Warn("failed to rollback transaction", "error", rollbackErr)
		}
	}()

	row := tx.QueryRow(ctx, `
		INSERT INTO reservations (id, customer_name, customer_phone, dedupe_key, reservation_date,
			reservation_time, guest_count, status, source, notes, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		ON CONFLICT (customer_phone, dedupe_key) DO NOTHING
		RETURNING created_at, updated_at`,
		res.ID(), res.CustomerName(), res.CustomerPhone().String(), dedupeKey,
		dateArg(res.Date()), timeArg(res.TimeOfDay()), guestArg(res.GuestCount()),
		res.Status().String(), res.Source().String(), noteArg(res.Note()),
	)

	var createdAt, updatedAt time.Time
	if err := row.Scan(&createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone already ingested this provider message.
			existing, findErr := r.findByDedupe(ctx, res.CustomerPhone().String(), dedupeKey)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, false, infra.WrapRepoErr("duplicate reservation", err, infra.KindDuplicateKey)
		}
		return nil, false, infra.WrapRepoErr("failed to create reservation", err)
	}

	created := reconstructWith(res, reservation.StatusPending, 1, createdAt, updatedAt)

	if err := r.appendEvent(ctx, tx, feed.NewEvent(feed.OpInsert, created, updatedAt)); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, infra.WrapRepoErr("failed to commit reservation", err)
	}
	return created, true, nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int64, next reservation.Status) (*reservation.Reservation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to begin transaction", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			r.logger.Warn("failed to rollback transaction", "error", rollbackErr)
		}
	}()

	row := tx.QueryRow(ctx, `
		UPDATE reservations
		SET status = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND status = 'pending'
		RETURNING `+reservationColumns,
		id, expectedVersion, next.String(),
	)

	updated, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyUpdateMiss(ctx, id, expectedVersion, next)
		}
		return nil, infra.WrapRepoErr("failed to update reservation status", err)
	}

	if err := r.appendEvent(ctx, tx, feed.NewEvent(feed.OpUpdate, updated, updated.UpdatedAt())); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, infra.WrapRepoErr("failed to commit status update", err)
	}
	return updated, nil
}

// classifyUpdateMiss decides why the compare-and-swap matched no row: the
// reservation is gone, another actor moved the version, or the status is
// already terminal.
func (r *ReservationRepository) classifyUpdateMiss(ctx context.Context, id uuid.UUID, expectedVersion int64, next reservation.Status) error {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Version() != expectedVersion {
		return infra.WrapRepoErr("stale version", nil, infra.KindConflict)
	}
	// Version matches, so the status itself blocks the transition.
	if err := current.Transition(next); err != nil {
		return err
	}
	return infra.WrapRepoErr("update matched no row", nil, infra.KindConflict)
}

func (r *ReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation by ID", err)
	}
	return res, nil
}

func (r *ReservationRepository) Search(ctx context.Context, f shared.ReservationFilter) ([]*reservation.Reservation, error) {
	var status *string
	if f.Status != nil {
		v := f.Status.String()
		status = &v
	}
	var date *time.Time
	if f.Date != nil {
		v := f.Date.Time()
		date = &v
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::date IS NULL OR reservation_date = $2)
		ORDER BY created_at DESC`,
		status, date,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to search reservations", err)
	}
	defer rows.Close()

	var result []*reservation.Reservation
	for rows.Next() {
		res, scanErr := scanReservation(rows)
		if scanErr != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation row", scanErr)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reservations", err)
	}
	return result, nil
}

func (r *ReservationRepository) EventsSince(ctx context.Context, entityID uuid.UUID, sinceVersion int64) ([]feed.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT entity_id, operation, version, payload, emitted_at
		FROM change_events
		WHERE entity_id = $1 AND version > $2
		ORDER BY version`,
		entityID, sinceVersion,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load change events", err)
	}
	defer rows.Close()

	var events []feed.Event
	for rows.Next() {
		var (
			e       feed.Event
			op      string
			payload []byte
		)
		if err := rows.Scan(&e.EntityID, &op, &e.Version, &payload, &e.EmittedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan change event", err)
		}
		e.Op = feed.Operation(op)
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, infra.WrapRepoErr("failed to decode change event payload", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate change events", err)
	}
	return events, nil
}

func (r *ReservationRepository) findByDedupe(ctx context.Context, phone, dedupeKey string) (*reservation.Reservation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE customer_phone = $1 AND dedupe_key = $2`,
		phone, dedupeKey,
	)
	res, err := scanReservation(row)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load existing reservation", err)
	}
	return res, nil
}

func (r *ReservationRepository) appendEvent(ctx context.Context, tx pgx.Tx, e feed.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return infra.WrapRepoErr("failed to encode change event payload", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO change_events (entity_id, operation, version, payload, emitted_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.EntityID, string(e.Op), e.Version, payload, e.EmittedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to append change event", err)
	}
	return nil
}

func scanReservation(row pgx.Row) (*reservation.Reservation, error) {
	var (
		id                   uuid.UUID
		customerName         *string
		customerPhone        string
		dedupeKey            string
		reservationDate      *time.Time
		reservationTime      *string
		guestCount           *int
		status, source       string
		notes                *string
		version              int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &customerName, &customerPhone, &dedupeKey, &reservationDate,
		&reservationTime, &guestCount, &status, &source, &notes, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	phone, err := reservation.NewPhone(customerPhone)
	if err != nil {
		return nil, err
	}

	var date *reservation.BookingDate
	if reservationDate != nil {
		d := reservation.NewBookingDateFromTime(*reservationDate)
		date = &d
	}
	var timeOfDay *reservation.BookingTime
	if reservationTime != nil {
		if t, terr := reservation.NewBookingTime(*reservationTime); terr == nil {
			timeOfDay = &t
		}
	}
	var guests *reservation.GuestCount
	if guestCount != nil {
		if g, gerr := reservation.NewGuestCount(*guestCount); gerr == nil {
			guests = &g
		}
	}
	note := reservation.NewNote("")
	if notes != nil {
		note = reservation.NewNote(*notes)
	}

	return reservation.ReconstructReservation(
		id, customerName, phone, date, timeOfDay, guests,
		reservation.Status(status), reservation.Source(source), note,
		version, createdAt, updatedAt,
	), nil
}

// reconstructWith re-materializes an entity after INSERT with the
// store-assigned version and timestamps.
func reconstructWith(res *reservation.Reservation, status reservation.Status, version int64, createdAt, updatedAt time.Time) *reservation.Reservation {
	return reservation.ReconstructReservation(
		res.ID(), res.CustomerName(), res.CustomerPhone(), res.Date(), res.TimeOfDay(), res.GuestCount(),
		status, res.Source(), res.Note(), version, createdAt, updatedAt,
	)
}

func dateArg(d *reservation.BookingDate) *time.Time {
	if d == nil {
		return nil
	}
	v := d.Time()
	return &v
}

func timeArg(t *reservation.BookingTime) *string {
	if t == nil {
		return nil
	}
	v := t.String()
	return &v
}

func guestArg(g *reservation.GuestCount) *int {
	if g == nil {
		return nil
	}
	v := g.Value()
	return &v
}

func noteArg(n reservation.Note) *string {
	if n.IsEmpty() {
		return nil
	}
	v := n.String()
	return &v
}
