//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// CreateTestReservation inserts a pending reservation directly, bypassing the
// intake pipeline. Returns the id for follow-up assertions.
func CreateTestReservation(t *testing.T, db DBLike, phone, dedupeKey string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	ctx := context.Background()
	name := "Test Customer"

	tag, err := db.Exec(ctx, `
		INSERT INTO reservations (id, customer_name, customer_phone, dedupe_key, reservation_date,
			reservation_time, guest_count, status, source, version)
		VALUES ($1, $2, $3, $4, '2026-09-10', '19:30', 2, 'pending', 'chat', 1)
		ON CONFLICT (customer_phone, dedupe_key) DO NOTHING`,
		id, name, phone, dedupeKey)
	require.NoError(t, err)

	if tag.RowsAffected() == 0 {
		_ = db.QueryRow(ctx,
			"SELECT id FROM reservations WHERE customer_phone = $1 AND dedupe_key = $2",
			phone, dedupeKey).Scan(&id)
	}
	return id
}

// SeedReferenceData is a no-op hook kept for suite symmetry: the reservation
// schema has no reference tables, every row comes from the test itself.
func SeedReferenceData(_ *pgxpool.Pool) error {
	return nil
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables and reseeds reference data
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return SeedReferenceData(pool)
}
