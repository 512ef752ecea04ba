package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clickship/internal/model"
)

// Store provides Postgres persistence for webhook events, the running
// event counter, and read-model snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS gm_events (
			tx_id TEXT PRIMARY KEY,
			sender TEXT NOT NULL DEFAULT '',
			block_height BIGINT NOT NULL DEFAULT 0,
			received_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_counter (
			id SMALLINT PRIMARY KEY,
			total BIGINT NOT NULL DEFAULT 0,
			today BIGINT NOT NULL DEFAULT 0,
			today_date DATE NOT NULL DEFAULT CURRENT_DATE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id SMALLINT PRIMARY KEY,
			taken_at TIMESTAMPTZ NOT NULL,
			current_block BIGINT NOT NULL DEFAULT 0,
			body JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// InsertGmEvents stores webhook events, ignoring transaction ids already
// seen so chainhook redeliveries stay idempotent. Returns how many rows
// were actually new.
func (s *Store) InsertGmEvents(ctx context.Context, events []model.WebhookEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		batch.Queue(`
			INSERT INTO gm_events (tx_id, sender, block_height, received_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (tx_id) DO NOTHING
		`,
			event.TxID,
			event.Sender,
			int64(event.BlockHeight),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range events {
		tag, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// BumpCounter adds n to the running tally. The daily figure resets when
// the stored date is not today.
func (s *Store) BumpCounter(ctx context.Context, n uint64) (model.Counter, error) {
	var counter model.Counter
	row := s.pool.QueryRow(ctx, `
		INSERT INTO webhook_counter (id, total, today, today_date, updated_at)
		VALUES (1, $1, $1, CURRENT_DATE, now())
		ON CONFLICT (id) DO UPDATE SET
			total = webhook_counter.total + EXCLUDED.total,
			today = CASE
				WHEN webhook_counter.today_date = CURRENT_DATE THEN webhook_counter.today + EXCLUDED.today
				ELSE EXCLUDED.today
			END,
			today_date = CURRENT_DATE,
			updated_at = now()
		RETURNING total, today
	`, int64(n))
	if err := row.Scan(&counter.Total, &counter.Today); err != nil {
		return model.Counter{}, err
	}
	return counter, nil
}

// LoadCounter reads the current tally. The daily figure is zero when the
// stored date is stale or no row exists yet.
func (s *Store) LoadCounter(ctx context.Context) (model.Counter, error) {
	var counter model.Counter
	row := s.pool.QueryRow(ctx, `
		SELECT total,
			CASE WHEN today_date = CURRENT_DATE THEN today ELSE 0 END
		FROM webhook_counter WHERE id = 1
	`)
	if err := row.Scan(&counter.Total, &counter.Today); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Counter{}, nil
		}
		return model.Counter{}, err
	}
	return counter, nil
}

// UpsertSnapshot stores the latest snapshot as a single JSONB row.
func (s *Store) UpsertSnapshot(ctx context.Context, snap model.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO snapshots (id, taken_at, current_block, body, updated_at)
		VALUES (1, $1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			taken_at = EXCLUDED.taken_at,
			current_block = EXCLUDED.current_block,
			body = EXCLUDED.body,
			updated_at = now()
	`, snap.TakenAt, int64(snap.CurrentBlock), body)
	return err
}
