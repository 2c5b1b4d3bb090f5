package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores one JSONB row per chat. Save rewrites every row inside a
// single transaction so the table always mirrors one in-memory version.
type PostgresBackend struct {
	db *pgxpool.Pool
}

func NewPostgresBackend(db *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	_, err := b.db.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS throne;
		CREATE TABLE IF NOT EXISTS throne.chats (
			chat_id    TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context) (Snapshot, error) {
	snap := emptySnapshot()
	rows, err := b.db.Query(ctx, `SELECT chat_id, state FROM throne.chats ORDER BY chat_id`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load chats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var chatID string
		var raw []byte
		if err := rows.Scan(&chatID, &raw); err != nil {
			return Snapshot{}, err
		}
		var state ChatState
		if err := json.Unmarshal(raw, &state); err != nil {
			return Snapshot{}, fmt.Errorf("decode chat %s: %w", chatID, err)
		}
		snap.Chats[chatID] = &state
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	snap.normalize()
	return snap, nil
}

func (b *PostgresBackend) Save(ctx context.Context, snap Snapshot) error {
	tx, err := b.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(snap.Chats))
	for chatID, state := range snap.Chats {
		raw, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("encode chat %s: %w", chatID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO throne.chats (chat_id, state, updated_at)
			VALUES ($1, $2::jsonb, now())
			ON CONFLICT (chat_id) DO UPDATE
			SET state = EXCLUDED.state, updated_at = now()
		`, chatID, string(raw)); err != nil {
			return err
		}
		ids = append(ids, chatID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM throne.chats WHERE NOT (chat_id = ANY($1))`, ids); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
