// internal/database/duel_events.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/cardduel/internal/models"
)

// EventTypeDuelEnd marks the final record of a duel.
const EventTypeDuelEnd = "duel_end"

// InsertDuelEvents writes a batch of event records in one transaction,
// upserting the parent duel row and finalizing it on a duel_end record.
func InsertDuelEvents(ctx context.Context, pool *pgxpool.Pool, records []models.DuelEventRecord) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertDuelEventTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert event %s/%d: %w", rec.SessionID, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

func insertDuelEventTx(ctx context.Context, tx pgx.Tx, rec models.DuelEventRecord) error {
	upsertDuelQ := `
		INSERT INTO duels (session_id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (session_id)
		DO UPDATE SET status = CASE WHEN duels.status = 'completed' THEN duels.status ELSE 'in_progress' END
	`
	if _, err := tx.Exec(ctx, upsertDuelQ, rec.SessionID); err != nil {
		return err
	}

	payload := rec.ActionPayload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	insertQ := `
		INSERT INTO duel_events (
			session_id, action_index, seat, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, insertQ,
		rec.SessionID, rec.ActionIndex, string(rec.Seat), rec.ActionType, string(jsonPayload),
		time.UnixMilli(rec.Timestamp).UTC(),
	)
	if err != nil {
		return err
	}

	if rec.ActionType == EventTypeDuelEnd {
		finalizeQ := `
			UPDATE duels
			SET status = 'completed', end_time = NOW()
			WHERE session_id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.SessionID); err != nil {
			return err
		}
	}
	return nil
}

// MarkDuelAbandoned flags an in-progress duel that stopped producing events.
// It reports whether a row changed.
func MarkDuelAbandoned(ctx context.Context, pool *pgxpool.Pool, sessionID string) (bool, error) {
	tag, err := pool.Exec(ctx, `
		UPDATE duels
		SET status = 'abandoned', end_time = NOW()
		WHERE session_id = $1 AND status = 'in_progress'
	`, sessionID)
	if err != nil {
		return false, fmt.Errorf("mark duel %s abandoned: %w", sessionID, err)
	}
	return tag.RowsAffected() > 0, nil
}
