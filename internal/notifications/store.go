package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Notification types and statuses. The admin UI marks rows read; this
// pipeline only creates pending ones.
const (
	TypeHumanHandoff = "human_handoff"

	StatusPending = "pending"
	StatusRead    = "read"
)

// PgxPool is the subset of pgxpool.Pool the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NotificationRecord is one "needs human attention" row.
type NotificationRecord struct {
	ID      uuid.UUID
	LeadID  string
	Type    string
	Message string
	Status  string
}

// Store persists admin notifications in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("notifications: pgx pool required")
	}
	return &Store{pool: pool}
}

// Insert appends a notification row. There is no dedup against existing
// pending rows for the same lead: repeated messages from an escalated
// lead produce repeated notifications.
func (s *Store) Insert(ctx context.Context, rec NotificationRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Type == "" {
		rec.Type = TypeHumanHandoff
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	query := `
		INSERT INTO notifications (id, lead_id, type, message, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, query, rec.ID, rec.LeadID, rec.Type, rec.Message, rec.Status); err != nil {
		return uuid.Nil, fmt.Errorf("notifications: insert failed: %w", err)
	}
	return rec.ID, nil
}
