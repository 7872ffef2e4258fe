package messages

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Message directions and senders stored in the audit trail.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	SentByCustomer = "customer"
	SentByBot      = "bot"
	SentByAgent    = "agent"
)

// Delivery statuses for outbound rows.
const (
	StatusReceived = "received"
	StatusPending  = "pending"
	StatusSent     = "sent"
	StatusFailed   = "failed"
)

// PgxPool is the subset of pgxpool.Pool the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MessageRecord is one row of the append-only chat audit trail.
type MessageRecord struct {
	ID                uuid.UUID
	LeadID            string
	Body              string
	Direction         string
	SentBy            string
	Provider          string
	ProviderMessageID string
	Status            string
}

// Store persists chat messages in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("messages: pgx pool required")
	}
	return &Store{pool: pool}
}

// Insert appends one message row and returns its id.
func (s *Store) Insert(ctx context.Context, rec MessageRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	query := `
		INSERT INTO messages (id, lead_id, body, direction, sent_by, provider, provider_message_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`
	if _, err := s.pool.Exec(ctx, query,
		rec.ID,
		rec.LeadID,
		rec.Body,
		rec.Direction,
		rec.SentBy,
		rec.Provider,
		rec.ProviderMessageID,
		rec.Status,
	); err != nil {
		return uuid.Nil, fmt.Errorf("messages: insert failed: %w", err)
	}
	return rec.ID, nil
}

// UpdateStatus records the delivery outcome of an outbound row.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE messages SET status = $2 WHERE id = $1`
	ct, err := s.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("messages: update status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("messages: no row for id %s", id)
	}
	return nil
}

// CountByLead returns how many rows exist for a lead. Used by tests and
// the health of the audit trail, not by the hot path.
func (s *Store) CountByLead(ctx context.Context, leadID string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM messages WHERE lead_id = $1`, leadID).Scan(&n); err != nil {
		return 0, fmt.Errorf("messages: count failed: %w", err)
	}
	return n, nil
}
