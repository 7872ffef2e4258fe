package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository defines the interface for lead storage
type Repository interface {
	GetByPhone(ctx context.Context, phone string) (*Lead, error)
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	TouchAwaiting(ctx context.Context, id string) error
	MarkHumanHandled(ctx context.Context, id string) error
}

// PgxPool is the subset of pgxpool.Pool the repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

// GetByPhone fetches a lead by its normalized phone number.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Lead, error) {
	query := `
		SELECT id, phone, name, status, source, needs_human, last_contact_at, created_at
		FROM leads
		WHERE phone = $1
	`
	row := r.pool.QueryRow(ctx, query, phone)
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.Phone,
		&lead.Name,
		&lead.Status,
		&lead.Source,
		&lead.NeedsHuman,
		&lead.LastContactAt,
		&lead.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return &lead, nil
}

// Create inserts a new row with status "new".
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	now := time.Now().UTC()
	query := `
		INSERT INTO leads (id, phone, name, status, source, needs_human, last_contact_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.Phone,
		req.Name,
		StatusNew,
		req.Source,
		now,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	return &Lead{
		ID:            id.String(),
		Phone:         req.Phone,
		Name:          req.Name,
		Status:        StatusNew,
		Source:        req.Source,
		LastContactAt: now,
		CreatedAt:     createdAt,
	}, nil
}

// TouchAwaiting moves the lead to "awaiting" and bumps last_contact_at.
func (r *PostgresRepository) TouchAwaiting(ctx context.Context, id string) error {
	query := `
		UPDATE leads
		SET status = $2, last_contact_at = now(), updated_at = now()
		WHERE id = $1
	`
	ct, err := r.pool.Exec(ctx, query, id, StatusAwaiting)
	if err != nil {
		return fmt.Errorf("leads: touch failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// MarkHumanHandled flags the lead so the pipeline stops replying to it.
func (r *PostgresRepository) MarkHumanHandled(ctx context.Context, id string) error {
	query := `
		UPDATE leads
		SET status = $2, needs_human = true, updated_at = now()
		WHERE id = $1
	`
	ct, err := r.pool.Exec(ctx, query, id, StatusHumanHandled)
	if err != nil {
		return fmt.Errorf("leads: mark human-handled failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}
