package leads

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepository(mock)
}

func TestGetByPhoneFound(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now()
	id := uuid.NewString()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, phone, name, status, source, needs_human, last_contact_at, created_at")).
		WithArgs("11999998888").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "phone", "name", "status", "source", "needs_human", "last_contact_at", "created_at",
		}).AddRow(id, "11999998888", "Maria", StatusAwaiting, SourceWebhook, false, now, now))

	lead, err := repo.GetByPhone(context.Background(), "11999998888")
	require.NoError(t, err)
	require.Equal(t, id, lead.ID)
	require.Equal(t, StatusAwaiting, lead.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByPhoneNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("SELECT id, phone").
		WithArgs("11900000000").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByPhone(context.Background(), "11900000000")
	require.ErrorIs(t, err, ErrLeadNotFound)
}

func TestCreateLead(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO leads")).
		WithArgs(pgxmock.AnyArg(), "11999998888", "Maria", StatusNew, SourceWebhook, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	lead, err := repo.Create(context.Background(), &CreateLeadRequest{
		Phone:  "11999998888",
		Name:   "Maria",
		Source: SourceWebhook,
	})
	require.NoError(t, err)
	require.Equal(t, StatusNew, lead.Status)
	require.False(t, lead.NeedsHuman)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLeadMissingPhone(t *testing.T) {
	_, repo := newMockRepo(t)
	_, err := repo.Create(context.Background(), &CreateLeadRequest{Name: "x"})
	require.ErrorIs(t, err, ErrMissingPhone)
}

func TestTouchAwaiting(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.NewString()

	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, last_contact_at = now(), updated_at = now()")).
		WithArgs(id, StatusAwaiting).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.TouchAwaiting(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkHumanHandledNoRow(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.NewString()

	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, needs_human = true, updated_at = now()")).
		WithArgs(id, StatusHumanHandled).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, repo.MarkHumanHandled(context.Background(), id), ErrLeadNotFound)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("SELECT id, phone").
		WithArgs("11999998888").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.GetByPhone(context.Background(), "11999998888")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrLeadNotFound)
}
