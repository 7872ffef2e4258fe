package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/diegodemontetech/boneheal-messaging/internal/messages"
)

type fakeStore struct {
	inserted  []messages.MessageRecord
	statuses  map[uuid.UUID]string
	insertErr error
}

func (f *fakeStore) Insert(ctx context.Context, rec messages.MessageRecord) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	f.inserted = append(f.inserted, rec)
	return rec.ID, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if f.statuses == nil {
		f.statuses = map[uuid.UUID]string{}
	}
	f.statuses[id] = status
	return nil
}

func newTestRegistry(inner ReplySender) *Registry {
	return NewRegistry(map[string]ReplySender{ProviderZAPI: inner}, []string{ProviderZAPI}, nil)
}

func TestPersistingSenderSuccess(t *testing.T) {
	inner := &recordingSender{}
	store := &fakeStore{}
	sender := WrapWithPersistence(newTestRegistry(inner), store, nil)

	err := sender.SendReply(context.Background(), OutboundReply{
		LeadID: "lead-1", To: "11999998888", Body: "oi",
	})
	require.NoError(t, err)
	require.Len(t, inner.sent, 1)
	require.Len(t, store.inserted, 1)

	rec := store.inserted[0]
	require.Equal(t, messages.DirectionOutbound, rec.Direction)
	require.Equal(t, messages.SentByBot, rec.SentBy)
	require.Equal(t, ProviderZAPI, rec.Provider)
	require.Equal(t, messages.StatusPending, rec.Status)
	require.Equal(t, messages.StatusSent, store.statuses[rec.ID])
}

// A failed delivery still leaves the audit row, marked failed.
func TestPersistingSenderDeliveryFailureKeepsAuditRow(t *testing.T) {
	inner := &recordingSender{err: errors.New("provider down")}
	store := &fakeStore{}
	sender := WrapWithPersistence(newTestRegistry(inner), store, nil)

	err := sender.SendReply(context.Background(), OutboundReply{
		LeadID: "lead-1", To: "11999998888", Body: "oi",
	})
	require.Error(t, err)
	require.Len(t, store.inserted, 1)
	require.Equal(t, messages.StatusFailed, store.statuses[store.inserted[0].ID])
}

func TestPersistingSenderInsertFailureStillSends(t *testing.T) {
	inner := &recordingSender{}
	store := &fakeStore{insertErr: errors.New("db down")}
	sender := WrapWithPersistence(newTestRegistry(inner), store, nil)

	err := sender.SendReply(context.Background(), OutboundReply{
		LeadID: "lead-1", To: "11999998888", Body: "oi",
	})
	require.NoError(t, err)
	require.Len(t, inner.sent, 1)
}

func TestWrapWithPersistenceNilStore(t *testing.T) {
	reg := newTestRegistry(&recordingSender{})
	require.Equal(t, ReplySender(reg), WrapWithPersistence(reg, nil, nil))
}
