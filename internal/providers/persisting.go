package providers

import (
	"context"

	"github.com/google/uuid"

	"github.com/diegodemontetech/boneheal-messaging/internal/messages"
	"github.com/diegodemontetech/boneheal-messaging/pkg/logging"
)

// MessageStore persists outbound audit rows.
type MessageStore interface {
	Insert(ctx context.Context, rec messages.MessageRecord) (uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// PersistingSender wraps a Registry to persist outbound messages. The
// audit row is written before the send and marked sent/failed after, so
// failed deliveries still leave a trail.
type PersistingSender struct {
	registry *Registry
	store    MessageStore
	logger   *logging.Logger
}

// WrapWithPersistence wraps the registry with audit-row persistence.
// If store is nil, the registry is returned unchanged.
func WrapWithPersistence(registry *Registry, store MessageStore, logger *logging.Logger) ReplySender {
	if store == nil {
		return registry
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PersistingSender{registry: registry, store: store, logger: logger}
}

var _ ReplySender = (*PersistingSender)(nil)

// SendReply persists the outbound row, dispatches, then records the outcome.
func (p *PersistingSender) SendReply(ctx context.Context, reply OutboundReply) error {
	_, providerName, err := p.registry.Resolve(reply.ProviderHint)
	if err != nil {
		return err
	}

	sentBy := reply.SentBy
	if sentBy == "" {
		sentBy = messages.SentByBot
	}
	rec := messages.MessageRecord{
		LeadID:    reply.LeadID,
		Body:      reply.Body,
		Direction: messages.DirectionOutbound,
		SentBy:    sentBy,
		Provider:  providerName,
		Status:    messages.StatusPending,
	}

	msgID, err := p.store.Insert(ctx, rec)
	if err != nil {
		// Delivery matters more than persistence; keep going.
		p.logger.Warn("failed to persist outbound message", "error", err, "lead_id", reply.LeadID, "to", reply.To)
	}

	sendErr := p.registry.SendReply(ctx, reply)

	if msgID != uuid.Nil {
		status := messages.StatusSent
		if sendErr != nil {
			status = messages.StatusFailed
		}
		if updateErr := p.store.UpdateStatus(ctx, msgID, status); updateErr != nil {
			p.logger.Warn("failed to update outbound message status", "error", updateErr, "msg_id", msgID)
		}
	}

	return sendErr
}
