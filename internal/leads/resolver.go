package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/diegodemontetech/boneheal-messaging/internal/messages"
	"github.com/diegodemontetech/boneheal-messaging/pkg/logging"
)

// SourceWebhook marks leads created by first contact over WhatsApp.
const SourceWebhook = "webhook"

// MessageAppender appends audit rows for resolved leads.
type MessageAppender interface {
	Insert(ctx context.Context, rec messages.MessageRecord) (uuid.UUID, error)
}

// ResolveInput carries the inbound message fields the resolver needs.
type ResolveInput struct {
	Phone             string
	Name              string
	Body              string
	Provider          string
	ProviderMessageID string
}

// Resolution is the outcome of looking up or creating a lead.
type Resolution struct {
	Lead       *Lead
	NeedsHuman bool
	Created    bool
}

// Resolver looks up or creates leads for inbound messages and appends
// the inbound row to the audit trail.
type Resolver struct {
	repo     Repository
	appender MessageAppender
	logger   *logging.Logger
}

func NewResolver(repo Repository, appender MessageAppender, logger *logging.Logger) *Resolver {
	if repo == nil {
		panic("leads: repository required")
	}
	if appender == nil {
		panic("leads: message appender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{repo: repo, appender: appender, logger: logger}
}

// Resolve finds the lead for a phone number, creating it on first
// contact. Human-handled leads are returned untouched. Any store error
// aborts with ErrStoreUnavailable; the provider retries the webhook.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*Resolution, error) {
	if in.Phone == "" {
		return nil, ErrMissingPhone
	}

	res := &Resolution{}
	lead, err := r.repo.GetByPhone(ctx, in.Phone)
	switch {
	case err == nil:
		if lead.Status == StatusHumanHandled {
			res.Lead = lead
			res.NeedsHuman = true
		} else {
			if err := r.repo.TouchAwaiting(ctx, lead.ID); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			lead.Status = StatusAwaiting
			res.Lead = lead
		}
	case errors.Is(err, ErrLeadNotFound):
		created, err := r.repo.Create(ctx, &CreateLeadRequest{
			Phone:  in.Phone,
			Name:   in.Name,
			Source: SourceWebhook,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		r.logger.Info("lead created", "lead_id", created.ID, "phone", created.Phone)
		res.Lead = created
		res.Created = true
	default:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if _, err := r.appender.Insert(ctx, messages.MessageRecord{
		LeadID:            res.Lead.ID,
		Body:              in.Body,
		Direction:         messages.DirectionInbound,
		SentBy:            messages.SentByCustomer,
		Provider:          in.Provider,
		ProviderMessageID: in.ProviderMessageID,
		Status:            messages.StatusReceived,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return res, nil
}
