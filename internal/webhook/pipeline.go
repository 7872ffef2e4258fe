package webhook

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diegodemontetech/boneheal-messaging/internal/leads"
	"github.com/diegodemontetech/boneheal-messaging/internal/messages"
	"github.com/diegodemontetech/boneheal-messaging/internal/notifications"
	"github.com/diegodemontetech/boneheal-messaging/internal/observability/metrics"
	"github.com/diegodemontetech/boneheal-messaging/internal/policy"
	"github.com/diegodemontetech/boneheal-messaging/internal/providers"
	"github.com/diegodemontetech/boneheal-messaging/pkg/logging"
)

var pipelineTracer = otel.Tracer("boneheal.internal.webhook.pipeline")

// Result summarizes one processed webhook delivery.
type Result struct {
	Message    string
	Reply      string
	NeedsHuman bool
	Delivered  bool
	Duplicate  bool
}

// Pipeline runs the synchronous inbound-message flow:
// extractor output -> lead resolution -> reply policy -> send -> notify.
// It holds no per-request state; everything shared lives in the store.
type Pipeline struct {
	resolver *leads.Resolver
	repo     leads.Repository
	engine   *policy.Engine
	sender   providers.ReplySender
	notifier *notifications.Service
	dedup    *Dedup
	metrics  *metrics.PipelineMetrics
	logger   *logging.Logger
}

func NewPipeline(
	resolver *leads.Resolver,
	repo leads.Repository,
	engine *policy.Engine,
	sender providers.ReplySender,
	notifier *notifications.Service,
	dedup *Dedup,
	m *metrics.PipelineMetrics,
	logger *logging.Logger,
) *Pipeline {
	if resolver == nil || repo == nil || engine == nil || notifier == nil {
		panic("webhook: resolver, repo, engine and notifier are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		resolver: resolver,
		repo:     repo,
		engine:   engine,
		sender:   sender,
		notifier: notifier,
		dedup:    dedup,
		metrics:  m,
		logger:   logger,
	}
}

// Process handles one inbound message. Store failures abort and the
// provider retries the delivery; send failures degrade to a partial
// success since the inbound side was fully recorded.
func (p *Pipeline) Process(ctx context.Context, msg *InboundMessage) (*Result, error) {
	ctx, span := pipelineTracer.Start(ctx, "webhook.pipeline.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("boneheal.provider", msg.Provider),
		attribute.String("boneheal.phone", msg.Phone),
	)

	seen, err := p.dedup.Seen(ctx, msg.Provider, msg.ProviderMessageID)
	if err != nil {
		// Dedup is advisory; a redis outage must not drop messages.
		p.logger.Warn("dedup check failed", "error", err, "provider", msg.Provider)
	}
	if seen {
		p.logger.Info("duplicate delivery ignored", "provider", msg.Provider, "message_id", msg.ProviderMessageID)
		return &Result{Message: "duplicate delivery ignored", Duplicate: true}, nil
	}

	res, err := p.resolver.Resolve(ctx, leads.ResolveInput{
		Phone:             msg.Phone,
		Name:              msg.DisplayName,
		Body:              msg.Body,
		Provider:          msg.Provider,
		ProviderMessageID: msg.ProviderMessageID,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("boneheal.lead_id", res.Lead.ID))

	decision := p.engine.Decide(ctx, policy.Input{
		LeadName:   res.Lead.Name,
		NeedsHuman: res.NeedsHuman,
		Text:       msg.Body,
	})

	result := &Result{
		Message:    "message processed",
		Reply:      decision.Reply,
		NeedsHuman: res.NeedsHuman || decision.Escalate,
	}

	if decision.Reply != "" && p.sender != nil {
		sendErr := p.sender.SendReply(ctx, providers.OutboundReply{
			LeadID:       res.Lead.ID,
			To:           res.Lead.Phone,
			Body:         decision.Reply,
			SentBy:       messages.SentByBot,
			ProviderHint: msg.Provider,
			Metadata:     map[string]string{},
		})
		result.Delivered = sendErr == nil
		if sendErr != nil {
			// Partial success: inbound side is recorded, reply was not delivered.
			p.logger.Error("reply delivery failed", "error", sendErr, "lead_id", res.Lead.ID, "provider", msg.Provider)
			span.RecordError(sendErr)
		}
		p.metrics.ObserveReply(decision.Source, result.Delivered)
	}

	if decision.Escalate {
		if !res.NeedsHuman {
			if err := p.repo.MarkHumanHandled(ctx, res.Lead.ID); err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("%w: %v", leads.ErrStoreUnavailable, err)
			}
		}
		if err := p.notifier.NotifyHandoff(ctx, notifications.EscalatedLead{
			ID:    res.Lead.ID,
			Name:  res.Lead.Name,
			Phone: res.Lead.Phone,
		}); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: %v", leads.ErrStoreUnavailable, err)
		}
		p.metrics.ObserveEscalation()
	}

	// Only a fully handled message is recorded; failed attempts fall
	// through so the provider retry is processed.
	if err := p.dedup.Mark(ctx, msg.Provider, msg.ProviderMessageID); err != nil {
		p.logger.Warn("dedup mark failed", "error", err, "provider", msg.Provider)
	}

	p.logger.Info("webhook processed",
		"lead_id", res.Lead.ID,
		"provider", msg.Provider,
		"decision", decision.Source,
		"escalate", decision.Escalate,
		"delivered", result.Delivered,
		"elapsed_ms", time.Since(msg.ReceivedAt).Milliseconds(),
	)
	return result, nil
}
