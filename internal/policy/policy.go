package policy

import (
	"context"

	"github.com/diegodemontetech/boneheal-messaging/internal/ai"
	"github.com/diegodemontetech/boneheal-messaging/pkg/logging"
)

// Fixed replies sent without AI involvement.
const (
	HandoffReply  = "Perfeito! Um de nossos atendentes vai falar com você em instantes."
	FallbackReply = "Recebemos sua mensagem! Em breve nossa equipe entrará em contato."
)

// Decision sources, recorded in metrics and the audit log.
const (
	SourceNone     = "none"
	SourceKeyword  = "keyword"
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// Analyzer produces an AI analysis for an inbound message.
type Analyzer interface {
	Analyze(ctx context.Context, leadName, message string) (ai.Analysis, error)
}

// Input is what the engine needs to decide a reply.
type Input struct {
	LeadName   string
	NeedsHuman bool
	Text       string
}

// Decision says what to reply (empty means stay silent) and whether the
// lead must be flagged for human handling.
type Decision struct {
	Reply    string
	Escalate bool
	Source   string
}

// Engine applies the reply rules in order: already human-handled leads
// get nothing, explicit handoff keywords get the fixed handoff reply,
// then the AI analysis, then the conservative default. Unanalyzed
// messages always escalate.
type Engine struct {
	detector *HandoffDetector
	analyzer Analyzer
	logger   *logging.Logger
}

func NewEngine(analyzer Analyzer, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		detector: NewHandoffDetector(),
		analyzer: analyzer,
		logger:   logger,
	}
}

// Decide never returns an error: AI failures degrade to the fallback
// reply rather than surfacing to the webhook caller.
func (e *Engine) Decide(ctx context.Context, in Input) Decision {
	if in.NeedsHuman {
		return Decision{Escalate: true, Source: SourceNone}
	}

	if e.detector.WantsHuman(in.Text) {
		return Decision{Reply: HandoffReply, Escalate: true, Source: SourceKeyword}
	}

	if e.analyzer != nil {
		analysis, err := e.analyzer.Analyze(ctx, in.LeadName, in.Text)
		if err == nil {
			return Decision{
				Reply:    analysis.Reply,
				Escalate: analysis.ShouldTransfer,
				Source:   SourceAI,
			}
		}
		e.logger.Warn("analysis failed, using fallback reply", "error", err)
	}

	return Decision{Reply: FallbackReply, Escalate: true, Source: SourceFallback}
}
