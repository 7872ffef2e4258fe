package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diegodemontetech/boneheal-messaging/internal/ai"
)

type stubAnalyzer struct {
	analysis ai.Analysis
	err      error
	calls    int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, leadName, message string) (ai.Analysis, error) {
	s.calls++
	return s.analysis, s.err
}

func TestDecideHumanHandledStaysQuiet(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: ai.Analysis{Reply: "should never be used"}}
	e := NewEngine(analyzer, nil)

	d := e.Decide(context.Background(), Input{NeedsHuman: true, Text: "atendente"})
	require.Empty(t, d.Reply)
	require.True(t, d.Escalate)
	require.Equal(t, SourceNone, d.Source)
	require.Zero(t, analyzer.calls)
}

func TestDecideKeywordBeatsAI(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: ai.Analysis{Reply: "resposta da ia"}}
	e := NewEngine(analyzer, nil)

	d := e.Decide(context.Background(), Input{Text: "Quero falar com um Atendente"})
	require.Equal(t, HandoffReply, d.Reply)
	require.True(t, d.Escalate)
	require.Equal(t, SourceKeyword, d.Source)
	require.Zero(t, analyzer.calls)
}

func TestDecideAISuccess(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: ai.Analysis{
		Reply:          "A membrana custa R$ 250.",
		Intent:         ai.IntentQuestion,
		ShouldTransfer: false,
	}}
	e := NewEngine(analyzer, nil)

	d := e.Decide(context.Background(), Input{LeadName: "Maria", Text: "qual o preço?"})
	require.Equal(t, "A membrana custa R$ 250.", d.Reply)
	require.False(t, d.Escalate)
	require.Equal(t, SourceAI, d.Source)
	require.Equal(t, 1, analyzer.calls)
}

func TestDecideAITransferEscalates(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: ai.Analysis{
		Reply:          "Vou te encaminhar para nossa equipe.",
		Intent:         ai.IntentComplaint,
		ShouldTransfer: true,
	}}
	e := NewEngine(analyzer, nil)

	d := e.Decide(context.Background(), Input{Text: "meu pedido veio errado"})
	require.True(t, d.Escalate)
	require.Equal(t, SourceAI, d.Source)
}

func TestDecideAIFailureFallsBack(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("timeout")}
	e := NewEngine(analyzer, nil)

	d := e.Decide(context.Background(), Input{Text: "quero saber o preço"})
	require.Equal(t, FallbackReply, d.Reply)
	require.True(t, d.Escalate)
	require.Equal(t, SourceFallback, d.Source)
}

func TestDecideNoAnalyzerFallsBack(t *testing.T) {
	e := NewEngine(nil, nil)

	d := e.Decide(context.Background(), Input{Text: "quero saber o preço"})
	require.Equal(t, FallbackReply, d.Reply)
	require.True(t, d.Escalate)
	require.Equal(t, SourceFallback, d.Source)
}

// Repeated failures always yield the same conservative decision.
func TestDecideFallbackIdempotent(t *testing.T) {
	analyzer := &stubAnalyzer{err: ai.ErrAnalysisFailed}
	e := NewEngine(analyzer, nil)

	for i := 0; i < 3; i++ {
		d := e.Decide(context.Background(), Input{Text: "oi"})
		require.Equal(t, FallbackReply, d.Reply)
		require.True(t, d.Escalate)
	}
}
