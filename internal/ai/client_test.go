package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAnalysisPlainObject(t *testing.T) {
	a, err := ParseAnalysis(`{"reply":"Olá! Posso ajudar?","intent":"question","should_transfer":false}`)
	require.NoError(t, err)
	require.Equal(t, "Olá! Posso ajudar?", a.Reply)
	require.Equal(t, IntentQuestion, a.Intent)
	require.False(t, a.ShouldTransfer)
}

func TestParseAnalysisSurroundedByProse(t *testing.T) {
	text := "Claro! Aqui está a análise:\n```json\n" +
		`{"reply":"Temos a membrana Bone Heal em estoque.","intent":"purchase","should_transfer":true}` +
		"\n```\nEspero ter ajudado."
	a, err := ParseAnalysis(text)
	require.NoError(t, err)
	require.Equal(t, IntentPurchase, a.Intent)
	require.True(t, a.ShouldTransfer)
}

func TestParseAnalysisBracesInsideStrings(t *testing.T) {
	a, err := ParseAnalysis(`{"reply":"use chaves {assim} sem medo","intent":"other","should_transfer":false}`)
	require.NoError(t, err)
	require.Equal(t, "use chaves {assim} sem medo", a.Reply)
}

func TestParseAnalysisFailures(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"no json at all", "desculpe, não entendi a pergunta"},
		{"unbalanced object", `{"reply":"oi"`},
		{"invalid json", `{reply: oi}`},
		{"empty reply", `{"reply":"  ","intent":"other","should_transfer":true}`},
		{"empty input", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAnalysis(tc.text)
			require.ErrorIs(t, err, ErrAnalysisFailed)
		})
	}
}

// Repeated malformed output always yields the same failure.
func TestParseAnalysisIdempotentFailure(t *testing.T) {
	for i := 0; i < 3; i++ {
		_, err := ParseAnalysis("nada de json aqui")
		require.ErrorIs(t, err, ErrAnalysisFailed)
	}
}

func TestNewClientWithoutKey(t *testing.T) {
	c := NewClient("", "", "", "", 0, nil)
	require.Nil(t, c)
}

func TestAnalyzeNilClient(t *testing.T) {
	var c *Client
	_, err := c.Analyze(context.Background(), "Maria", "oi")
	require.ErrorIs(t, err, ErrAnalysisFailed)
}
