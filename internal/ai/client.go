package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/diegodemontetech/boneheal-messaging/pkg/logging"
)

// ErrAnalysisFailed is returned for any completion or parse failure.
// Callers treat it as "no analysis" and fall back to the default reply.
var ErrAnalysisFailed = errors.New("ai: analysis failed")

// Analysis is the structured result the model is prompted to emit.
type Analysis struct {
	Reply          string `json:"reply"`
	Intent         string `json:"intent"`
	ShouldTransfer bool   `json:"should_transfer"`
}

// Intents the prompt asks the model to choose from.
const (
	IntentQuestion  = "question"
	IntentPurchase  = "purchase"
	IntentComplaint = "complaint"
	IntentOther     = "other"
)

// Client calls a chat-completion endpoint and extracts the structured
// analysis from the model's free-text reply.
type Client struct {
	api     *openai.Client
	model   string
	persona string
	timeout time.Duration
	logger  *logging.Logger
}

// NewClient builds a client, or nil when no API key is configured so
// callers can treat the AI step as absent.
func NewClient(apiKey, baseURL, model, persona string, timeout time.Duration, logger *logging.Logger) *Client {
	if apiKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		persona: persona,
		timeout: timeout,
		logger:  logger,
	}
}

// Analyze asks the model for a reply plus intent classification. The
// model is prompted to emit JSON inline in its text output, so the
// response is parsed best-effort; anything unparseable fails with
// ErrAnalysisFailed.
func (c *Client) Analyze(ctx context.Context, leadName, message string) (Analysis, error) {
	if c == nil || c.api == nil {
		return Analysis{}, ErrAnalysisFailed
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: c.userPrompt(leadName, message)},
		},
		Temperature: 0.4,
	})
	if err != nil {
		c.logger.Warn("ai completion failed", "error", err)
		return Analysis{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	if len(resp.Choices) == 0 {
		return Analysis{}, fmt.Errorf("%w: empty completion", ErrAnalysisFailed)
	}

	analysis, err := ParseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("ai response unparseable", "error", err, "content", resp.Choices[0].Message.Content)
		return Analysis{}, err
	}
	return analysis, nil
}

func (c *Client) systemPrompt() string {
	return fmt.Sprintf(`Você é %s, assistente virtual da Bone Heal, empresa brasileira de biomateriais para regeneração óssea odontológica.
Responda sempre em português, de forma curta e cordial.
Sua resposta DEVE conter um objeto JSON com os campos:
  "reply" (string): a resposta a enviar ao cliente,
  "intent" (string): um de "question", "purchase", "complaint", "other",
  "should_transfer" (bool): true se um atendente humano deve assumir.`, c.persona)
}

func (c *Client) userPrompt(leadName, message string) string {
	name := strings.TrimSpace(leadName)
	if name == "" {
		name = "Cliente"
	}
	return fmt.Sprintf("Mensagem de %s: %s", name, message)
}

// ParseAnalysis extracts the first JSON object found in the model's
// text output and decodes it. The model sometimes wraps the object in
// prose or code fences; both are tolerated.
func ParseAnalysis(text string) (Analysis, error) {
	raw, ok := extractJSONObject(text)
	if !ok {
		return Analysis{}, fmt.Errorf("%w: no JSON object in output", ErrAnalysisFailed)
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	if strings.TrimSpace(analysis.Reply) == "" {
		return Analysis{}, fmt.Errorf("%w: empty reply field", ErrAnalysisFailed)
	}
	return analysis, nil
}

// extractJSONObject returns the first balanced {...} span in text.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
