package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diegodemontetech/boneheal-messaging/pkg/logging"
)

var evolutionTracer = otel.Tracer("boneheal.internal.providers.evolution")

// EvolutionSender posts WhatsApp messages through an Evolution API instance.
type EvolutionSender struct {
	baseURL    string
	apiKey     string
	instance   string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewEvolutionSender builds a sender for the Evolution sendText endpoint.
func NewEvolutionSender(baseURL, apiKey, instance string, logger *logging.Logger) *EvolutionSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &EvolutionSender{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		instance: instance,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ ReplySender = (*EvolutionSender)(nil)

// SendReply dispatches a single message via Evolution, retrying transient failures.
func (s *EvolutionSender) SendReply(ctx context.Context, msg OutboundReply) error {
	if s.baseURL == "" || s.apiKey == "" || s.instance == "" {
		return errors.New("providers: evolution credentials missing")
	}
	if msg.To == "" {
		return errors.New("providers: to required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return errors.New("providers: body required")
	}

	ctx, span := evolutionTracer.Start(ctx, "providers.evolution.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("boneheal.lead_id", msg.LeadID),
		attribute.String("boneheal.to", msg.To),
	)

	payload := map[string]string{
		"number": e164BR(msg.To),
		"text":   msg.Body,
	}
	endpoint := fmt.Sprintf("%s/message/sendText/%s", s.baseURL, s.instance)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("providers: failed to marshal evolution payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			lastErr = err
			break
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", s.apiKey)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if msg.Metadata != nil && len(body) > 0 {
					var parsed struct {
						Key struct {
							ID string `json:"id"`
						} `json:"key"`
					}
					if err := json.Unmarshal(body, &parsed); err == nil && parsed.Key.ID != "" {
						msg.Metadata["provider_message_id"] = parsed.Key.ID
					}
				}
				s.logger.Info("evolution message sent", "lead_id", msg.LeadID, "to", msg.To)
				return nil
			}
			lastErr = fmt.Errorf("evolution send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			sleep := time.Duration(200+rand.Intn(300)) * time.Millisecond
			time.Sleep(sleep)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
		s.logger.Error("failed to send evolution message", "error", lastErr, "lead_id", msg.LeadID, "to", msg.To)
	}
	return lastErr
}
