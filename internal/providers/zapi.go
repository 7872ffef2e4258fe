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

var zapiTracer = otel.Tracer("boneheal.internal.providers.zapi")

// ZAPISender posts WhatsApp messages through the Z-API send-text endpoint.
type ZAPISender struct {
	baseURL    string
	instanceID string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewZAPISender builds a sender with sane defaults.
func NewZAPISender(baseURL, instanceID, token string, logger *logging.Logger) *ZAPISender {
	if logger == nil {
		logger = logging.Default()
	}
	if baseURL == "" {
		baseURL = "https://api.z-api.io"
	}
	return &ZAPISender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		instanceID: instanceID,
		token:      token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ ReplySender = (*ZAPISender)(nil)

// SendReply dispatches a single message via Z-API, retrying transient failures.
func (s *ZAPISender) SendReply(ctx context.Context, msg OutboundReply) error {
	if s.instanceID == "" || s.token == "" {
		return errors.New("providers: zapi credentials missing")
	}
	if msg.To == "" {
		return errors.New("providers: to required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return errors.New("providers: body required")
	}

	ctx, span := zapiTracer.Start(ctx, "providers.zapi.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("boneheal.lead_id", msg.LeadID),
		attribute.String("boneheal.to", msg.To),
	)

	payload := map[string]string{
		"phone":   e164BR(msg.To),
		"message": msg.Body,
	}
	endpoint := fmt.Sprintf("%s/instances/%s/token/%s/send-text", s.baseURL, s.instanceID, s.token)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("providers: failed to marshal zapi payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			lastErr = err
			break
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if msg.Metadata != nil && len(body) > 0 {
					var parsed struct {
						MessageID string `json:"messageId"`
						ZapID     string `json:"zaapId"`
					}
					if err := json.Unmarshal(body, &parsed); err == nil {
						if parsed.MessageID != "" {
							msg.Metadata["provider_message_id"] = parsed.MessageID
						}
					}
				}
				s.logger.Info("zapi message sent", "lead_id", msg.LeadID, "to", msg.To)
				return nil
			}
			lastErr = fmt.Errorf("zapi send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			// Don't retry client errors other than rate limits.
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
		s.logger.Error("failed to send zapi message", "error", lastErr, "lead_id", msg.LeadID, "to", msg.To)
	}
	return lastErr
}
