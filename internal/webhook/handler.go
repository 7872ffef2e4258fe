package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/diegodemontetech/boneheal-messaging/internal/leads"
	"github.com/diegodemontetech/boneheal-messaging/internal/observability/metrics"
	"github.com/diegodemontetech/boneheal-messaging/pkg/logging"
)

var handlerTracer = otel.Tracer("boneheal.internal.webhook.handler")

const maxBodyBytes = 1 << 20

// Response is the JSON body returned to the messaging provider.
type Response struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	NeedsHuman *bool  `json:"needsHuman,omitempty"`
}

// Handler terminates the inbound WhatsApp webhook.
type Handler struct {
	pipeline *Pipeline
	metrics  *metrics.PipelineMetrics
	logger   *logging.Logger
}

func NewHandler(pipeline *Pipeline, m *metrics.PipelineMetrics, logger *logging.Logger) *Handler {
	if pipeline == nil {
		panic("webhook: pipeline required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{pipeline: pipeline, metrics: m, logger: logger}
}

// HandleInbound handles POST /webhooks/whatsapp requests.
func (h *Handler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	ctx, span := handlerTracer.Start(r.Context(), "webhook.inbound")
	defer span.End()
	start := time.Now()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.ObserveInbound("unknown", "read_error")
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "unreadable body"})
		return
	}

	msg, err := ParsePayload(raw, start.UTC())
	if err != nil {
		if errors.Is(err, ErrSelfMessage) {
			h.metrics.ObserveInbound("unknown", "self_message")
			writeJSON(w, http.StatusOK, Response{Success: true, Message: "own message ignored"})
			return
		}
		h.logger.Warn("malformed webhook payload", "error", err)
		span.RecordError(err)
		h.metrics.ObserveInbound("unknown", "malformed")
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "unrecognized payload shape"})
		return
	}

	result, err := h.pipeline.Process(ctx, msg)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, leads.ErrStoreUnavailable) {
			h.logger.Error("store unavailable", "error", err, "provider", msg.Provider)
			h.metrics.ObserveInbound(msg.Provider, "store_error")
			writeJSON(w, http.StatusInternalServerError, Response{Success: false, Message: "storage unavailable"})
			return
		}
		h.logger.Error("pipeline failed", "error", err, "provider", msg.Provider)
		h.metrics.ObserveInbound(msg.Provider, "error")
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Message: "internal error"})
		return
	}

	h.metrics.ObserveInbound(msg.Provider, "ok")
	h.metrics.ObserveLatency(msg.Provider, time.Since(start).Seconds())

	resp := Response{Success: true, Message: result.Message}
	if !result.Duplicate {
		needsHuman := result.NeedsHuman
		resp.NeedsHuman = &needsHuman
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
