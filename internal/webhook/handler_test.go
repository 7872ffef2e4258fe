package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func postWebhook(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleInbound(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestHandleInboundSuccess(t *testing.T) {
	w := wireTestPipeline(t, nil)
	h := NewHandler(w.pipeline, nil, nil)

	rec, resp := postWebhook(t, h, `{"phone":"5511999998888","messageId":"Z1","body":"quero saber o preço"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.True(t, resp.Success)
	require.NotNil(t, resp.NeedsHuman)
	require.True(t, *resp.NeedsHuman)
	require.Len(t, w.outbound.sent, 1)
}

func TestHandleInboundMalformedSkipsStore(t *testing.T) {
	w := wireTestPipeline(t, nil)
	h := NewHandler(w.pipeline, nil, nil)

	rec, resp := postWebhook(t, h, `{"event":"status","payload":{"foo":1}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, resp.Success)
	require.Equal(t, "unrecognized payload shape", resp.Message)
	// rejected before any store access
	require.Zero(t, w.repo.calls)
	require.Empty(t, w.msgs.rows)
}

func TestHandleInboundSelfMessageIgnored(t *testing.T) {
	w := wireTestPipeline(t, nil)
	h := NewHandler(w.pipeline, nil, nil)

	rec, resp := postWebhook(t, h, `{"phone":"5511999998888","fromMe":true,"body":"eco"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.Equal(t, "own message ignored", resp.Message)
	require.Zero(t, w.repo.calls)
}

func TestHandleInboundStoreUnavailable(t *testing.T) {
	w := wireTestPipeline(t, nil)
	w.repo.fail = true
	h := NewHandler(w.pipeline, nil, nil)

	rec, resp := postWebhook(t, h, `{"phone":"5511999998888","body":"oi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.False(t, resp.Success)
	require.Equal(t, "storage unavailable", resp.Message)
}

func TestHandleInboundDuplicateOmitsNeedsHuman(t *testing.T) {
	w := wireTestPipeline(t, nil)
	_, dedup := newTestDedup(t)
	w.pipeline.dedup = dedup
	h := NewHandler(w.pipeline, nil, nil)

	body := `{"phone":"5511999998888","messageId":"Z1","body":"oi"}`
	rec, _ := postWebhook(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := postWebhook(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.Nil(t, resp.NeedsHuman)
	require.Len(t, w.outbound.sent, 1)
}

func TestHandleInboundInvalidJSON(t *testing.T) {
	w := wireTestPipeline(t, nil)
	h := NewHandler(w.pipeline, nil, nil)

	rec, resp := postWebhook(t, h, `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, resp.Success)
}
