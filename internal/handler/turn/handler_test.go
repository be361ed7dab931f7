package turn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/model/lex"
	"github.com/alokkulkarni/connect-relay/internal/model/tool"
)

type stubRouter struct {
	got lex.Event
}

func (s *stubRouter) Route(_ context.Context, event lex.Event) lex.Response {
	s.got = event
	return lex.Close(event.SessionState.Intent.Name, lex.StateFulfilled, "routed", nil)
}

type stubTools struct{}

func (stubTools) Invoke(_ context.Context, event tool.Event) tool.Response {
	if event.Tool == "" {
		return tool.Error("missing")
	}
	return tool.Response{Status: tool.StatusSuccess}
}

func setupRouter(router Router, tools Tools) *chi.Mux {
	r := chi.NewRouter()
	New(router, tools, zap.NewNop()).RegisterRoutes(r)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTextTurnIsRouted(t *testing.T) {
	stub := &stubRouter{}
	r := setupRouter(stub, stubTools{})

	rec := post(r, "/turns/text", `{"inputTranscript":"hi","sessionState":{"intent":{"name":"FallbackIntent"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", stub.got.InputTranscript)

	var resp lex.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "FallbackIntent", resp.SessionState.Intent.Name)
	assert.Equal(t, "routed", resp.Text())
}

func TestTextTurnRejectsMalformedBody(t *testing.T) {
	r := setupRouter(&stubRouter{}, nil)

	rec := post(r, "/turns/text", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToolTurnReturnsEnvelopeEvenOnError(t *testing.T) {
	r := setupRouter(nil, stubTools{})

	rec := post(r, "/turns/tool", `{"tool":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)

	rec = post(r, "/turns/text", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
