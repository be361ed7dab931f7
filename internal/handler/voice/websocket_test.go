package voice

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/model/voice"
)

type stubTurns struct {
	mu     sync.Mutex
	events []voice.Event
}

func (s *stubTurns) Handle(_ context.Context, event voice.Event) voice.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return voice.Result{StatusCode: 200, Action: voice.ActionTransfer, TargetQueue: "Sales", TargetQueueArn: "arn:queue:1"}
}

type received struct {
	Type         string         `json:"type"`
	ConnectionID string         `json:"connectionId"`
	Data         map[string]any `json:"data"`
}

func dial(t *testing.T, turns TurnHandler) *websocket.Conn {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api", NewWebSocketHandler(turns, zap.NewNop()).RegisterWebSocketRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/voice/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello received
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello.Type)
	assert.NotEmpty(t, hello.ConnectionID)
	return conn
}

func TestAudioMessageReturnsResult(t *testing.T) {
	turns := &stubTurns{}
	conn := dial(t, turns)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "audio",
		"data": map[string]string{"audioChunk": "AAAA", "locale": "en_GB"},
	}))

	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "result", msg.Type)
	assert.Equal(t, "transfer", msg.Data["action"])
	assert.Equal(t, "arn:queue:1", msg.Data["targetQueueArn"])

	turns.mu.Lock()
	defer turns.mu.Unlock()
	require.Len(t, turns.events, 1)
	assert.Equal(t, voice.Event{AudioChunk: "AAAA", Locale: "en_GB"}, turns.events[0])
}

func TestUnsupportedMessageType(t *testing.T) {
	conn := dial(t, &stubTurns{})

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "hi"}}))

	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "unsupported message type: text", msg.Data["message"])
}

func TestInvalidAudioPayload(t *testing.T) {
	turns := &stubTurns{}
	conn := dial(t, turns)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audio", "data": "not-an-object"}))

	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	turns.mu.Lock()
	defer turns.mu.Unlock()
	assert.Empty(t, turns.events)
}
