package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	model "github.com/alokkulkarni/connect-relay/internal/model/relay"
	relayService "github.com/alokkulkarni/connect-relay/internal/service/relay"
	"github.com/alokkulkarni/connect-relay/pkg/utils"
)

// Service is the relay surface used by the HTTP handler.
type Service interface {
	StartChat(ctx context.Context, req model.StartChatRequest) (model.StartChatResponse, error)
	CreateConnection(ctx context.Context, req model.CreateConnectionRequest) (model.CreateConnectionResponse, error)
	SendMessage(ctx context.Context, req model.SendMessageRequest) (model.SendMessageResponse, error)
	GetTranscript(ctx context.Context, req model.GetTranscriptRequest) (model.GetTranscriptResponse, error)
	Disconnect(ctx context.Context, req model.DisconnectRequest) (model.DisconnectResponse, error)
	ActiveSessions() int
}

// Handler 会话中继的HTTP处理器
type Handler struct {
	svc Service
	log *zap.Logger
}

// New 创建会话中继处理器
func New(svc Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log.With(zap.String("module", "relay-http"))}
}

// RegisterRoutes 注册会话中继相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/start-chat", h.handleStartChat)
	r.Post("/create-connection", h.handleCreateConnection)
	r.Post("/send-message", h.handleSendMessage)
	r.Post("/get-transcript", h.handleGetTranscript)
	r.Post("/disconnect", h.handleDisconnect)
}

// HandleHealth 健康检查
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UTC(),
		"activeSessions": h.svc.ActiveSessions(),
	})
}

func (h *Handler) handleStartChat(w http.ResponseWriter, r *http.Request) {
	var payload model.StartChatRequest
	if !h.decode(w, r, &payload) {
		return
	}

	resp, err := h.svc.StartChat(r.Context(), payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateConnectionRequest
	if !h.decode(w, r, &payload) {
		return
	}

	resp, err := h.svc.CreateConnection(r.Context(), payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload model.SendMessageRequest
	if !h.decode(w, r, &payload) {
		return
	}

	resp, err := h.svc.SendMessage(r.Context(), payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	var payload model.GetTranscriptRequest
	if !h.decode(w, r, &payload) {
		return
	}

	resp, err := h.svc.GetTranscript(r.Context(), payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var payload model.DisconnectRequest
	if !h.decode(w, r, &payload) {
		return
	}

	resp, err := h.svc.Disconnect(r.Context(), payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// decode 解析请求体，失败时直接写入400响应
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var validationErr *relayService.ValidationError
	if errors.As(err, &validationErr) {
		utils.RespondError(w, http.StatusBadRequest, validationErr.Message)
		return
	}

	var upstreamErr *relayService.UpstreamError
	if errors.As(err, &upstreamErr) {
		utils.RespondErrorCode(w, http.StatusInternalServerError, upstreamErr.Message, upstreamErr.Code)
		return
	}

	h.log.Error("unexpected relay error", zap.Error(err))
	utils.RespondError(w, http.StatusInternalServerError, "internal error")
}
