package turn

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/model/lex"
	"github.com/alokkulkarni/connect-relay/internal/model/tool"
	"github.com/alokkulkarni/connect-relay/pkg/utils"
)

// Router routes one Lex V2 text turn.
type Router interface {
	Route(ctx context.Context, event lex.Event) lex.Response
}

// Tools invokes a simulated tool.
type Tools interface {
	Invoke(ctx context.Context, event tool.Event) tool.Response
}

// Handler exposes the Lambda turn handlers over HTTP for the local test page.
type Handler struct {
	router Router
	tools  Tools
	log    *zap.Logger
}

// New 创建轮次处理器，router 或 tools 为 nil 时不注册对应路由
func New(router Router, tools Tools, log *zap.Logger) *Handler {
	return &Handler{router: router, tools: tools, log: log.With(zap.String("module", "turn-http"))}
}

// RegisterRoutes 注册轮次相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	if h.router != nil {
		r.Post("/turns/text", h.handleText)
	}
	if h.tools != nil {
		r.Post("/turns/tool", h.handleTool)
	}
}

func (h *Handler) handleText(w http.ResponseWriter, r *http.Request) {
	var event lex.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// 路由器从不返回错误，失败已转换为安全文本
	utils.RespondJSON(w, http.StatusOK, h.router.Route(r.Context(), event))
}

func (h *Handler) handleTool(w http.ResponseWriter, r *http.Request) {
	var event tool.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := h.tools.Invoke(r.Context(), event)
	if resp.Status == tool.StatusError {
		h.log.Info("tool returned error", zap.String("tool", event.Tool), zap.String("message", resp.Message))
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}
