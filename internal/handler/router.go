package handler

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/config"
	"github.com/alokkulkarni/connect-relay/internal/handler/relay"
	"github.com/alokkulkarni/connect-relay/internal/handler/turn"
	"github.com/alokkulkarni/connect-relay/internal/handler/voice"
	middlewarePkg "github.com/alokkulkarni/connect-relay/internal/middleware"
)

// Services groups the handlers' dependencies. Relay is required; a nil Voice,
// Turns or Tools leaves its routes unmounted.
type Services struct {
	Relay relay.Service
	Voice voice.TurnHandler
	Turns turn.Router
	Tools turn.Tools
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg config.ServerConfig, svcs Services, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))

	relayHandler := relay.New(svcs.Relay, log)

	r.Get("/health", relayHandler.HandleHealth)

	r.Route("/api", func(api chi.Router) {
		relayHandler.RegisterRoutes(api)

		turn.New(svcs.Turns, svcs.Tools, log).RegisterRoutes(api)

		if svcs.Voice != nil {
			voice.NewWebSocketHandler(svcs.Voice, log).RegisterWebSocketRoutes(api)
		}
	})

	// Static chat test page.
	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
		} else {
			log.Warn("static directory not found, test page disabled", zap.String("dir", cfg.StaticDir))
		}
	}

	return otelhttp.NewHandler(r, "connect-relay",
		otelhttp.WithFilter(func(req *http.Request) bool { return req.URL.Path != "/health" }),
	)
}
