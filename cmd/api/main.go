package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/app"
	"github.com/alokkulkarni/connect-relay/internal/config"
	"github.com/alokkulkarni/connect-relay/internal/handler"
	"github.com/alokkulkarni/connect-relay/internal/logger"
	"github.com/alokkulkarni/connect-relay/internal/tracer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{}).Fatal("failed to load configuration", zap.Error(err))
	}

	log := logger.New(logger.Options{FilePath: cfg.Log.FilePath, Production: cfg.Log.Production()})
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if envErr != nil {
		log.Warn("failed to load .env file, continuing with system environment variables only", zap.Error(envErr))
	}

	shutdownTracer := tracer.InitTracer(ctx, cfg.Tracing, log)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			log.Warn("failed to flush tracer", zap.Error(err))
		}
	}()

	awsCfg, err := app.LoadAWS(ctx, cfg.AWS)
	if err != nil {
		log.Fatal("failed to initialise AWS clients", zap.Error(err))
	}

	relaySvc, store := app.NewRelay(awsCfg, cfg, log)
	go store.Run(ctx, cfg.Server.SweepInterval)

	svcs := handler.Services{
		Relay: relaySvc,
		Tools: app.NewTools(cfg, log),
	}

	if cfg.Voice.Routes.Len() > 0 {
		svcs.Voice = app.NewVoice(awsCfg, cfg, log)
		log.Info("voice websocket enabled", zap.Int("departments", cfg.Voice.Routes.Len()))
	} else {
		log.Info("QUEUE_MAP is empty, skipping voice websocket")
	}

	turns, err := app.NewTurnRouter(ctx, awsCfg, cfg, log)
	if err != nil {
		log.Warn("failed to initialise turn router, continuing without text turns", zap.Error(err))
	} else {
		svcs.Turns = turns.Router
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Learning.Timeout)
			defer cancel()
			if err := turns.Close(closeCtx); err != nil {
				log.Warn("background learning tasks did not finish", zap.Error(err))
			}
		}()
	}

	router := handler.NewRouter(cfg.Server, svcs, log)

	if err := startServer(ctx, cfg.Server, router, log); err != nil {
		log.Error("server error", zap.Error(err))
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *zap.Logger) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("connect relay listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
