package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"

	"github.com/Tyrowin/nexus-chat/internal/dispatch"
	"github.com/Tyrowin/nexus-chat/internal/server"
	"github.com/Tyrowin/nexus-chat/internal/store"
)

func main() {
	envErr := godotenv.Load()

	cfg := server.NewConfigFromEnv()
	logger := server.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("Could not load .env file", "error", envErr)
	}
	logger.Info("Starting Nexus Chat server...")

	st := store.New(
		store.WithMaxMessages(cfg.MaxStoredMessages),
		store.WithLogger(logger.With("component", "store")),
	)
	dispatcher := dispatch.New(st,
		dispatch.WithLimits(cfg.Limits()),
		dispatch.WithHistorySize(cfg.HistorySize),
		dispatch.WithAvatarBaseURL(cfg.AvatarBaseURL),
		dispatch.WithLogger(logger.With("component", "dispatch")),
	)

	hub := server.NewHub(dispatcher, logger)
	go hub.Run()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go st.RunCleanup(sweepCtx, cfg.CleanupInterval)

	httpServer := server.CreateServer(cfg.Port, server.NewRouter(cfg, hub, st, logger))
	go func() {
		if err := server.StartServer(httpServer, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return server.ShutdownServer(ctx, httpServer, logger)
			},
			"hub": func(ctx context.Context) error {
				return hub.Shutdown(ctx)
			},
			"cleanup": func(context.Context) error {
				stopSweep()
				return nil
			},
		},
	)

	exitCode := <-wait
	logger.Info("Server exited", "code", exitCode)
	os.Exit(exitCode)
}
