// Package httpd implements the HTTP server command for the index service.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/mxindex/cmd/common"
	"github.com/jonesrussell/mxindex/internal/api"
	"github.com/jonesrussell/mxindex/internal/logger"
	"github.com/jonesrussell/mxindex/internal/scheduler"
)

const (
	signalChannelBufferSize = 1
	errorChannelBufferSize  = 1
)

// Command returns the httpd command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Start(cmd.Context())
		},
	}
}

// Start starts the HTTP server and runs until interrupted. It handles
// graceful shutdown on SIGINT or SIGTERM.
func Start(ctx context.Context) error {
	deps, err := common.NewDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	app, err := common.NewApp(ctx, deps)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Close()

	if !common.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.NewHandler(app.Service, app.Engine, app.Metrics, deps.Config.Discovery.SeedServers, deps.Logger)
	router := api.NewRouter(handler, deps.Logger, api.RouterOptions{
		Metrics:            app.Metrics,
		RateLimitPerMinute: deps.Config.RateLimit.PerMinute,
	})
	server := api.NewHTTPServer(router, deps.Config.Server)

	var sched *scheduler.Scheduler
	if schedule := deps.Config.Discovery.Schedule; schedule != "" {
		sched = scheduler.New(app.Engine, app.Metrics, deps.Config.Discovery.SeedServers, deps.Logger)
		if err := sched.Start(schedule); err != nil {
			return fmt.Errorf("failed to start discovery scheduler: %w", err)
		}
	}

	deps.Logger.Info("starting http server", "address", deps.Config.Server.Address)
	errChan := make(chan error, errorChannelBufferSize)
	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	return runUntilInterrupt(deps.Logger, server, sched, errChan, deps.Config.Server.ShutdownTimeout)
}

// runUntilInterrupt blocks until a signal or a server error, then shuts down
// gracefully.
func runUntilInterrupt(
	log logger.Interface,
	server *http.Server,
	sched *scheduler.Scheduler,
	errChan chan error,
	shutdownTimeout time.Duration,
) error {
	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case serveErr := <-errChan:
		log.Error("server error", "error", serveErr)
		return fmt.Errorf("server error: %w", serveErr)
	case sig := <-sigChan:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop server", "error", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	log.Info("server stopped")
	return nil
}
