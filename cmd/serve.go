package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/ec0249-assessment/internal/config"
	"github.com/SAP-F-2025/ec0249-assessment/internal/events"
	"github.com/SAP-F-2025/ec0249-assessment/internal/handlers"
	"github.com/SAP-F-2025/ec0249-assessment/internal/metrics"
	"github.com/SAP-F-2025/ec0249-assessment/internal/services"
	"github.com/SAP-F-2025/ec0249-assessment/internal/utils"
	"github.com/SAP-F-2025/ec0249-assessment/pkg"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assessment HTTP API and command consumer",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := utils.NewLogger(os.Stdout, cfg.IsProduction())
	slogger := logger.Slog()

	c, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	logger.Info("Assessment catalog loaded", "version", c.Version(), "assessments", c.Len())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := pkg.NewStore(ctx, cfg, slogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.LogError(err, "Failed to close storage")
		}
	}()
	logger.Info("Storage ready", "driver", cfg.StorageDriver)

	bus, err := cfg.Events.CreateEventBus(slogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Publisher.Close(); err != nil {
			logger.LogError(err, "Failed to close event publisher")
		}
	}()

	m := metrics.New()
	manager := services.NewSessionManager(services.EngineConfig{
		Catalog:   c,
		Store:     store,
		Publisher: bus.Publisher,
		Metrics:   m,
		Logger:    slogger,
	})

	var commands *events.CommandRouter
	if bus.Subscriber != nil {
		commands, err = events.NewCommandRouter(events.CommandRouterConfig{
			Subscriber: bus.Subscriber,
			Topic:      cfg.Events.CommandTopic,
			Handler:    manager,
			Logger:     slogger,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := commands.Run(ctx); err != nil {
				logger.LogError(err, "Command router stopped")
			}
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.LoggerMiddleware(logger))
	handlers.NewHandlerManager(handlers.HandlerConfig{
		Manager:     manager,
		Metrics:     m,
		TokenParser: handlers.NewCasdoorTokenParser(cfg.Auth),
		RateLimit:   cfg.RateLimit,
		Logger:      logger,
	}).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "port", cfg.Port, "auth", cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	if commands != nil {
		if cerr := commands.Close(); cerr != nil {
			logger.LogError(cerr, "Failed to close command router")
		}
	}
	if merr := manager.Close(shutdownCtx); merr != nil {
		logger.LogError(merr, "Failed to suspend sessions")
	}
	return err
}
