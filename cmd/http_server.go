package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/listing-marketplace/internal/listing"
	"github.com/frahmantamala/listing-marketplace/internal/payment"
	"github.com/frahmantamala/listing-marketplace/internal/report"
	"github.com/frahmantamala/listing-marketplace/internal/transport"
	"github.com/frahmantamala/listing-marketplace/internal/transport/middleware"
	"github.com/frahmantamala/listing-marketplace/internal/transport/rest"
	"github.com/frahmantamala/listing-marketplace/internal/transport/swagger"
	"github.com/frahmantamala/listing-marketplace/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server serving the wizard, the catalog, payments and reports`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.LoggerWrapper()

	ctx := context.Background()
	app, err := buildApplication(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	handlers, err := buildHandlers(ctx, app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize handlers: %v\n", err)
		os.Exit(1)
	}

	var sqlDB *sql.DB
	if app.db != nil {
		sqlDB = app.db.DB
	}
	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, sqlDB, handlers, log)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting HTTP server",
		"address", addr,
		"payment_mode", cfg.Payment.Mode,
		"storage_driver", cfg.Storage.Driver,
		"in_memory_records", cfg.Database.IsMemory())

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			app.close()
			os.Exit(1)
		}
	}

	log.Info("Server stopped")
}

func buildHandlers(ctx context.Context, app *application) (rest.Handlers, error) {
	cfg := app.cfg
	base := transport.NewBaseHandler(app.logger)

	h := rest.Handlers{
		Listing: listing.NewHandler(base, app.listings, app.sweeper,
			cfg.Listing.WizardStartPath, cfg.Listing.MaxPhotoBytes),
		Report:         report.NewHandler(base, app.reports),
		ReportLimiter:  middleware.NewRateLimiter(cfg.Reports.RatePerMinute, cfg.Reports.Burst, app.logger),
		Media:          app.media,
		Readiness:      app.readiness,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	// catalog mode has no gateway, so there is nothing to return from or to reconcile
	if cfg.Payment.RequiresPayment() {
		h.Payment = payment.NewHandler(base, app.payments)
		h.Webhook = payment.NewWebhookHandler(base, app.payments, cfg.Payment.WebhookSecret, cfg.Payment.SignatureTolerance)
	}

	if cfg.Server.OpenAPIPath != "" {
		doc, err := swagger.LoadDocument(ctx, cfg.Server.OpenAPIPath)
		if err != nil {
			return rest.Handlers{}, err
		}
		app.logger.Info("openapi document loaded",
			"title", doc.Title(),
			"version", doc.Version(),
			"paths", doc.PathCount())
		h.OpenAPI = doc
	}

	return h, nil
}
