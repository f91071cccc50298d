package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/listing-marketplace/internal"
	"github.com/frahmantamala/listing-marketplace/internal/core/events"
	"github.com/frahmantamala/listing-marketplace/internal/listing"
	listingpostgres "github.com/frahmantamala/listing-marketplace/internal/listing/postgres"
	"github.com/frahmantamala/listing-marketplace/internal/memstore"
	"github.com/frahmantamala/listing-marketplace/internal/objectstore"
	"github.com/frahmantamala/listing-marketplace/internal/payment"
	paymentpostgres "github.com/frahmantamala/listing-marketplace/internal/payment/postgres"
	"github.com/frahmantamala/listing-marketplace/internal/paymentgateway"
	"github.com/frahmantamala/listing-marketplace/internal/report"
	reportpostgres "github.com/frahmantamala/listing-marketplace/internal/report/postgres"
	"github.com/frahmantamala/listing-marketplace/internal/transport/rest"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// application holds every wired component. Commands build it once and use the
// parts they need.
type application struct {
	cfg    *internal.Config
	logger *slog.Logger

	// db is nil when records live in memory
	db *sqlx.DB

	listingRepo listing.RepositoryAPI
	paymentRepo payment.RepositoryAPI
	reportRepo  report.RepositoryAPI

	bus       *events.EventBus
	gateway   payment.GatewayAPI
	simulator *paymentgateway.Simulator
	storage   listing.ObjectStorage
	media     http.Handler
	// readiness holds dependency checks beyond the record store
	readiness map[string]rest.Check

	listings *listing.Service
	sweeper  *listing.Sweeper
	payments *payment.Service
	reports  *report.Service
}

func buildApplication(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger, readiness: map[string]rest.Check{}}

	if err := app.initRepositories(); err != nil {
		return nil, err
	}
	if err := app.initStorage(ctx); err != nil {
		return nil, err
	}
	app.initGateway()

	app.bus = events.NewEventBus(logger)
	listing.NewEventHandler(logger).RegisterEventHandlers(app.bus)

	gate := payment.NewGate(cfg.Payment, app.gateway, app.paymentRepo, logger)
	app.listings = listing.NewService(app.listingRepo, gate, app.storage, app.bus, logger,
		listing.WithMaxPhotos(cfg.Listing.MaxPhotos))
	app.sweeper = listing.NewSweeper(app.listingRepo, app.bus, logger, cfg.Listing.SweepBatchSize)
	app.payments = payment.NewService(app.paymentRepo, app.listings, app.gateway, cfg.Payment.ReconcileTimeout, logger)
	app.reports = report.NewService(app.reportRepo, logger)

	return app, nil
}

func (a *application) initRepositories() error {
	if a.cfg.Database.IsMemory() {
		a.logger.Warn("records are kept in memory and lost on restart")
		store := memstore.New()
		a.listingRepo = store.Listings()
		a.paymentRepo = store.Payments()
		a.reportRepo = store.Reports()
		return nil
	}

	db, err := initDB(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to open gorm session: %w", err)
	}

	a.db = db
	a.listingRepo = listingpostgres.NewListingRepository(gormDB)
	a.paymentRepo = paymentpostgres.NewPaymentRepository(gormDB)
	a.reportRepo = reportpostgres.NewReportRepository(gormDB)
	return nil
}

func (a *application) initStorage(ctx context.Context) error {
	if a.cfg.Storage.Driver == internal.StorageDriverMemory {
		mem := objectstore.NewMemoryStore(a.cfg.Storage.PublicBaseURL)
		a.storage = mem
		a.media = mem
		return nil
	}

	s3Store, err := objectstore.NewS3Store(ctx, a.cfg.Storage, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize photo storage: %w", err)
	}
	a.storage = s3Store
	a.readiness["object_storage"] = s3Store.Ping
	return nil
}

func (a *application) initGateway() {
	pc := a.cfg.Payment
	switch pc.Mode {
	case internal.PaymentModeCheckout:
		a.gateway = paymentgateway.NewClient(paymentgateway.Config{
			BaseURL:        pc.GatewayURL,
			APIKey:         pc.APIKey,
			RequestTimeout: pc.RequestTimeout,
		}, a.logger)
	case internal.PaymentModeSimulated:
		a.simulator = paymentgateway.NewSimulator(paymentgateway.SimulatorConfig{
			Secret:             pc.WebhookSecret,
			WebhookURL:         pc.Simulator.WebhookURL,
			CompletionDelay:    pc.Simulator.CompletionDelay,
			DuplicateDelivery:  pc.Simulator.DuplicateDelivery,
			MaxWorkers:         pc.Simulator.MaxWorkers,
			JobQueueSize:       pc.Simulator.JobQueueSize,
			WorkerPoolSize:     pc.Simulator.WorkerPoolSize,
			WebhookSendTimeout: pc.Simulator.WebhookSendTimeout,
		}, a.logger)
		a.gateway = a.simulator
	}
}

// close releases the database and stops the simulator workers.
func (a *application) close() {
	if a.simulator != nil {
		a.simulator.Shutdown()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("database close error", "error", err)
		}
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
