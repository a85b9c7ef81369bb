package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/film-payments/internal"
	"github.com/frahmantamala/film-payments/internal/core/events"
	"github.com/frahmantamala/film-payments/internal/countries"
	"github.com/frahmantamala/film-payments/internal/currency"
	"github.com/frahmantamala/film-payments/internal/payment"
	"github.com/frahmantamala/film-payments/internal/paypalgateway"
	"github.com/frahmantamala/film-payments/internal/purchases"
	purchasespostgres "github.com/frahmantamala/film-payments/internal/purchases/postgres"
	"github.com/frahmantamala/film-payments/internal/stripegateway"
	"github.com/frahmantamala/film-payments/internal/transport/middleware"
	"github.com/frahmantamala/film-payments/internal/transport/rest"
	"github.com/frahmantamala/film-payments/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config           *internal.Config
	DB               *sqlx.DB
	Router           *chi.Mux
	CountriesHandler *countries.Handler
	CurrencyHandler  *currency.Handler
	PaymentHandler   *payment.Handler
	Logger           *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	deps.Router.Use(middleware.RequestID)
	deps.Router.Use(middleware.LoggingMiddleware(deps.Logger))
	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.CountriesHandler, deps.CurrencyHandler, deps.PaymentHandler, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	eventBus := events.NewEventBus(log)

	purchaseRepo := purchasespostgres.NewPurchaseRepository(gormDB)
	purchaseService := purchases.NewService(purchaseRepo, eventBus, log)

	rateService := currency.NewRateService(config.ExchangeRates.APIURL, config.ExchangeRates.CacheTTL, log)
	countriesService := countries.NewService(config.Countries.APIURL, config.Countries.CacheTTL, log)

	stripeClient := stripegateway.NewClient(config.Stripe.SecretKey, log)
	paypalClient := paypalgateway.NewClient(paypalgateway.Config{
		BaseURL:      config.PayPal.BaseURL,
		ClientID:     config.PayPal.ClientID,
		ClientSecret: config.PayPal.ClientSecret,
	}, log)

	stripeConfigured := config.Stripe.StripeConfigured()
	paymentService := payment.NewService(stripeClient, purchaseService, rateService, eventBus, stripeConfigured, log)
	applePayService := payment.NewApplePayService(stripeClient, purchaseService, config.ApplePay, config.Server.BaseURL, stripeConfigured, log)
	paypalService := payment.NewPayPalService(paypalClient, config.Server.BaseURL, log)

	return &Dependencies{
		Config:           config,
		Logger:           log,
		DB:               db,
		Router:           chi.NewRouter(),
		CountriesHandler: countries.NewHandler(countriesService, log),
		CurrencyHandler:  currency.NewHandler(rateService, log),
		PaymentHandler:   payment.NewHandler(paymentService, applePayService, paypalService, log),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
