package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nurpe/haulops/internal/auth"
	"github.com/nurpe/haulops/internal/config"
	"github.com/nurpe/haulops/internal/csvexport"
	"github.com/nurpe/haulops/internal/db"
	"github.com/nurpe/haulops/internal/excel"
	httphandler "github.com/nurpe/haulops/internal/http"
	"github.com/nurpe/haulops/internal/http/middleware"
	"github.com/nurpe/haulops/internal/logger"
	"github.com/nurpe/haulops/internal/metrics"
	"github.com/nurpe/haulops/internal/pdf"
	"github.com/nurpe/haulops/internal/repository"
	"github.com/nurpe/haulops/internal/service"
	"github.com/nurpe/haulops/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.Log.Level, cfg.Log.File)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init storage")
	}

	companyRepo := repository.NewCompanyRepository(database)
	userRepo := repository.NewUserRepository(database)
	subRepo := repository.NewSubcontractorRepository(database)
	driverRepo := repository.NewDriverRepository(database)
	vehicleRepo := repository.NewVehicleRepository(database)
	operationRepo := repository.NewOperationRepository(database)
	invoiceRepo := repository.NewInvoiceRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)

	var appMetrics *metrics.Metrics
	var billingMetrics service.BillingMetrics = noopMetrics{}
	if cfg.HTTP.MetricsEnabled {
		appMetrics = metrics.New()
		billingMetrics = appMetrics
	}

	services := httphandler.Services{
		Auth: service.NewAuthService(companyRepo, userRepo,
			auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL), cfg, log),
		Companies:      service.NewCompanyService(companyRepo, operationRepo, log),
		Users:          service.NewUserService(userRepo, driverRepo, operationRepo, files),
		Subcontractors: service.NewSubcontractorService(subRepo, companyRepo, driverRepo, vehicleRepo, operationRepo),
		Fleet:          service.NewFleetService(companyRepo, subRepo, userRepo, driverRepo, vehicleRepo, operationRepo),
		Operations: service.NewOperationService(companyRepo, subRepo, driverRepo, vehicleRepo, operationRepo,
			files, csvexport.NewWriter(), excel.NewGenerator(), cfg, log),
		Billing: service.NewBillingService(companyRepo, subRepo, operationRepo, invoiceRepo, paymentRepo,
			pdf.NewGenerator(), billingMetrics, cfg, log),
		Finance: service.NewFinanceService(operationRepo, invoiceRepo, paymentRepo, driverRepo),
	}

	opts := httphandler.RouterOptions{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Metrics:        appMetrics,
		Health:         func(ctx context.Context) error { return db.Ping(ctx, database) },
		Log:            log,
	}
	if local, ok := files.(*storage.Local); ok {
		opts.FilesDir = local.Root()
		opts.FilesURL = cfg.Storage.PublicURL
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret, cfg.Auth.Issuer)
	handler := httphandler.NewHandler(services, cfg.Storage.MaxUploadBytes, log)
	router := httphandler.NewRouter(handler, middleware.Auth(tokenParser), opts)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Str("storage", cfg.Storage.Driver).Msg("starting haulops")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

type noopMetrics struct{}

func (noopMetrics) InvoiceGenerated() {}
func (noopMetrics) PaymentGenerated() {}
