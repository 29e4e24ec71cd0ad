package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthtrack/healthtrack/internal/config"
	"github.com/healthtrack/healthtrack/internal/domain/catalog"
	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
	"github.com/healthtrack/healthtrack/internal/domain/evaluation"
	"github.com/healthtrack/healthtrack/internal/domain/immunization"
	"github.com/healthtrack/healthtrack/internal/domain/surgery"
	"github.com/healthtrack/healthtrack/internal/platform/auth"
	"github.com/healthtrack/healthtrack/internal/platform/db"
	"github.com/healthtrack/healthtrack/internal/platform/metrics"
	"github.com/healthtrack/healthtrack/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "healthtrack-server",
		Short:         "Vaccine and procedure eligibility service",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(evaluateCmd())
	root.AddCommand(riskCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	lvl, err := cfg.Level()
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

// engine is the loaded reference data plus one evaluator per catalog kind.
type engine struct {
	vaccines      *catalog.Reference
	procedures    *catalog.Reference
	vaccineEval   *eligibility.Evaluator
	procedureEval *eligibility.Evaluator
}

func newEngine(cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) (*engine, error) {
	loader := catalog.NewLoader(logger, m)
	vaccines, err := loader.Resolve(cfg.CatalogDir, catalog.KindVaccine)
	if err != nil {
		return nil, err
	}
	procedures, err := loader.Resolve(cfg.CatalogDir, catalog.KindProcedure)
	if err != nil {
		return nil, err
	}

	opts := cfg.EligibilityOptions()
	evaluator := func(kind string) *eligibility.Evaluator {
		return eligibility.NewEvaluator(opts,
			eligibility.WithKind(kind),
			eligibility.WithLogger(logger),
			eligibility.WithMetrics(m))
	}
	return &engine{
		vaccines:      vaccines,
		procedures:    procedures,
		vaccineEval:   evaluator(catalog.KindVaccine),
		procedureEval: evaluator(catalog.KindProcedure),
	}, nil
}

func (eng *engine) evaluationService() *evaluation.Service {
	return evaluation.NewService(eng.vaccines, eng.procedures, eng.vaccineEval, eng.procedureEval)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.ValidateServer(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		logger.Warn().Msg("development auth is active: every request is treated as admin and Authorization headers are ignored; do not use in production")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	eng, err := newEngine(cfg, logger, m)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load catalogs")
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := newServer(cfg, logger, pool, eng, m)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// auditRecorder counts audited writes alongside the audit log line.
func auditRecorder(m *metrics.Metrics) middleware.AuditRecorder {
	return middleware.AuditRecorderFunc(func(entry middleware.AuditEntry) error {
		m.RecordAudit(entry.Resource, entry.Action, entry.StatusCode)
		return nil
	})
}

// newServer wires middleware and routes. A nil pool leaves /health/db
// unregistered; the stored-record routes still need one to serve requests.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, eng *engine, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(m.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))

	// Auth middleware
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	// Public endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RequestTimeout(30 * time.Second))
	apiV1.Use(middleware.Audit(logger, auditRecorder(m)))

	catalog.NewHandler(eng.vaccines, eng.procedures).RegisterRoutes(apiV1)
	evaluation.NewHandler(eng.evaluationService()).RegisterRoutes(apiV1)

	immunizationSvc := immunization.NewService(
		immunization.NewChildRepoPG(pool),
		immunization.NewDoseRepoPG(pool),
		eng.vaccines, eng.vaccineEval)
	immunization.NewHandler(immunizationSvc).RegisterRoutes(apiV1)

	surgerySvc := surgery.NewService(
		surgery.NewPatientRepoPG(pool),
		surgery.NewProcedureRecordRepoPG(pool),
		eng.procedures, eng.procedureEval)
	surgery.NewHandler(surgerySvc).RegisterRoutes(apiV1)

	return e
}
