package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kpcrmv4/dentalos-sub000/internal/config"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/allocation"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/casefile"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/catalog"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/inventory"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/reservation"
	"github.com/kpcrmv4/dentalos-sub000/internal/platform/auth"
	"github.com/kpcrmv4/dentalos-sub000/internal/platform/db"
	"github.com/kpcrmv4/dentalos-sub000/internal/platform/evidence"
	"github.com/kpcrmv4/dentalos-sub000/internal/platform/middleware"
	"github.com/kpcrmv4/dentalos-sub000/internal/platform/notify"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Dental clinic stock reservation API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the stock reservation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a backup or write a compensating migration instead.")
			return nil
		},
	})

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage clinic tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating tenant schema: tenant_%s\n", name)
			if err := db.CreateTenantSchema(ctx, pool, name, "./migrations"); err != nil {
				return err
			}
			fmt.Println("Tenant created and migrated successfully.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.BodyLimit("1M", "50M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))

	// Auth middleware
	switch cfg.ResolvedAuthMode() {
	case "development":
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	default:
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.AuthSkipper,
		}))
	}

	// Tenant middleware
	e.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// API group
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RequestTimeout(30 * time.Second))
	apiV1.Use(middleware.ETagMiddleware(middleware.DefaultCacheConfig()))

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// -- Register Domain Handlers --

	// Catalog domain
	productRepo := catalog.NewProductRepoPG(pool)
	catalogSvc := catalog.NewService(productRepo)
	catalogHandler := catalog.NewHandler(catalogSvc)
	catalogHandler.RegisterRoutes(apiV1)

	// Case file domain
	caseRepo := casefile.NewCaseRepoPG(pool)
	needRepo := casefile.NewNeedRepoPG(pool)
	caseSvc := casefile.NewService(caseRepo, needRepo)
	caseHandler := casefile.NewHandler(caseSvc)
	caseHandler.RegisterRoutes(apiV1)

	// Inventory domain
	lotRepo := inventory.NewLotRepoPG(pool)
	invSvc := inventory.NewService(lotRepo, productRepo)
	selector := inventory.NewSelector(lotRepo)
	invHandler := inventory.NewHandler(invSvc, selector)
	invHandler.RegisterRoutes(apiV1)

	// Reservation domain
	resRepo := reservation.NewReservationRepoPG(pool)
	usageRepo := reservation.NewUsageRepoPG(pool)
	resSvc := reservation.NewService(resRepo, usageRepo)
	resHandler := reservation.NewHandler(resSvc)
	resHandler.RegisterRoutes(apiV1)

	// Conflict notifier — webhook delivery when configured, in-memory otherwise
	var sink notify.Sink
	if cfg.WebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.WebhookURL, logger)
		logger.Info().Str("url", cfg.WebhookURL).Msg("webhook notifications enabled")
	} else {
		sink = notify.NewMemorySink()
		logger.Warn().Msg("WEBHOOK_URL not set; conflict events are kept in memory only")
	}

	// Allocation engine — readiness evaluator plus the atomic coordinator
	evaluator := allocation.NewEvaluator(needRepo, resRepo, usageRepo, selector)
	evaluator.StrictShortage = cfg.StrictShortage

	coordinator := allocation.NewCoordinator(allocation.Deps{
		Locker:       inventory.NewLotLocker(),
		Ledger:       inventory.NewLedger(lotRepo),
		Selector:     selector,
		Lots:         lotRepo,
		Reservations: resRepo,
		Usages:       usageRepo,
		Cases:        caseRepo,
		Evaluator:    evaluator,
		Sink:         sink,
		Tx:           db.NewRunner(pool),
		Logger:       logger,
	})
	allocHandler := allocation.NewHandler(coordinator, logger)
	allocHandler.RegisterRoutes(apiV1)

	// Evidence store for usage records
	evidenceStore := evidence.NewMemoryStore()
	evidenceHandler := evidence.NewHandler(evidenceStore)
	evidenceHandler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
