package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/cordwell/shopapi/internal/api"
	"github.com/cordwell/shopapi/internal/auth"
	"github.com/cordwell/shopapi/internal/config"
	"github.com/cordwell/shopapi/internal/db"
	"github.com/cordwell/shopapi/internal/db/repository"
)

var (
	// Version information (set via ldflags)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "/etc/shopapi/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("shopapi\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Commit:     %s\n", Commit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	log := logrus.New()
	log.Infof("Starting shopapi %s (commit: %s)", Version, Commit)

	// Load configuration
	log.Infof("Loading configuration from %s", *configPath)
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	configureLogger(log, cfg)

	// Initialize database
	log.Infof("Connecting to database: %s", cfg.Database.Path)
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(database.DB)
	categoryRepo := repository.NewCategoryRepository(database.DB)
	productRepo := repository.NewProductRepository(database.DB)
	orderRepo := repository.NewOrderRepository(database.DB)
	auditRepo := repository.NewAuditRepository(database.DB)

	// Initialize auth services. The signing secret is fixed for the process
	// lifetime; rotation requires a restart.
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.GetTokenTTL())
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}
	totpEngine := auth.NewTOTPEngine(cfg.Auth.TOTPIssuer, userRepo)

	// Create HTTP server
	server := api.NewServer(
		cfg,
		log,
		tokens,
		totpEngine,
		userRepo,
		categoryRepo,
		productRepo,
		orderRepo,
		auditRepo,
	)

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Infof("Starting HTTP server on %s", cfg.Server.ListenAddr)
		if err := server.Run(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Info("Shutting down server...")

	database.Close()

	log.Info("Server stopped")
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
