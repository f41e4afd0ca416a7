package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mongoquery/internal/api"
	"mongoquery/internal/app"
	"mongoquery/internal/config"
	"mongoquery/internal/logging"
	"mongoquery/internal/utils"
)

const version = "1.0.0"

func main() {
	// Load .env file for local development (ignored in production)
	loadEnvFile()

	cfg := loadConfig()

	logger := initLoggerSettings(cfg)
	defer logger.Close()

	// Create application instance
	application := app.NewApplication(cfg, logger)

	// Start the application: cluster client, registry, saved-query store
	if err := application.Start(); err != nil {
		logger.Fatalf("Failed to start application: %v", err)
	}

	// Initialize handlers and setup HTTP mux
	mux := setupRouter(logger, application)

	// Start server
	startServer(mux, cfg, application)
}

func setupRouter(logger logging.Logger, application *app.Application) *http.ServeMux {
	handler := api.NewHandler(logger.WithField("component", "api"), application.Service(), version)
	mux := http.NewServeMux()

	handler.SetupRoutes(mux)

	return mux
}

func startServer(mux *http.ServeMux, cfg *config.Config, application *app.Application) {
	logger := application.Logger()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Starting http server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down application ...")

	// Give outstanding requests a 10-second deadline to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	if err := application.Shutdown(); err != nil {
		logger.Errorf("Application shutdown error: %v", err)
	}

	logger.Info("Server exited")
}

// loadConfig resolves the config file path and loads it. On the first run a
// commented example config is written and the process exits so the operator
// can fill it in.
func loadConfig() *config.Config {
	configPath := utils.GetEnv("CONFIG_PATH", "")
	if configPath == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			log.Fatalf("Failed to resolve config path: %v", err)
		}
		configPath = defaultPath
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.CreateExampleConfig(configPath); err != nil {
			log.Fatalf("Failed to create example config: %v", err)
		}
		log.Fatalf("Created example config at %s - edit this file and restart", configPath)
	}

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func initLoggerSettings(cfg *config.Config) logging.Logger {
	loggerConfig := cfg.Logging.ConvertToLoggerConfig()

	logger, err := logging.NewLogger(&loggerConfig)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

// loadEnvFile loads a .env file for local development. In production the
// environment is set directly.
func loadEnvFile() {
	envPaths := []string{
		".env",
		"../.env",
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err == nil {
				log.Printf("Loaded environment from: %s", envPath)
				return
			}
		}
	}
}
