// Package app wires the configuration, logging, cluster client, connection
// registry and saved-query store into one application instance.
package app

import (
	"context"
	"fmt"
	"sync"

	"mongoquery/internal/config"
	"mongoquery/internal/connection"
	"mongoquery/internal/kube"
	"mongoquery/internal/logging"
	"mongoquery/internal/savedquery"
	"mongoquery/internal/service"
)

// Application represents the main application instance that holds
// configuration and dependencies
type Application struct {
	cfg      *config.Config
	logger   logging.Logger
	registry *connection.Registry
	store    *savedquery.Store
	service  *service.Service
	directs  []*connection.DirectConnection
	mutex    sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config, logger logging.Logger) *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Config returns the application configuration
func (app *Application) Config() *config.Config {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.cfg
}

// Logger returns the application logger
func (app *Application) Logger() logging.Logger {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.logger
}

// Context returns the application context
func (app *Application) Context() context.Context {
	return app.ctx
}

// Service returns the query service instance. Valid after Start.
func (app *Application) Service() *service.Service {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.service
}

// Start resolves the cluster client if needed, builds the connection
// registry and the saved-query store, and creates the query service.
// Configuration problems here are fatal by design.
func (app *Application) Start() error {
	app.logger.Info("Starting application...")

	registry := connection.NewRegistry()

	// The cluster client is only needed when cluster connections exist, so
	// a kubeconfig-less host can still serve direct connections.
	if len(app.cfg.Clusters) > 0 {
		kubeClient, err := kube.NewClient(app.cfg.KubeconfigPath, app.logger.WithField("component", "kube"))
		if err != nil {
			return fmt.Errorf("failed to initialize cluster client: %w", err)
		}
		for _, clusterCfg := range app.cfg.Clusters {
			registry.Register(connection.NewClusterConnection(
				clusterCfg, kubeClient, app.logger.WithField("connection", clusterCfg.Namespace)))
			app.logger.Infow("Registered cluster connection",
				"namespace", clusterCfg.Namespace, "deployment", clusterCfg.Deployment, "database", clusterCfg.Database)
		}
	}

	for _, directCfg := range app.cfg.Connections {
		direct := connection.NewDirectConnection(
			directCfg, app.logger.WithField("connection", directCfg.Name))
		registry.Register(direct)
		app.directs = append(app.directs, direct)
		app.logger.Infow("Registered direct connection",
			"name", directCfg.Name, "database", directCfg.Database)
	}

	app.cfg.WarnMissingDocumentation(app.logger)

	dataDir, err := app.cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	app.logger.Infof("Saved queries stored in %s", dataDir)

	app.mutex.Lock()
	app.registry = registry
	app.store = savedquery.NewStore(dataDir)
	app.service = service.New(registry, app.store, app.logger.WithField("component", "service"))
	app.mutex.Unlock()

	app.logger.Infof("Application started with %d connection(s)", len(registry.ListNames()))
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("Shutting down application...")

	for _, direct := range app.directs {
		if err := direct.Close(app.ctx); err != nil {
			app.logger.Errorw("Error disconnecting direct connection", "connection", direct.Name(), "error", err)
		}
	}

	app.cancel()
	app.logger.Info("Application shutdown complete")
	return nil
}
