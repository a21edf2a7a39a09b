package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/draco-cheng/backend-go/internal/config"
	"github.com/draco-cheng/backend-go/internal/di"
	"github.com/draco-cheng/backend-go/internal/logger"
	"github.com/draco-cheng/backend-go/internal/services"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	container    *dig.Container
	docService   *services.DocumentService
	ragService   *services.RAGService
	metrics      *services.MetricsService
	cleanupTasks []func() error
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// SetGlobalApp sets the global app instance
func SetGlobalApp(app *App) {
	globalApp = app
}

// Container returns the dependency injection container
func (a *App) Container() *dig.Container {
	return a.container
}

// DocumentService returns the document ingestion service
func (a *App) DocumentService() *services.DocumentService {
	return a.docService
}

// RAGService returns the chat service
func (a *App) RAGService() *services.RAGService {
	return a.ragService
}

// Metrics returns the metrics service
func (a *App) Metrics() *services.MetricsService {
	return a.metrics
}

// Init bootstraps configuration, logger and shared infrastructure components
// required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	container, err := di.BuildContainer()
	if err != nil {
		return nil, err
	}

	app := &App{container: container}

	// Resolve the service graph once; controllers read it through GetApp.
	err = container.Invoke(func(
		docService *services.DocumentService,
		ragService *services.RAGService,
		metrics *services.MetricsService,
		cache *services.EmbeddingCache,
	) {
		app.docService = docService
		app.ragService = ragService
		app.metrics = metrics
		if cache != nil {
			app.cleanupTasks = append(app.cleanupTasks, cache.Close)
		}
	})
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	// Flush logger buffers.
	logger.Sync()
}
