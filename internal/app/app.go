package app

import (
	"github.com/go-chi/chi/v5"

	"github.com/abarnes/kudos/internal/auth"
	"github.com/abarnes/kudos/internal/handlers"
	"github.com/abarnes/kudos/internal/logger"
	"github.com/abarnes/kudos/internal/repository"
	"github.com/abarnes/kudos/internal/services"
	"github.com/abarnes/kudos/internal/websocket"
)

// App holds all application dependencies
type App struct {
	log      logger.Logger
	handlers *handlers.Handlers
	repo     *repository.Repository
}

// New creates and initializes a new application instance
func New(log logger.Logger, dbPath string, tokens *auth.Manager) (*App, error) {
	repo, err := repository.New(dbPath)
	if err != nil {
		return nil, err
	}

	// Initialize services
	userService := services.NewUserService(log, repo)
	cycleService := services.NewCycleService(log, repo)
	nominationService := services.NewNominationService(log, repo, cycleService)
	approvalService := services.NewApprovalService(log, repo, cycleService)
	rankingService := services.NewRankingService(log, repo, cycleService)

	// Initialize WebSocket hub and wire it into the services
	hub := websocket.New(log)
	hub.Start()
	cycleService.SetBroadcaster(hub)
	nominationService.SetBroadcaster(hub)
	approvalService.SetBroadcaster(hub)
	rankingService.SetBroadcaster(hub)

	h := handlers.New(
		cycleService,
		nominationService,
		approvalService,
		rankingService,
		userService,
		tokens,
		hub,
		log,
	)

	return &App{
		log:      log,
		handlers: h,
		repo:     repo,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close releases app resources
func (a *App) Close() error {
	return a.repo.Close()
}
