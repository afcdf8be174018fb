package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abarnes/kudos/internal/auth"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(h.Auth.Middleware)

	// WebSocket event feed
	r.Get("/ws", h.Hub.ServeWs)

	// Auth (public)
	r.Post("/api/auth/register", h.handleRegister)
	r.Post("/api/auth/login", h.handleLogin)

	// Everything else requires a valid token
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		// Users and teams
		r.Get("/api/users", h.handleListUsers)
		r.Get("/api/teams", h.handleListTeams)
		r.Post("/api/teams", h.handleCreateTeam)

		// Cycles
		r.Get("/api/cycles", h.handleListCycles)
		r.Post("/api/cycles", h.handleCreateCycle)
		r.Get("/api/cycles/{cycleID}", h.handleGetCycle)
		r.Put("/api/cycles/{cycleID}", h.handleUpdateCycle)
		r.Delete("/api/cycles/{cycleID}", h.handleDeleteCycle)
		r.Post("/api/cycles/{cycleID}/open", h.handleOpenCycle)
		r.Post("/api/cycles/{cycleID}/close", h.handleCloseCycle)

		// Criteria
		r.Get("/api/cycles/{cycleID}/criteria", h.handleListCriteria)
		r.Post("/api/cycles/{cycleID}/criteria", h.handleAddCriteria)
		r.Put("/api/criteria/{criterionID}", h.handleUpdateCriterion)
		r.Delete("/api/criteria/{criterionID}", h.handleDeleteCriterion)

		// Nominations
		r.Get("/api/nominations", h.handleListNominations)
		r.Post("/api/nominations", h.handleSubmitNomination)
		r.Get("/api/nominations/{nominationID}", h.handleGetNomination)
		r.Post("/api/nominations/{nominationID}/decision", h.handleDecide)
		r.Get("/api/nominations/{nominationID}/approvals", h.handleListApprovals)

		// Rankings and finalization
		r.Post("/api/cycles/{cycleID}/rankings/compute", h.handleComputeRankings)
		r.Get("/api/cycles/{cycleID}/rankings", h.handleListRankings)
		r.Post("/api/cycles/{cycleID}/finalize", h.handleFinalize)
		r.Get("/api/cycles/{cycleID}/history", h.handleGetHistory)
	})

	return r
}
