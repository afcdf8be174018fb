package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/abarnes/kudos/internal/auth"
	"github.com/abarnes/kudos/internal/logger"
	"github.com/abarnes/kudos/internal/models"
	"github.com/abarnes/kudos/internal/services"
	"github.com/abarnes/kudos/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Cycles      services.CycleServicer
	Nominations services.NominationServicer
	Approvals   services.ApprovalServicer
	Rankings    services.RankingServicer
	Users       services.UserServicer
	Auth        *auth.Manager
	Hub         *websocket.Hub
	Log         logger.Logger
	validate    *validator.Validate
}

// New creates a new Handlers instance with all dependencies
func New(
	cycles services.CycleServicer,
	nominations services.NominationServicer,
	approvals services.ApprovalServicer,
	rankings services.RankingServicer,
	users services.UserServicer,
	tokens *auth.Manager,
	hub *websocket.Hub,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Cycles:      cycles,
		Nominations: nominations,
		Approvals:   approvals,
		Rankings:    rankings,
		Users:       users,
		Auth:        tokens,
		Hub:         hub,
		Log:         log,
		validate:    validator.New(),
	}
}

// decodeValid decodes the request body and runs struct validation on it
func (h *Handlers) decodeValid(r *http.Request, target interface{}) error {
	if err := decodeJSON(r, target); err != nil {
		return err
	}
	if err := h.validate.Struct(target); err != nil {
		return BadRequest("Validation failed: " + err.Error())
	}
	return nil
}

// actor resolves the authenticated caller to a fresh user record so role
// changes take effect without waiting for token expiry
func (h *Handlers) actor(r *http.Request) (*models.User, error) {
	id, _, ok := auth.ActorFromContext(r.Context())
	if !ok {
		return nil, Unauthorized("Authentication required")
	}
	user, err := h.Users.GetUser(r.Context(), id)
	if err != nil {
		return nil, Unauthorized("Unknown user")
	}
	return user, nil
}
