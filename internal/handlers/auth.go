package handlers

import (
	"net/http"

	"github.com/abarnes/kudos/internal/services"
)

// handleRegister creates a new user account
func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.Users.CreateUser(r.Context(), services.UserSpec{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		TeamID:   req.TeamID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, user)
}

// handleLogin verifies credentials and issues a bearer token
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, Unauthorized("Invalid credentials"))
		return
	}
	token, err := h.Auth.SignToken(*user)
	if err != nil {
		respondError(w, InternalError(err))
		return
	}
	respondOK(w, TokenResponse{Token: token, User: *user})
}

// handleListUsers returns all users
func (h *Handlers) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListUsers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, users)
}

// handleCreateTeam creates a team
func (h *Handlers) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, err)
		return
	}
	team, err := h.Users.CreateTeam(r.Context(), req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, team)
}

// handleListTeams returns all teams
func (h *Handlers) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Users.ListTeams(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, teams)
}
