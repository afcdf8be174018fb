package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abarnes/kudos/internal/errors"
	"github.com/abarnes/kudos/internal/logger"
	"github.com/abarnes/kudos/internal/models"
	"github.com/abarnes/kudos/internal/repository"
)

// UserService manages user accounts and teams
type UserService struct {
	log  logger.Logger
	repo repository.UserRepository
}

// NewUserService creates a new UserService
func NewUserService(log logger.Logger, repo repository.UserRepository) *UserService {
	return &UserService{log: log, repo: repo}
}

// UserSpec carries the caller-supplied fields for creating a user
type UserSpec struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     string     `json:"role"`
	TeamID   *uuid.UUID `json:"team_id,omitempty"`
}

// CreateUser registers a new user with a bcrypt-hashed password
func (s *UserService) CreateUser(ctx context.Context, spec UserSpec) (*models.User, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.InvalidInput("user name is required")
	}
	if strings.TrimSpace(spec.Email) == "" {
		return nil, errors.InvalidInput("email is required")
	}
	if len(spec.Password) < 8 {
		return nil, errors.InvalidInput("password must be at least 8 characters")
	}
	role := models.Role(spec.Role)
	switch role {
	case models.RoleEmployee, models.RoleTeamLead, models.RoleManager, models.RoleHR:
	default:
		return nil, errors.InvalidInputf("unknown role %q", spec.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(spec.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal(err)
	}

	user := models.User{
		ID:           uuid.New(),
		Name:         spec.Name,
		Email:        strings.ToLower(spec.Email),
		PasswordHash: string(hash),
		Role:         role,
		TeamID:       spec.TeamID,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Duplicate("a user with this email already exists")
		}
		return nil, errors.Storage("failed to create user", err)
	}

	s.log.Info("user created", "user_id", user.ID, "role", user.Role)
	return &user, nil
}

// Authenticate verifies credentials and returns the matching user
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.PermissionDenied("invalid credentials")
		}
		return nil, errors.Storage("failed to get user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.PermissionDenied("invalid credentials")
	}
	return user, nil
}

// GetUser returns a user by ID
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("user not found")
		}
		return nil, errors.Storage("failed to get user", err)
	}
	return user, nil
}

// ListUsers returns all users
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, errors.Storage("failed to list users", err)
	}
	return users, nil
}

// CreateTeam creates a new team
func (s *UserService) CreateTeam(ctx context.Context, name string) (*models.Team, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.InvalidInput("team name is required")
	}
	team := models.Team{ID: uuid.New(), Name: name}
	if err := s.repo.CreateTeam(ctx, team); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Duplicate("a team with this name already exists")
		}
		return nil, errors.Storage("failed to create team", err)
	}
	return &team, nil
}

// ListTeams returns all teams
func (s *UserService) ListTeams(ctx context.Context) ([]models.Team, error) {
	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		return nil, errors.Storage("failed to list teams", err)
	}
	return teams, nil
}
