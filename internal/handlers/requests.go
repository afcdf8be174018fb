package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/models"
)

// RegisterRequest is the payload for creating a user account
type RegisterRequest struct {
	Name     string     `json:"name" validate:"required"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=8"`
	Role     string     `json:"role" validate:"required,oneof=EMPLOYEE TEAM_LEAD MANAGER HR"`
	TeamID   *uuid.UUID `json:"team_id,omitempty"`
}

// LoginRequest is the payload for authenticating
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateTeamRequest is the payload for creating a team
type CreateTeamRequest struct {
	Name string `json:"name" validate:"required"`
}

// CycleRequest is the payload for creating or editing a cycle
type CycleRequest struct {
	Name    string    `json:"name" validate:"required"`
	StartAt time.Time `json:"start_at" validate:"required"`
	EndAt   time.Time `json:"end_at" validate:"required"`
}

// CriterionRequest is one criterion definition
type CriterionRequest struct {
	Name        string                  `json:"name" validate:"required"`
	Weight      float64                 `json:"weight" validate:"gte=0,lte=1"`
	Description string                  `json:"description"`
	Config      *models.CriterionConfig `json:"config" validate:"required"`
}

// AddCriteriaRequest is the payload for adding criteria to a cycle
type AddCriteriaRequest struct {
	Criteria []CriterionRequest `json:"criteria" validate:"required,min=1,dive"`
}

// AnswerRequest is one answer keyed to a criterion
type AnswerRequest struct {
	CriterionID uuid.UUID      `json:"criterion_id" validate:"required"`
	Score       *int           `json:"score,omitempty"`
	Answer      *models.Answer `json:"answer,omitempty"`
	Comment     string         `json:"comment,omitempty"`
}

// SubmitNominationRequest is the payload for submitting a nomination
type SubmitNominationRequest struct {
	CycleID   uuid.UUID       `json:"cycle_id" validate:"required"`
	NomineeID uuid.UUID       `json:"nominee_id" validate:"required"`
	TeamID    *uuid.UUID      `json:"team_id,omitempty"`
	Answers   []AnswerRequest `json:"answers" validate:"required,min=1,dive"`
}

// ReviewRequest is one per-criterion rating attached to a decision
type ReviewRequest struct {
	CriterionID uuid.UUID `json:"criterion_id" validate:"required"`
	Rating      float64   `json:"rating" validate:"gte=0,lte=10"`
	Comment     string    `json:"comment,omitempty"`
}

// DecisionRequest is the payload for approving or rejecting a nomination
type DecisionRequest struct {
	Action  string          `json:"action" validate:"required,oneof=APPROVE REJECT"`
	Reason  string          `json:"reason,omitempty"`
	Rating  *float64        `json:"rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Reviews []ReviewRequest `json:"reviews,omitempty" validate:"omitempty,dive"`
}
