package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's role within the organization
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleTeamLead Role = "TEAM_LEAD"
	RoleManager  Role = "MANAGER"
	RoleHR       Role = "HR"
)

// CanSubmit reports whether the role may submit nominations
func (r Role) CanSubmit() bool {
	return r == RoleTeamLead || r == RoleManager || r == RoleHR
}

// CanDecide reports whether the role may approve or reject nominations
func (r Role) CanDecide() bool {
	return r == RoleManager || r == RoleHR
}

// CycleStatus is the lifecycle state of a nomination cycle.
// Transitions are one-way: DRAFT -> OPEN -> CLOSED -> FINALIZED.
type CycleStatus string

const (
	CycleDraft     CycleStatus = "DRAFT"
	CycleOpen      CycleStatus = "OPEN"
	CycleClosed    CycleStatus = "CLOSED"
	CycleFinalized CycleStatus = "FINALIZED"
)

// NominationStatus is the decision state of a nomination
type NominationStatus string

const (
	NominationPending  NominationStatus = "PENDING"
	NominationApproved NominationStatus = "APPROVED"
	NominationRejected NominationStatus = "REJECTED"
)

// ApprovalAction is the action recorded by an approval
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "APPROVE"
	ActionReject  ApprovalAction = "REJECT"
)

// Criterion question types
const (
	CriterionTypeText          = "text"
	CriterionTypeSingleSelect  = "single_select"
	CriterionTypeMultiSelect   = "multi_select"
	CriterionTypeTextWithImage = "text_with_image"
)

// Team represents an organizational team
type Team struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// User represents an employee account
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	TeamID       *uuid.UUID `json:"team_id,omitempty"`
}

// Cycle represents a time-boxed nomination round
type Cycle struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	StartAt   time.Time   `json:"start_at"`
	EndAt     time.Time   `json:"end_at"`
	Status    CycleStatus `json:"status"`
	CreatedBy uuid.UUID   `json:"created_by"`
}

// CriterionConfig describes the question type and its type-specific fields.
// Options is only meaningful for the select types; ImageRequired only for
// text_with_image.
type CriterionConfig struct {
	Type          string   `json:"type"`
	Options       []string `json:"options,omitempty"`
	Required      bool     `json:"required"`
	ImageRequired bool     `json:"image_required,omitempty"`
}

// Criterion represents one weighted, typed question within a cycle
type Criterion struct {
	ID          uuid.UUID        `json:"id"`
	CycleID     uuid.UUID        `json:"cycle_id"`
	Name        string           `json:"name"`
	Weight      float64          `json:"weight"`
	Description string           `json:"description,omitempty"`
	Active      bool             `json:"active"`
	Config      *CriterionConfig `json:"config,omitempty"`
}

// Answer holds a structured answer to a criterion question. Which fields are
// populated depends on the criterion's configured type:
//
//	text:            {Text}
//	single_select:   {Selected}
//	multi_select:    {SelectedList}
//	text_with_image: {Text, ImageURL}
type Answer struct {
	Text         string   `json:"text,omitempty"`
	Selected     string   `json:"selected,omitempty"`
	SelectedList []string `json:"selected_list,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
}

// CriterionScore is one nomination's answer to one criterion. Either the
// legacy numeric Score or a structured Answer is set; both may be present
// for backward compatibility, in which case Score wins.
type CriterionScore struct {
	ID           uuid.UUID `json:"id"`
	NominationID uuid.UUID `json:"nomination_id"`
	CriterionID  uuid.UUID `json:"criterion_id"`
	Score        *int      `json:"score,omitempty"`
	Answer       *Answer   `json:"answer,omitempty"`
	Comment      string    `json:"comment,omitempty"`
}

// Nomination represents one nominee's submitted answer set for a cycle
type Nomination struct {
	ID          uuid.UUID        `json:"id"`
	CycleID     uuid.UUID        `json:"cycle_id"`
	NomineeID   uuid.UUID        `json:"nominee_id"`
	TeamID      *uuid.UUID       `json:"team_id,omitempty"`
	SubmittedBy uuid.UUID        `json:"submitted_by"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Status      NominationStatus `json:"status"`
	Scores      []CriterionScore `json:"scores,omitempty"`
}

// Approval is an append-only decision record against a nomination
type Approval struct {
	ID           uuid.UUID      `json:"id"`
	NominationID uuid.UUID      `json:"nomination_id"`
	ActorID      uuid.UUID      `json:"actor_id"`
	Action       ApprovalAction `json:"action"`
	Reason       string         `json:"reason,omitempty"`
	Rating       *float64       `json:"rating,omitempty"`
	ActedAt      time.Time      `json:"acted_at"`
}

// CriterionReview is an optional per-criterion rating attached to an approval
type CriterionReview struct {
	CriterionID uuid.UUID `json:"criterion_id"`
	Rating      float64   `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
}

// Ranking is one computed entry of a cycle's ranking. Rankings are
// recomputable: each compute replaces all prior entries for the scope.
type Ranking struct {
	ID         uuid.UUID  `json:"id"`
	CycleID    uuid.UUID  `json:"cycle_id"`
	TeamID     *uuid.UUID `json:"team_id,omitempty"`
	NomineeID  uuid.UUID  `json:"nominee_id"`
	TotalScore float64    `json:"total_score"`
	Rank       int        `json:"rank"`
	ComputedAt time.Time  `json:"computed_at"`
}

// NominationSnapshot is an immutable copy of a nomination taken at
// finalization time
type NominationSnapshot struct {
	ID           uuid.UUID        `json:"id"`
	NominationID uuid.UUID        `json:"nomination_id"`
	CycleID      uuid.UUID        `json:"cycle_id"`
	NomineeID    uuid.UUID        `json:"nominee_id"`
	TeamID       *uuid.UUID       `json:"team_id,omitempty"`
	SubmittedBy  uuid.UUID        `json:"submitted_by"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	Status       NominationStatus `json:"status"`
	Scores       []CriterionScore `json:"scores,omitempty"`
	SnapshotAt   time.Time        `json:"snapshot_at"`
}

// RankingSnapshot is an immutable copy of a ranking entry taken at
// finalization time
type RankingSnapshot struct {
	ID         uuid.UUID  `json:"id"`
	RankingID  uuid.UUID  `json:"ranking_id"`
	CycleID    uuid.UUID  `json:"cycle_id"`
	TeamID     *uuid.UUID `json:"team_id,omitempty"`
	NomineeID  uuid.UUID  `json:"nominee_id"`
	TotalScore float64    `json:"total_score"`
	Rank       int        `json:"rank"`
	ComputedAt time.Time  `json:"computed_at"`
	SnapshotAt time.Time  `json:"snapshot_at"`
}

// WSMessage represents a WebSocket event message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
