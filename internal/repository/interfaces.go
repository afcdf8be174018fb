package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/models"
)

// CycleRepository defines cycle data operations
type CycleRepository interface {
	CreateCycle(ctx context.Context, cycle models.Cycle) error
	GetCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error)
	ListCycles(ctx context.Context) ([]models.Cycle, error)
	UpdateCycle(ctx context.Context, id uuid.UUID, name string, startAt, endAt time.Time) error
	// UpdateCycleStatus transitions a cycle's status only if it is currently
	// in the expected state; returns ErrStaleState otherwise.
	UpdateCycleStatus(ctx context.Context, id uuid.UUID, from, to models.CycleStatus) error
	DeleteCycle(ctx context.Context, id uuid.UUID) error
	CountNominationsForCycle(ctx context.Context, cycleID uuid.UUID) (int, error)
}

// CriterionRepository defines criterion data operations
type CriterionRepository interface {
	AddCriteria(ctx context.Context, criteria []models.Criterion) error
	GetCriterion(ctx context.Context, id uuid.UUID) (*models.Criterion, error)
	ListCriteria(ctx context.Context, cycleID uuid.UUID, activeOnly bool) ([]models.Criterion, error)
	UpdateCriterion(ctx context.Context, crit models.Criterion) error
	DeleteCriterion(ctx context.Context, id uuid.UUID) error
	CountScoresForCriterion(ctx context.Context, criterionID uuid.UUID) (int, error)
}

// NominationRepository defines nomination data operations
type NominationRepository interface {
	// CreateNomination inserts a nomination with all its scores in one
	// transaction; returns ErrDuplicate on a uniqueness violation.
	CreateNomination(ctx context.Context, nom models.Nomination) error
	GetNomination(ctx context.Context, id uuid.UUID) (*models.Nomination, error)
	ListNominations(ctx context.Context, filter NominationFilter) ([]models.Nomination, error)
	// ListApprovedNominations returns APPROVED nominations for a cycle with
	// their scores populated, optionally restricted to one team.
	ListApprovedNominations(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID) ([]models.Nomination, error)
	// ListCycleNominations returns every nomination of a cycle regardless of
	// status, with scores populated.
	ListCycleNominations(ctx context.Context, cycleID uuid.UUID) ([]models.Nomination, error)
	// SetNominationStatus transitions a nomination from PENDING; returns
	// ErrStaleState if it is no longer PENDING.
	SetNominationStatus(ctx context.Context, id uuid.UUID, to models.NominationStatus) error
}

// NominationFilter narrows ListNominations results; nil fields match all
type NominationFilter struct {
	CycleID     *uuid.UUID
	NomineeID   *uuid.UUID
	SubmittedBy *uuid.UUID
	Status      *models.NominationStatus
}

// ApprovalRepository defines approval data operations
type ApprovalRepository interface {
	CreateApproval(ctx context.Context, approval models.Approval, reviews []models.CriterionReview) error
	ListApprovals(ctx context.Context, nominationID uuid.UUID) ([]models.Approval, error)
}

// RankingRepository defines ranking data operations
type RankingRepository interface {
	// ReplaceRankings atomically deletes prior ranking rows for the
	// (cycle, team-scope) and inserts the new set in one transaction.
	ReplaceRankings(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID, rankings []models.Ranking) error
	ListRankings(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID) ([]models.Ranking, error)
	// FinalizeCycle atomically: flips the cycle CLOSED -> FINALIZED (guarded;
	// ErrStaleState if the cycle is not CLOSED), replaces the cycle's
	// unscoped rankings with the supplied set, and snapshots the supplied
	// nominations and rankings into immutable history tables.
	FinalizeCycle(ctx context.Context, cycleID uuid.UUID, nominations []models.Nomination, rankings []models.Ranking, snapshotAt time.Time) error
	ListNominationSnapshots(ctx context.Context, cycleID uuid.UUID) ([]models.NominationSnapshot, error)
	ListRankingSnapshots(ctx context.Context, cycleID uuid.UUID) ([]models.RankingSnapshot, error)
}

// UserRepository defines user and team data operations
type UserRepository interface {
	CreateTeam(ctx context.Context, team models.Team) error
	ListTeams(ctx context.Context) ([]models.Team, error)
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	CycleRepository
	CriterionRepository
	NominationRepository
	ApprovalRepository
	RankingRepository
	UserRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
