package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/models"
	"github.com/abarnes/kudos/internal/repository"
)

// CycleServicer defines the interface for cycle and criterion operations
type CycleServicer interface {
	CreateCycle(ctx context.Context, spec CycleSpec, createdBy uuid.UUID) (*models.Cycle, error)
	GetCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error)
	ListCycles(ctx context.Context) ([]models.Cycle, error)
	UpdateCycle(ctx context.Context, id uuid.UUID, spec CycleSpec) (*models.Cycle, error)
	DeleteCycle(ctx context.Context, id uuid.UUID) error
	OpenCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error)
	CloseCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error)
	AddCriteria(ctx context.Context, cycleID uuid.UUID, specs []CriterionSpec) ([]models.Criterion, error)
	ListCriteria(ctx context.Context, cycleID uuid.UUID, activeOnly bool) ([]models.Criterion, error)
	UpdateCriterion(ctx context.Context, id uuid.UUID, spec CriterionSpec) (*models.Criterion, error)
	DeleteCriterion(ctx context.Context, id uuid.UUID) error
	SetBroadcaster(b Broadcaster)
}

// NominationServicer defines the interface for nomination operations
type NominationServicer interface {
	SubmitNomination(ctx context.Context, spec NominationSpec, submitter models.User) (*models.Nomination, error)
	GetNomination(ctx context.Context, id uuid.UUID) (*models.Nomination, error)
	ListNominations(ctx context.Context, filter repository.NominationFilter) ([]models.Nomination, error)
	SetBroadcaster(b Broadcaster)
}

// ApprovalServicer defines the interface for decision operations
type ApprovalServicer interface {
	Decide(ctx context.Context, spec DecisionSpec, actor models.User) (*models.Approval, error)
	ListApprovals(ctx context.Context, nominationID uuid.UUID) ([]models.Approval, error)
	SetBroadcaster(b Broadcaster)
}

// RankingServicer defines the interface for ranking and finalization operations
type RankingServicer interface {
	ComputeRankings(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID) ([]models.Ranking, error)
	ListRankings(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID) ([]models.Ranking, error)
	Finalize(ctx context.Context, cycleID uuid.UUID) (*models.Cycle, error)
	ListNominationSnapshots(ctx context.Context, cycleID uuid.UUID) ([]models.NominationSnapshot, error)
	ListRankingSnapshots(ctx context.Context, cycleID uuid.UUID) ([]models.RankingSnapshot, error)
	SetBroadcaster(b Broadcaster)
	SetScoringTable(table ScoringTable)
}

// UserServicer defines the interface for user and team operations
type UserServicer interface {
	CreateUser(ctx context.Context, spec UserSpec) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateTeam(ctx context.Context, name string) (*models.Team, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
}

// Compile-time interface checks
var (
	_ CycleServicer      = (*CycleService)(nil)
	_ NominationServicer = (*NominationService)(nil)
	_ ApprovalServicer   = (*ApprovalService)(nil)
	_ RankingServicer    = (*RankingService)(nil)
	_ UserServicer       = (*UserService)(nil)
)
