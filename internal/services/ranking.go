package services

import (
	"context"
	stderrors "errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/errors"
	"github.com/abarnes/kudos/internal/logger"
	"github.com/abarnes/kudos/internal/models"
	"github.com/abarnes/kudos/internal/repository"
)

// RankingServiceRepository defines the repository methods needed by RankingService
type RankingServiceRepository interface {
	repository.CycleRepository
	repository.CriterionRepository
	repository.NominationRepository
	repository.RankingRepository
}

// RankingService computes weighted rankings over approved nominations and
// drives cycle finalization
type RankingService struct {
	log         logger.Logger
	repo        RankingServiceRepository
	cycles      CycleServicer
	broadcaster Broadcaster
	table       ScoringTable
	now         func() time.Time
}

// NewRankingService creates a new RankingService
func NewRankingService(log logger.Logger, repo RankingServiceRepository, cycles CycleServicer) *RankingService {
	return &RankingService{
		log:    log,
		repo:   repo,
		cycles: cycles,
		now:    time.Now,
	}
}

// SetBroadcaster sets the broadcaster for ranking event notifications
func (s *RankingService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetScoringTable installs option value tables for select criteria. Without
// an entry for a criterion its select answers count as a presence signal.
func (s *RankingService) SetScoringTable(table ScoringTable) {
	s.table = table
}

// ComputeRankings aggregates all approved nominations of a CLOSED cycle into
// dense-ranked entries, optionally partitioned to one team, and replaces any
// previously computed entries for that scope. Recomputing with unchanged data
// yields identical totals and ranks.
func (s *RankingService) ComputeRankings(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID) ([]models.Ranking, error) {
	cycle, err := s.cycles.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.CycleClosed {
		return nil, errors.InvalidStatef("cycle is %s; rankings are computed on CLOSED cycles", cycle.Status)
	}

	rankings, err := s.compute(ctx, cycleID, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceRankings(ctx, cycleID, teamID, rankings); err != nil {
		return nil, errors.Storage("failed to store rankings", err)
	}

	s.log.Info("rankings computed", "cycle_id", cycleID, "entries", len(rankings))
	return rankings, nil
}

// compute builds the ranking entries without persisting them
func (s *RankingService) compute(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID) ([]models.Ranking, error) {
	criteria, err := s.repo.ListCriteria(ctx, cycleID, true)
	if err != nil {
		return nil, errors.Storage("failed to list criteria", err)
	}
	nominations, err := s.repo.ListApprovedNominations(ctx, cycleID, teamID)
	if err != nil {
		return nil, errors.Storage("failed to list approved nominations", err)
	}

	computedAt := s.now().UTC()
	entries := make([]models.Ranking, 0, len(nominations))
	for _, nom := range nominations {
		total, err := AggregateNomination(criteria, nom.Scores, s.table)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindOf(err), "nomination "+nom.ID.String()+" failed to aggregate")
		}
		entries = append(entries, models.Ranking{
			ID:         uuid.New(),
			CycleID:    cycleID,
			TeamID:     nom.TeamID,
			NomineeID:  nom.NomineeID,
			TotalScore: total,
			ComputedAt: computedAt,
		})
	}

	assignDenseRanks(entries)
	return entries, nil
}

// assignDenseRanks sorts entries by descending total and assigns dense ranks:
// equal totals share a rank and the next distinct total takes the immediate
// successor integer, so totals [90, 90, 80] rank [1, 1, 2]. Equal totals are
// ordered by nominee ID so output order is stable across recomputes.
func assignDenseRanks(entries []models.Ranking) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].NomineeID.String() < entries[j].NomineeID.String()
	})

	rank := 0
	prev := -1.0
	for i := range entries {
		if i == 0 || entries[i].TotalScore != prev {
			rank++
			prev = entries[i].TotalScore
		}
		entries[i].Rank = rank
	}
}

// ListRankings returns the persisted rankings for a cycle
func (s *RankingService) ListRankings(ctx context.Context, cycleID uuid.UUID, teamID *uuid.UUID) ([]models.Ranking, error) {
	if _, err := s.cycles.GetCycle(ctx, cycleID); err != nil {
		return nil, err
	}
	rankings, err := s.repo.ListRankings(ctx, cycleID, teamID)
	if err != nil {
		return nil, errors.Storage("failed to list rankings", err)
	}
	return rankings, nil
}

// Finalize recomputes the full (unscoped) ranking for a CLOSED cycle, then
// atomically snapshots every nomination and ranking entry into immutable
// history and locks the cycle FINALIZED. Exactly one of two concurrent
// finalize calls wins; the loser observes the cycle already FINALIZED.
func (s *RankingService) Finalize(ctx context.Context, cycleID uuid.UUID) (*models.Cycle, error) {
	cycle, err := s.cycles.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.CycleClosed {
		return nil, errors.InvalidStatef("cycle is %s; only CLOSED cycles can be finalized", cycle.Status)
	}

	rankings, err := s.compute(ctx, cycleID, nil)
	if err != nil {
		return nil, err
	}
	// History preserves the whole cycle, not just the winners: rejected and
	// still-pending nominations are snapshotted alongside the approved ones.
	nominations, err := s.repo.ListCycleNominations(ctx, cycleID)
	if err != nil {
		return nil, errors.Storage("failed to list nominations", err)
	}

	snapshotAt := s.now().UTC()
	if err := s.repo.FinalizeCycle(ctx, cycleID, nominations, rankings, snapshotAt); err != nil {
		if stderrors.Is(err, repository.ErrStaleState) {
			return nil, errors.InvalidState("cycle is no longer CLOSED")
		}
		return nil, errors.Storage("failed to finalize cycle", err)
	}

	cycle.Status = models.CycleFinalized
	s.log.Info("cycle finalized", "cycle_id", cycleID,
		"nominations", len(nominations), "rankings", len(rankings))
	if s.broadcaster != nil {
		s.broadcaster.BroadcastCycleStatus(cycleID, models.CycleFinalized)
	}
	return cycle, nil
}

// ListNominationSnapshots returns the nomination history of a finalized cycle
func (s *RankingService) ListNominationSnapshots(ctx context.Context, cycleID uuid.UUID) ([]models.NominationSnapshot, error) {
	if err := s.requireFinalized(ctx, cycleID); err != nil {
		return nil, err
	}
	snapshots, err := s.repo.ListNominationSnapshots(ctx, cycleID)
	if err != nil {
		return nil, errors.Storage("failed to list nomination snapshots", err)
	}
	return snapshots, nil
}

// ListRankingSnapshots returns the ranking history of a finalized cycle
func (s *RankingService) ListRankingSnapshots(ctx context.Context, cycleID uuid.UUID) ([]models.RankingSnapshot, error) {
	if err := s.requireFinalized(ctx, cycleID); err != nil {
		return nil, err
	}
	snapshots, err := s.repo.ListRankingSnapshots(ctx, cycleID)
	if err != nil {
		return nil, errors.Storage("failed to list ranking snapshots", err)
	}
	return snapshots, nil
}

func (s *RankingService) requireFinalized(ctx context.Context, cycleID uuid.UUID) error {
	cycle, err := s.cycles.GetCycle(ctx, cycleID)
	if err != nil {
		return err
	}
	if cycle.Status != models.CycleFinalized {
		return errors.InvalidStatef("cycle is %s; history exists only after finalization", cycle.Status)
	}
	return nil
}
