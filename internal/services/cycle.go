package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/errors"
	"github.com/abarnes/kudos/internal/logger"
	"github.com/abarnes/kudos/internal/models"
	"github.com/abarnes/kudos/internal/repository"
)

// Broadcaster defines the interface for broadcasting domain events to clients
type Broadcaster interface {
	BroadcastCycleStatus(cycleID uuid.UUID, status models.CycleStatus)
	BroadcastNomination(cycleID, nominationID uuid.UUID, status models.NominationStatus)
}

// CycleServiceRepository defines the repository methods needed by CycleService
type CycleServiceRepository interface {
	repository.CycleRepository
	repository.CriterionRepository
}

// CycleService enforces the one-way cycle lifecycle and owns criterion
// management while a cycle is still editable
type CycleService struct {
	log         logger.Logger
	repo        CycleServiceRepository
	broadcaster Broadcaster
	now         func() time.Time
}

// NewCycleService creates a new CycleService
func NewCycleService(log logger.Logger, repo CycleServiceRepository) *CycleService {
	return &CycleService{
		log:  log,
		repo: repo,
		now:  time.Now,
	}
}

// SetBroadcaster sets the broadcaster for cycle event notifications
func (s *CycleService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CycleSpec carries the caller-supplied fields for creating or editing a cycle
type CycleSpec struct {
	Name    string    `json:"name"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

func validateCycleSpec(spec CycleSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return errors.InvalidInput("cycle name is required")
	}
	if !spec.EndAt.After(spec.StartAt) {
		return errors.InvalidInput("cycle end date must be after start date")
	}
	return nil
}

// CreateCycle creates a new cycle in DRAFT
func (s *CycleService) CreateCycle(ctx context.Context, spec CycleSpec, createdBy uuid.UUID) (*models.Cycle, error) {
	if err := validateCycleSpec(spec); err != nil {
		return nil, err
	}

	cycle := models.Cycle{
		ID:        uuid.New(),
		Name:      spec.Name,
		StartAt:   spec.StartAt,
		EndAt:     spec.EndAt,
		Status:    models.CycleDraft,
		CreatedBy: createdBy,
	}
	if err := s.repo.CreateCycle(ctx, cycle); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Duplicate("a cycle with this name already exists")
		}
		return nil, errors.Storage("failed to create cycle", err)
	}

	s.log.Info("cycle created", "cycle_id", cycle.ID, "name", cycle.Name)
	return &cycle, nil
}

// GetCycle returns a cycle, closing it first if its window has elapsed
func (s *CycleService) GetCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	cycle, err := s.repo.GetCycle(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("cycle not found")
		}
		return nil, errors.Storage("failed to get cycle", err)
	}
	return s.autoClose(ctx, cycle), nil
}

// autoClose transitions an OPEN cycle to CLOSED once its end date has
// elapsed. There is no background timer; the transition happens lazily on
// the next read. Losing the guarded update to a concurrent caller is fine
// because the other caller made the same transition.
func (s *CycleService) autoClose(ctx context.Context, cycle *models.Cycle) *models.Cycle {
	if cycle.Status != models.CycleOpen || !s.now().After(cycle.EndAt) {
		return cycle
	}
	err := s.repo.UpdateCycleStatus(ctx, cycle.ID, models.CycleOpen, models.CycleClosed)
	if err != nil && !stderrors.Is(err, repository.ErrStaleState) {
		s.log.Error("failed to auto-close cycle", "cycle_id", cycle.ID, "error", err)
		return cycle
	}
	if err == nil {
		s.log.Info("cycle auto-closed", "cycle_id", cycle.ID)
		s.notifyStatus(cycle.ID, models.CycleClosed)
	}
	cycle.Status = models.CycleClosed
	return cycle
}

// ListCycles returns all cycles
func (s *CycleService) ListCycles(ctx context.Context) ([]models.Cycle, error) {
	cycles, err := s.repo.ListCycles(ctx)
	if err != nil {
		return nil, errors.Storage("failed to list cycles", err)
	}
	for i := range cycles {
		cycles[i] = *s.autoClose(ctx, &cycles[i])
	}
	return cycles, nil
}

// UpdateCycle edits a cycle's name and window. Only DRAFT cycles are editable.
func (s *CycleService) UpdateCycle(ctx context.Context, id uuid.UUID, spec CycleSpec) (*models.Cycle, error) {
	if err := validateCycleSpec(spec); err != nil {
		return nil, err
	}

	cycle, err := s.GetCycle(ctx, id)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.CycleDraft {
		return nil, errors.InvalidStatef("cycle is %s; only DRAFT cycles can be edited", cycle.Status)
	}

	if err := s.repo.UpdateCycle(ctx, id, spec.Name, spec.StartAt, spec.EndAt); err != nil {
		return nil, errors.Storage("failed to update cycle", err)
	}
	cycle.Name = spec.Name
	cycle.StartAt = spec.StartAt
	cycle.EndAt = spec.EndAt
	return cycle, nil
}

// DeleteCycle removes a DRAFT cycle that has no nominations. Criteria are
// removed by cascade.
func (s *CycleService) DeleteCycle(ctx context.Context, id uuid.UUID) error {
	cycle, err := s.GetCycle(ctx, id)
	if err != nil {
		return err
	}
	if cycle.Status != models.CycleDraft {
		return errors.InvalidStatef("cycle is %s; only DRAFT cycles can be deleted", cycle.Status)
	}
	count, err := s.repo.CountNominationsForCycle(ctx, id)
	if err != nil {
		return errors.Storage("failed to count nominations", err)
	}
	if count > 0 {
		return errors.InvalidState("cycle has nominations and cannot be deleted")
	}
	if err := s.repo.DeleteCycle(ctx, id); err != nil {
		return errors.Storage("failed to delete cycle", err)
	}
	s.log.Info("cycle deleted", "cycle_id", id)
	return nil
}

// OpenCycle transitions DRAFT -> OPEN
func (s *CycleService) OpenCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	return s.transition(ctx, id, models.CycleDraft, models.CycleOpen)
}

// CloseCycle transitions OPEN -> CLOSED
func (s *CycleService) CloseCycle(ctx context.Context, id uuid.UUID) (*models.Cycle, error) {
	return s.transition(ctx, id, models.CycleOpen, models.CycleClosed)
}

func (s *CycleService) transition(ctx context.Context, id uuid.UUID, from, to models.CycleStatus) (*models.Cycle, error) {
	cycle, err := s.GetCycle(ctx, id)
	if err != nil {
		return nil, err
	}
	if cycle.Status != from {
		return nil, errors.InvalidStatef("cycle is %s, not %s", cycle.Status, from)
	}
	if err := s.repo.UpdateCycleStatus(ctx, id, from, to); err != nil {
		if stderrors.Is(err, repository.ErrStaleState) {
			return nil, errors.InvalidStatef("cycle is no longer %s", from)
		}
		return nil, errors.Storage("failed to update cycle status", err)
	}
	cycle.Status = to
	s.log.Info("cycle status changed", "cycle_id", id, "from", from, "to", to)
	s.notifyStatus(id, to)
	return cycle, nil
}

func (s *CycleService) notifyStatus(id uuid.UUID, status models.CycleStatus) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastCycleStatus(id, status)
	}
}

// CriterionSpec carries the caller-supplied fields for one criterion
type CriterionSpec struct {
	Name        string                  `json:"name"`
	Weight      float64                 `json:"weight"`
	Description string                  `json:"description"`
	Config      *models.CriterionConfig `json:"config"`
}

// AddCriteria adds a batch of criteria to a DRAFT cycle. The combined weight
// of active criteria must stay at or below 1.0.
func (s *CycleService) AddCriteria(ctx context.Context, cycleID uuid.UUID, specs []CriterionSpec) ([]models.Criterion, error) {
	if len(specs) == 0 {
		return nil, errors.InvalidInput("no criteria specified")
	}

	cycle, err := s.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.CycleDraft {
		return nil, errors.InvalidStatef("cycle is %s; criteria can only be added while DRAFT", cycle.Status)
	}

	existing, err := s.repo.ListCriteria(ctx, cycleID, true)
	if err != nil {
		return nil, errors.Storage("failed to list criteria", err)
	}
	weightSum := 0.0
	for _, crit := range existing {
		weightSum += crit.Weight
	}

	criteria := make([]models.Criterion, 0, len(specs))
	for _, spec := range specs {
		crit := models.Criterion{
			ID:          uuid.New(),
			CycleID:     cycleID,
			Name:        spec.Name,
			Weight:      spec.Weight,
			Description: spec.Description,
			Active:      true,
			Config:      spec.Config,
		}
		if err := ValidateCriterionSpec(crit); err != nil {
			return nil, err
		}
		weightSum += crit.Weight
		criteria = append(criteria, crit)
	}
	if weightSum > 1.0+1e-9 {
		return nil, errors.InvalidInputf("active criteria weights sum to %.4f, exceeding 1.0", weightSum)
	}

	if err := s.repo.AddCriteria(ctx, criteria); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Duplicate("a criterion with this name already exists in the cycle")
		}
		return nil, errors.Storage("failed to add criteria", err)
	}

	s.log.Info("criteria added", "cycle_id", cycleID, "count", len(criteria))
	return criteria, nil
}

// ListCriteria returns a cycle's criteria
func (s *CycleService) ListCriteria(ctx context.Context, cycleID uuid.UUID, activeOnly bool) ([]models.Criterion, error) {
	if _, err := s.GetCycle(ctx, cycleID); err != nil {
		return nil, err
	}
	criteria, err := s.repo.ListCriteria(ctx, cycleID, activeOnly)
	if err != nil {
		return nil, errors.Storage("failed to list criteria", err)
	}
	return criteria, nil
}

// UpdateCriterion edits a criterion. Rejected once the cycle has left DRAFT
// or the criterion has been referenced by a submitted score.
func (s *CycleService) UpdateCriterion(ctx context.Context, id uuid.UUID, spec CriterionSpec) (*models.Criterion, error) {
	crit, cycle, err := s.mutableCriterion(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *crit
	updated.Name = spec.Name
	updated.Weight = spec.Weight
	updated.Description = spec.Description
	updated.Config = spec.Config
	if err := ValidateCriterionSpec(updated); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListCriteria(ctx, cycle.ID, true)
	if err != nil {
		return nil, errors.Storage("failed to list criteria", err)
	}
	weightSum := updated.Weight
	for _, other := range existing {
		if other.ID != id {
			weightSum += other.Weight
		}
	}
	if weightSum > 1.0+1e-9 {
		return nil, errors.InvalidInputf("active criteria weights sum to %.4f, exceeding 1.0", weightSum)
	}

	if err := s.repo.UpdateCriterion(ctx, updated); err != nil {
		return nil, errors.Storage("failed to update criterion", err)
	}
	return &updated, nil
}

// DeleteCriterion removes a criterion under the same conditions as update
func (s *CycleService) DeleteCriterion(ctx context.Context, id uuid.UUID) error {
	crit, _, err := s.mutableCriterion(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCriterion(ctx, crit.ID); err != nil {
		return errors.Storage("failed to delete criterion", err)
	}
	s.log.Info("criterion deleted", "criterion_id", id)
	return nil
}

func (s *CycleService) mutableCriterion(ctx context.Context, id uuid.UUID) (*models.Criterion, *models.Cycle, error) {
	crit, err := s.repo.GetCriterion(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, nil, errors.NotFound("criterion not found")
		}
		return nil, nil, errors.Storage("failed to get criterion", err)
	}
	cycle, err := s.GetCycle(ctx, crit.CycleID)
	if err != nil {
		return nil, nil, err
	}
	if cycle.Status != models.CycleDraft {
		return nil, nil, errors.InvalidStatef("cycle is %s; criteria are frozen after DRAFT", cycle.Status)
	}
	count, err := s.repo.CountScoresForCriterion(ctx, id)
	if err != nil {
		return nil, nil, errors.Storage("failed to count criterion scores", err)
	}
	if count > 0 {
		return nil, nil, errors.InvalidState("criterion has submitted scores and cannot be changed")
	}
	return crit, cycle, nil
}
