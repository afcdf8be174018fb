package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/errors"
	"github.com/abarnes/kudos/internal/logger"
	"github.com/abarnes/kudos/internal/models"
	"github.com/abarnes/kudos/internal/repository"
)

// NominationServiceRepository defines the repository methods needed by NominationService
type NominationServiceRepository interface {
	repository.CriterionRepository
	repository.NominationRepository
	repository.UserRepository
}

// NominationService handles nomination submission and reads
type NominationService struct {
	log         logger.Logger
	repo        NominationServiceRepository
	cycles      CycleServicer
	broadcaster Broadcaster
	now         func() time.Time
}

// NewNominationService creates a new NominationService
func NewNominationService(log logger.Logger, repo NominationServiceRepository, cycles CycleServicer) *NominationService {
	return &NominationService{
		log:    log,
		repo:   repo,
		cycles: cycles,
		now:    time.Now,
	}
}

// SetBroadcaster sets the broadcaster for nomination event notifications
func (s *NominationService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// AnswerSpec is one caller-supplied answer keyed to a criterion. Either the
// legacy Score or the structured Answer is set.
type AnswerSpec struct {
	CriterionID uuid.UUID      `json:"criterion_id"`
	Score       *int           `json:"score,omitempty"`
	Answer      *models.Answer `json:"answer,omitempty"`
	Comment     string         `json:"comment,omitempty"`
}

// NominationSpec carries the caller-supplied fields for a submission
type NominationSpec struct {
	CycleID   uuid.UUID    `json:"cycle_id"`
	NomineeID uuid.UUID    `json:"nominee_id"`
	TeamID    *uuid.UUID   `json:"team_id,omitempty"`
	Answers   []AnswerSpec `json:"answers"`
}

// SubmitNomination validates and persists a nomination with all its scores.
// The cycle must be OPEN with the current instant inside [start_at, end_at],
// the submitter's role must permit submitting, every active required
// criterion must be answered, and at most one nomination may exist per
// (cycle, nominee, submitter). Nothing is persisted on failure.
func (s *NominationService) SubmitNomination(ctx context.Context, spec NominationSpec, submitter models.User) (*models.Nomination, error) {
	if !submitter.Role.CanSubmit() {
		return nil, errors.PermissionDenied("role may not submit nominations")
	}

	cycle, err := s.cycles.GetCycle(ctx, spec.CycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.CycleOpen {
		return nil, errors.InvalidStatef("cycle is %s; nominations require an OPEN cycle", cycle.Status)
	}
	now := s.now()
	if now.Before(cycle.StartAt) || now.After(cycle.EndAt) {
		return nil, errors.OutOfWindow("submission is outside the cycle window")
	}

	if _, err := s.repo.GetUser(ctx, spec.NomineeID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("nominee not found")
		}
		return nil, errors.Storage("failed to get nominee", err)
	}

	criteria, err := s.repo.ListCriteria(ctx, spec.CycleID, true)
	if err != nil {
		return nil, errors.Storage("failed to list criteria", err)
	}
	scores, err := buildScores(criteria, spec.Answers)
	if err != nil {
		return nil, err
	}

	nom := models.Nomination{
		ID:          uuid.New(),
		CycleID:     spec.CycleID,
		NomineeID:   spec.NomineeID,
		TeamID:      spec.TeamID,
		SubmittedBy: submitter.ID,
		SubmittedAt: now.UTC(),
		Status:      models.NominationPending,
		Scores:      scores,
	}
	for i := range nom.Scores {
		nom.Scores[i].NominationID = nom.ID
	}

	if err := s.repo.CreateNomination(ctx, nom); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Duplicate("this submitter already nominated this person in this cycle")
		}
		return nil, errors.Storage("failed to create nomination", err)
	}

	s.log.Info("nomination submitted", "nomination_id", nom.ID,
		"cycle_id", nom.CycleID, "nominee_id", nom.NomineeID, "submitted_by", nom.SubmittedBy)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastNomination(nom.CycleID, nom.ID, nom.Status)
	}
	return &nom, nil
}

// buildScores validates the answer set against the cycle's active criteria
// and converts it to score rows. Every active criterion needs an entry, each
// entry needs a score or an answer, and legacy scores must sit in [0, 10].
func buildScores(criteria []models.Criterion, answers []AnswerSpec) ([]models.CriterionScore, error) {
	active := make(map[uuid.UUID]models.Criterion, len(criteria))
	for _, crit := range criteria {
		if crit.Active {
			active[crit.ID] = crit
		}
	}

	byID := make(map[uuid.UUID]AnswerSpec, len(answers))
	for _, answer := range answers {
		if _, ok := active[answer.CriterionID]; !ok {
			return nil, errors.InvalidInputf("answer references unknown or inactive criterion %s", answer.CriterionID)
		}
		if _, dup := byID[answer.CriterionID]; dup {
			return nil, errors.InvalidInputf("duplicate answer for criterion %s", answer.CriterionID)
		}
		byID[answer.CriterionID] = answer
	}

	scores := make([]models.CriterionScore, 0, len(criteria))
	for _, crit := range criteria {
		if !crit.Active {
			continue
		}
		answer, ok := byID[crit.ID]
		if !ok {
			return nil, errors.Incompletef("missing answer for criterion %q", crit.Name)
		}
		if answer.Score == nil && answer.Answer == nil {
			return nil, errors.Incompletef("empty answer for criterion %q", crit.Name)
		}
		if answer.Score != nil && (*answer.Score < 0 || *answer.Score > 10) {
			return nil, errors.InvalidInputf("score for criterion %q must be in [0, 10]", crit.Name)
		}
		// Reuse the normalizer's validation so an answer that cannot be
		// aggregated later is rejected at submit time.
		score := models.CriterionScore{
			ID:          uuid.New(),
			CriterionID: crit.ID,
			Score:       answer.Score,
			Answer:      answer.Answer,
			Comment:     answer.Comment,
		}
		if _, err := NormalizeScore(crit, score, nil); err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, nil
}

// GetNomination returns a nomination with its scores
func (s *NominationService) GetNomination(ctx context.Context, id uuid.UUID) (*models.Nomination, error) {
	nom, err := s.repo.GetNomination(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("nomination not found")
		}
		return nil, errors.Storage("failed to get nomination", err)
	}
	return nom, nil
}

// ListNominations returns nominations matching the filter
func (s *NominationService) ListNominations(ctx context.Context, filter repository.NominationFilter) ([]models.Nomination, error) {
	nominations, err := s.repo.ListNominations(ctx, filter)
	if err != nil {
		return nil, errors.Storage("failed to list nominations", err)
	}
	return nominations, nil
}
