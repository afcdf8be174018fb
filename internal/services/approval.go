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

// ApprovalServiceRepository defines the repository methods needed by ApprovalService
type ApprovalServiceRepository interface {
	repository.CriterionRepository
	repository.NominationRepository
	repository.ApprovalRepository
}

// ApprovalService records approve/reject decisions against nominations
type ApprovalService struct {
	log         logger.Logger
	repo        ApprovalServiceRepository
	cycles      CycleServicer
	broadcaster Broadcaster
	now         func() time.Time
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(log logger.Logger, repo ApprovalServiceRepository, cycles CycleServicer) *ApprovalService {
	return &ApprovalService{
		log:    log,
		repo:   repo,
		cycles: cycles,
		now:    time.Now,
	}
}

// SetBroadcaster sets the broadcaster for decision event notifications
func (s *ApprovalService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// ReviewSpec is one optional per-criterion rating attached to a decision
type ReviewSpec struct {
	CriterionID uuid.UUID `json:"criterion_id"`
	Rating      float64   `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
}

// DecisionSpec carries the caller-supplied fields for a decision
type DecisionSpec struct {
	NominationID uuid.UUID    `json:"nomination_id"`
	Action       string       `json:"action"`
	Reason       string       `json:"reason,omitempty"`
	Rating       *float64     `json:"rating,omitempty"`
	Reviews      []ReviewSpec `json:"reviews,omitempty"`
}

// Decide records an approve or reject decision. Only MANAGER and HR roles may
// decide, a manager may not decide a nomination they themselves submitted,
// and a nomination accepts exactly one decision: its status leaves PENDING
// once and never returns.
func (s *ApprovalService) Decide(ctx context.Context, spec DecisionSpec, actor models.User) (*models.Approval, error) {
	if !actor.Role.CanDecide() {
		return nil, errors.PermissionDenied("role may not decide nominations")
	}

	var action models.ApprovalAction
	var target models.NominationStatus
	switch models.ApprovalAction(spec.Action) {
	case models.ActionApprove:
		action, target = models.ActionApprove, models.NominationApproved
	case models.ActionReject:
		action, target = models.ActionReject, models.NominationRejected
	default:
		return nil, errors.InvalidInputf("unknown action %q", spec.Action)
	}

	nom, err := s.repo.GetNomination(ctx, spec.NominationID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("nomination not found")
		}
		return nil, errors.Storage("failed to get nomination", err)
	}
	if nom.Status != models.NominationPending {
		return nil, errors.InvalidNominationState("nomination has already been decided")
	}
	if actor.Role == models.RoleManager && nom.SubmittedBy == actor.ID {
		return nil, errors.PermissionDenied("managers may not decide their own nominations")
	}

	cycle, err := s.cycles.GetCycle(ctx, nom.CycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.CycleOpen && cycle.Status != models.CycleClosed {
		return nil, errors.InvalidStatef("cycle is %s; decisions are no longer accepted", cycle.Status)
	}

	if spec.Rating != nil && (*spec.Rating < 0 || *spec.Rating > 10) {
		return nil, errors.InvalidInput("rating must be in [0, 10]")
	}
	reviews, derivedRating, err := s.buildReviews(ctx, nom.CycleID, spec.Reviews)
	if err != nil {
		return nil, err
	}
	rating := spec.Rating
	if rating == nil {
		rating = derivedRating
	}

	// The guarded status flip serializes concurrent decisions: the second
	// caller sees zero rows affected and fails without writing an approval.
	if err := s.repo.SetNominationStatus(ctx, nom.ID, target); err != nil {
		if stderrors.Is(err, repository.ErrStaleState) {
			return nil, errors.InvalidNominationState("nomination has already been decided")
		}
		return nil, errors.Storage("failed to update nomination status", err)
	}

	approval := models.Approval{
		ID:           uuid.New(),
		NominationID: nom.ID,
		ActorID:      actor.ID,
		Action:       action,
		Reason:       spec.Reason,
		Rating:       rating,
		ActedAt:      s.now().UTC(),
	}
	if err := s.repo.CreateApproval(ctx, approval, reviews); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.InvalidNominationState("this actor already decided this nomination")
		}
		return nil, errors.Storage("failed to record approval", err)
	}

	s.log.Info("nomination decided", "nomination_id", nom.ID,
		"action", action, "actor_id", actor.ID)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastNomination(nom.CycleID, nom.ID, target)
	}
	return &approval, nil
}

// buildReviews validates per-criterion ratings against the cycle's criteria
// and derives an overall rating from them: the mean of the review ratings
// weighted by their criteria's weights, on the same 0-10 scale. The derived
// rating stands in for the approval's rating when the caller gives none.
func (s *ApprovalService) buildReviews(ctx context.Context, cycleID uuid.UUID, specs []ReviewSpec) ([]models.CriterionReview, *float64, error) {
	if len(specs) == 0 {
		return nil, nil, nil
	}
	criteria, err := s.repo.ListCriteria(ctx, cycleID, false)
	if err != nil {
		return nil, nil, errors.Storage("failed to list criteria", err)
	}
	weights := make(map[uuid.UUID]float64, len(criteria))
	for _, crit := range criteria {
		weights[crit.ID] = crit.Weight
	}

	reviews := make([]models.CriterionReview, 0, len(specs))
	seen := make(map[uuid.UUID]bool, len(specs))
	var weightedSum, weightSum float64
	for _, spec := range specs {
		weight, known := weights[spec.CriterionID]
		if !known {
			return nil, nil, errors.InvalidInputf("review references unknown criterion %s", spec.CriterionID)
		}
		if seen[spec.CriterionID] {
			return nil, nil, errors.InvalidInputf("duplicate review for criterion %s", spec.CriterionID)
		}
		seen[spec.CriterionID] = true
		if spec.Rating < 0 || spec.Rating > 10 {
			return nil, nil, errors.InvalidInput("review rating must be in [0, 10]")
		}
		weightedSum += spec.Rating * weight
		weightSum += weight
		reviews = append(reviews, models.CriterionReview{
			CriterionID: spec.CriterionID,
			Rating:      spec.Rating,
			Comment:     spec.Comment,
		})
	}

	derived := 0.0
	if weightSum > 0 {
		derived = roundScore(weightedSum / weightSum)
	}
	return reviews, &derived, nil
}

// ListApprovals returns the decision history of a nomination
func (s *ApprovalService) ListApprovals(ctx context.Context, nominationID uuid.UUID) ([]models.Approval, error) {
	if _, err := s.repo.GetNomination(ctx, nominationID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("nomination not found")
		}
		return nil, errors.Storage("failed to get nomination", err)
	}
	approvals, err := s.repo.ListApprovals(ctx, nominationID)
	if err != nil {
		return nil, errors.Storage("failed to list approvals", err)
	}
	return approvals, nil
}
