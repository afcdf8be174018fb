package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/models"
	"github.com/abarnes/kudos/internal/repository"
	"github.com/abarnes/kudos/internal/services"
)

// handleSubmitNomination submits a nomination into an OPEN cycle
func (h *Handlers) handleSubmitNomination(w http.ResponseWriter, r *http.Request) {
	user, err := h.actor(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req SubmitNominationRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, err)
		return
	}

	answers := make([]services.AnswerSpec, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, services.AnswerSpec{
			CriterionID: a.CriterionID,
			Score:       a.Score,
			Answer:      a.Answer,
			Comment:     a.Comment,
		})
	}

	nom, err := h.Nominations.SubmitNomination(r.Context(), services.NominationSpec{
		CycleID:   req.CycleID,
		NomineeID: req.NomineeID,
		TeamID:    req.TeamID,
		Answers:   answers,
	}, *user)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, nom)
}

// handleGetNomination returns one nomination with its scores
func (h *Handlers) handleGetNomination(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "nominationID")
	if err != nil {
		respondError(w, err)
		return
	}
	nom, err := h.Nominations.GetNomination(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nom)
}

// handleListNominations returns nominations filtered by query parameters
func (h *Handlers) handleListNominations(w http.ResponseWriter, r *http.Request) {
	var filter repository.NominationFilter
	q := r.URL.Query()
	for name, target := range map[string]**uuid.UUID{
		"cycle_id":     &filter.CycleID,
		"nominee_id":   &filter.NomineeID,
		"submitted_by": &filter.SubmittedBy,
	} {
		if raw := q.Get(name); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				respondError(w, BadRequest("Invalid "+name+" parameter"))
				return
			}
			*target = &id
		}
	}
	if raw := q.Get("status"); raw != "" {
		status := models.NominationStatus(raw)
		switch status {
		case models.NominationPending, models.NominationApproved, models.NominationRejected:
			filter.Status = &status
		default:
			respondError(w, BadRequest("Invalid status parameter"))
			return
		}
	}

	nominations, err := h.Nominations.ListNominations(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nominations)
}

// handleDecide records an approve or reject decision
func (h *Handlers) handleDecide(w http.ResponseWriter, r *http.Request) {
	user, err := h.actor(r)
	if err != nil {
		respondError(w, err)
		return
	}
	id, err := parseUUIDParam(r, "nominationID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req DecisionRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, err)
		return
	}

	reviews := make([]services.ReviewSpec, 0, len(req.Reviews))
	for _, rev := range req.Reviews {
		reviews = append(reviews, services.ReviewSpec{
			CriterionID: rev.CriterionID,
			Rating:      rev.Rating,
			Comment:     rev.Comment,
		})
	}

	approval, err := h.Approvals.Decide(r.Context(), services.DecisionSpec{
		NominationID: id,
		Action:       req.Action,
		Reason:       req.Reason,
		Rating:       req.Rating,
		Reviews:      reviews,
	}, *user)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, approval)
}

// handleListApprovals returns a nomination's decision history
func (h *Handlers) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "nominationID")
	if err != nil {
		respondError(w, err)
		return
	}
	approvals, err := h.Approvals.ListApprovals(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, approvals)
}
