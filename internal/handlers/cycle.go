package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/models"
	"github.com/abarnes/kudos/internal/services"
)

// requireHR rejects callers whose role is not HR
func (h *Handlers) requireHR(r *http.Request) (*models.User, error) {
	user, err := h.actor(r)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleHR {
		return nil, Forbidden("HR role required")
	}
	return user, nil
}

// handleCreateCycle creates a new cycle in DRAFT
func (h *Handlers) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireHR(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req CycleRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, err)
		return
	}

	cycle, err := h.Cycles.CreateCycle(r.Context(), services.CycleSpec{
		Name:    req.Name,
		StartAt: req.StartAt,
		EndAt:   req.EndAt,
	}, user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, cycle)
}

// handleListCycles returns all cycles
func (h *Handlers) handleListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.Cycles.ListCycles(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, cycles)
}

// handleGetCycle returns one cycle with its criteria
func (h *Handlers) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "cycleID")
	if err != nil {
		respondError(w, err)
		return
	}
	cycle, err := h.Cycles.GetCycle(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	criteria, err := h.Cycles.ListCriteria(r.Context(), id, false)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, CycleResponse{Cycle: *cycle, Criteria: criteria})
}

// handleUpdateCycle edits a DRAFT cycle
func (h *Handlers) handleUpdateCycle(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireHR(r); err != nil {
		respondError(w, err)
		return
	}
	id, err := parseUUIDParam(r, "cycleID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req CycleRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, err)
		return
	}
	cycle, err := h.Cycles.UpdateCycle(r.Context(), id, services.CycleSpec{
		Name:    req.Name,
		StartAt: req.StartAt,
		EndAt:   req.EndAt,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, cycle)
}

// handleDeleteCycle removes a DRAFT cycle without nominations
func (h *Handlers) handleDeleteCycle(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireHR(r); err != nil {
		respondError(w, err)
		return
	}
	id, err := parseUUIDParam(r, "cycleID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Cycles.DeleteCycle(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

// handleOpenCycle transitions DRAFT -> OPEN
func (h *Handlers) handleOpenCycle(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.Cycles.OpenCycle)
}

// handleCloseCycle transitions OPEN -> CLOSED
func (h *Handlers) handleCloseCycle(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.Cycles.CloseCycle)
}

func (h *Handlers) handleTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (*models.Cycle, error)) {
	if _, err := h.requireHR(r); err != nil {
		respondError(w, err)
		return
	}
	id, err := parseUUIDParam(r, "cycleID")
	if err != nil {
		respondError(w, err)
		return
	}
	cycle, err := fn(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, cycle)
}

// handleAddCriteria adds criteria to a DRAFT cycle
func (h *Handlers) handleAddCriteria(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireHR(r); err != nil {
		respondError(w, err)
		return
	}
	cycleID, err := parseUUIDParam(r, "cycleID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req AddCriteriaRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, err)
		return
	}

	specs := make([]services.CriterionSpec, 0, len(req.Criteria))
	for _, c := range req.Criteria {
		specs = append(specs, services.CriterionSpec{
			Name:        c.Name,
			Weight:      c.Weight,
			Description: c.Description,
			Config:      c.Config,
		})
	}
	criteria, err := h.Cycles.AddCriteria(r.Context(), cycleID, specs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, criteria)
}

// handleListCriteria returns a cycle's criteria
func (h *Handlers) handleListCriteria(w http.ResponseWriter, r *http.Request) {
	cycleID, err := parseUUIDParam(r, "cycleID")
	if err != nil {
		respondError(w, err)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	criteria, err := h.Cycles.ListCriteria(r.Context(), cycleID, activeOnly)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, criteria)
}

// handleUpdateCriterion edits a criterion while its cycle is DRAFT
func (h *Handlers) handleUpdateCriterion(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireHR(r); err != nil {
		respondError(w, err)
		return
	}
	id, err := parseUUIDParam(r, "criterionID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req CriterionRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, err)
		return
	}
	crit, err := h.Cycles.UpdateCriterion(r.Context(), id, services.CriterionSpec{
		Name:        req.Name,
		Weight:      req.Weight,
		Description: req.Description,
		Config:      req.Config,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, crit)
}

// handleDeleteCriterion removes a criterion while its cycle is DRAFT
func (h *Handlers) handleDeleteCriterion(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireHR(r); err != nil {
		respondError(w, err)
		return
	}
	id, err := parseUUIDParam(r, "criterionID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Cycles.DeleteCriterion(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}
