package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

// teamScope parses the optional team_id query parameter
func teamScope(r *http.Request) (*uuid.UUID, error) {
	raw := r.URL.Query().Get("team_id")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, BadRequest("Invalid team_id parameter")
	}
	return &id, nil
}

// handleComputeRankings recomputes rankings for a CLOSED cycle
func (h *Handlers) handleComputeRankings(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireHR(r); err != nil {
		respondError(w, err)
		return
	}
	cycleID, err := parseUUIDParam(r, "cycleID")
	if err != nil {
		respondError(w, err)
		return
	}
	teamID, err := teamScope(r)
	if err != nil {
		respondError(w, err)
		return
	}
	rankings, err := h.Rankings.ComputeRankings(r.Context(), cycleID, teamID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, rankings)
}

// handleListRankings returns a cycle's persisted rankings
func (h *Handlers) handleListRankings(w http.ResponseWriter, r *http.Request) {
	cycleID, err := parseUUIDParam(r, "cycleID")
	if err != nil {
		respondError(w, err)
		return
	}
	teamID, err := teamScope(r)
	if err != nil {
		respondError(w, err)
		return
	}
	rankings, err := h.Rankings.ListRankings(r.Context(), cycleID, teamID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, rankings)
}

// handleFinalize finalizes a CLOSED cycle
func (h *Handlers) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireHR(r); err != nil {
		respondError(w, err)
		return
	}
	cycleID, err := parseUUIDParam(r, "cycleID")
	if err != nil {
		respondError(w, err)
		return
	}
	cycle, err := h.Rankings.Finalize(r.Context(), cycleID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, cycle)
}

// handleGetHistory returns the immutable snapshots of a finalized cycle
func (h *Handlers) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	cycleID, err := parseUUIDParam(r, "cycleID")
	if err != nil {
		respondError(w, err)
		return
	}
	nominations, err := h.Rankings.ListNominationSnapshots(r.Context(), cycleID)
	if err != nil {
		respondError(w, err)
		return
	}
	rankings, err := h.Rankings.ListRankingSnapshots(r.Context(), cycleID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, HistoryResponse{Nominations: nominations, Rankings: rankings})
}
