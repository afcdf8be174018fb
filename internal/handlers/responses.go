package handlers

import "github.com/abarnes/kudos/internal/models"

// TokenResponse is returned on successful login
type TokenResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// CycleResponse wraps a cycle with its criteria
type CycleResponse struct {
	models.Cycle
	Criteria []models.Criterion `json:"criteria,omitempty"`
}

// HistoryResponse bundles the immutable snapshots of a finalized cycle
type HistoryResponse struct {
	Nominations []models.NominationSnapshot `json:"nominations"`
	Rankings    []models.RankingSnapshot    `json:"rankings"`
}
