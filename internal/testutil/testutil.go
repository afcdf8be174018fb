package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/models"
	"github.com/abarnes/kudos/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SeedUser inserts a user with the given role and returns it
func SeedUser(t *testing.T, repo *repository.Repository, role models.Role) models.User {
	t.Helper()

	user := models.User{
		ID:    uuid.New(),
		Name:  "Test " + string(role),
		Email: uuid.New().String() + "@example.com",
		Role:  role,
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// SeedCycle inserts a cycle in the given status and returns it
func SeedCycle(t *testing.T, repo *repository.Repository, status models.CycleStatus, createdBy uuid.UUID) models.Cycle {
	t.Helper()

	cycle := models.Cycle{
		ID:        uuid.New(),
		Name:      "Cycle " + uuid.New().String()[:8],
		StartAt:   time.Now().Add(-24 * time.Hour),
		EndAt:     time.Now().Add(24 * time.Hour),
		Status:    status,
		CreatedBy: createdBy,
	}
	if err := repo.CreateCycle(context.Background(), cycle); err != nil {
		t.Fatalf("failed to seed cycle: %v", err)
	}
	return cycle
}

// SeedCriterion inserts one active weighted criterion and returns it
func SeedCriterion(t *testing.T, repo *repository.Repository, cycleID uuid.UUID, name string, weight float64) models.Criterion {
	t.Helper()

	crit := models.Criterion{
		ID:      uuid.New(),
		CycleID: cycleID,
		Name:    name,
		Weight:  weight,
		Active:  true,
		Config:  &models.CriterionConfig{Type: models.CriterionTypeText, Required: true},
	}
	if err := repo.AddCriteria(context.Background(), []models.Criterion{crit}); err != nil {
		t.Fatalf("failed to seed criterion: %v", err)
	}
	return crit
}
