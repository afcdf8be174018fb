package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *Repository, role models.Role) models.User {
	t.Helper()
	user := models.User{
		ID:    uuid.New(),
		Name:  "User",
		Email: uuid.New().String() + "@example.com",
		Role:  role,
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedCycle(t *testing.T, repo *Repository, status models.CycleStatus) models.Cycle {
	t.Helper()
	hr := seedUser(t, repo, models.RoleHR)
	cycle := models.Cycle{
		ID:        uuid.New(),
		Name:      "Cycle " + uuid.New().String()[:8],
		StartAt:   time.Now().Add(-time.Hour).UTC(),
		EndAt:     time.Now().Add(time.Hour).UTC(),
		Status:    status,
		CreatedBy: hr.ID,
	}
	if err := repo.CreateCycle(context.Background(), cycle); err != nil {
		t.Fatalf("failed to seed cycle: %v", err)
	}
	return cycle
}

func seedNomination(t *testing.T, repo *Repository, cycleID uuid.UUID, status models.NominationStatus) models.Nomination {
	t.Helper()
	nominee := seedUser(t, repo, models.RoleEmployee)
	submitter := seedUser(t, repo, models.RoleTeamLead)
	score := 8
	nom := models.Nomination{
		ID:          uuid.New(),
		CycleID:     cycleID,
		NomineeID:   nominee.ID,
		SubmittedBy: submitter.ID,
		SubmittedAt: time.Now().UTC(),
		Status:      status,
		Scores: []models.CriterionScore{{
			ID:          uuid.New(),
			CriterionID: seedCriterion(t, repo, cycleID).ID,
			Score:       &score,
			Comment:     "solid quarter",
		}},
	}
	nom.Scores[0].NominationID = nom.ID
	if err := repo.CreateNomination(context.Background(), nom); err != nil {
		t.Fatalf("failed to seed nomination: %v", err)
	}
	return nom
}

func seedCriterion(t *testing.T, repo *Repository, cycleID uuid.UUID) models.Criterion {
	t.Helper()
	crit := models.Criterion{
		ID:      uuid.New(),
		CycleID: cycleID,
		Name:    "Criterion " + uuid.New().String()[:8],
		Weight:  0.5,
		Active:  true,
		Config:  &models.CriterionConfig{Type: models.CriterionTypeText, Required: true},
	}
	if err := repo.AddCriteria(context.Background(), []models.Criterion{crit}); err != nil {
		t.Fatalf("failed to seed criterion: %v", err)
	}
	return crit
}

func TestRepository_UpdateCycleStatus_Guarded(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cycle := seedCycle(t, repo, models.CycleDraft)

	if err := repo.UpdateCycleStatus(ctx, cycle.ID, models.CycleDraft, models.CycleOpen); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}

	// A second caller still assuming DRAFT loses
	err := repo.UpdateCycleStatus(ctx, cycle.ID, models.CycleDraft, models.CycleOpen)
	if err != ErrStaleState {
		t.Errorf("expected ErrStaleState, got %v", err)
	}

	stored, err := repo.GetCycle(ctx, cycle.ID)
	if err != nil {
		t.Fatalf("GetCycle failed: %v", err)
	}
	if stored.Status != models.CycleOpen {
		t.Errorf("expected OPEN, got %s", stored.Status)
	}
}

func TestRepository_CreateNomination_UniqueTriple(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cycle := seedCycle(t, repo, models.CycleOpen)
	nom := seedNomination(t, repo, cycle.ID, models.NominationPending)

	dup := nom
	dup.ID = uuid.New()
	dup.Scores = nil
	err := repo.CreateNomination(ctx, dup)
	if err != ErrDuplicate {
		t.Errorf("expected ErrDuplicate for same (cycle, nominee, submitter), got %v", err)
	}
}

func TestRepository_CreateNomination_RollsBackOnScoreFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cycle := seedCycle(t, repo, models.CycleOpen)
	crit := seedCriterion(t, repo, cycle.ID)
	nominee := seedUser(t, repo, models.RoleEmployee)
	submitter := seedUser(t, repo, models.RoleTeamLead)

	score := 8
	shared := models.CriterionScore{ID: uuid.New(), CriterionID: crit.ID, Score: &score}
	nom := models.Nomination{
		ID:          uuid.New(),
		CycleID:     cycle.ID,
		NomineeID:   nominee.ID,
		SubmittedBy: submitter.ID,
		SubmittedAt: time.Now().UTC(),
		Status:      models.NominationPending,
		// Two scores for the same criterion violate the per-nomination
		// uniqueness constraint on the second insert
		Scores: []models.CriterionScore{shared, {ID: uuid.New(), CriterionID: crit.ID, Score: &score}},
	}
	for i := range nom.Scores {
		nom.Scores[i].NominationID = nom.ID
	}

	if err := repo.CreateNomination(ctx, nom); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// The nomination row itself must not survive
	if _, err := repo.GetNomination(ctx, nom.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after rollback, got %v", err)
	}
}

func TestRepository_SetNominationStatus_Guarded(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cycle := seedCycle(t, repo, models.CycleOpen)
	nom := seedNomination(t, repo, cycle.ID, models.NominationPending)

	if err := repo.SetNominationStatus(ctx, nom.ID, models.NominationApproved); err != nil {
		t.Fatalf("first decision failed: %v", err)
	}
	err := repo.SetNominationStatus(ctx, nom.ID, models.NominationRejected)
	if err != ErrStaleState {
		t.Errorf("expected ErrStaleState on second decision, got %v", err)
	}
}

func TestRepository_ReplaceRankings_ReplacesScope(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cycle := seedCycle(t, repo, models.CycleClosed)
	nominee := seedUser(t, repo, models.RoleEmployee)

	entry := func(total float64, rank int) models.Ranking {
		return models.Ranking{
			ID:         uuid.New(),
			CycleID:    cycle.ID,
			NomineeID:  nominee.ID,
			TotalScore: total,
			Rank:       rank,
			ComputedAt: time.Now().UTC(),
		}
	}

	if err := repo.ReplaceRankings(ctx, cycle.ID, nil, []models.Ranking{entry(9, 1), entry(8, 2)}); err != nil {
		t.Fatalf("first replace failed: %v", err)
	}
	if err := repo.ReplaceRankings(ctx, cycle.ID, nil, []models.Ranking{entry(7, 1)}); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}

	stored, err := repo.ListRankings(ctx, cycle.ID, nil)
	if err != nil {
		t.Fatalf("ListRankings failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", len(stored))
	}
	if stored[0].TotalScore != 7 {
		t.Errorf("expected surviving total 7, got %v", stored[0].TotalScore)
	}
}

func TestRepository_FinalizeCycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cycle := seedCycle(t, repo, models.CycleClosed)
	nom := seedNomination(t, repo, cycle.ID, models.NominationApproved)

	ranking := models.Ranking{
		ID:         uuid.New(),
		CycleID:    cycle.ID,
		NomineeID:  nom.NomineeID,
		TotalScore: 8,
		Rank:       1,
		ComputedAt: time.Now().UTC(),
	}
	snapshotAt := time.Now().UTC()

	err := repo.FinalizeCycle(ctx, cycle.ID, []models.Nomination{nom}, []models.Ranking{ranking}, snapshotAt)
	if err != nil {
		t.Fatalf("FinalizeCycle failed: %v", err)
	}

	stored, err := repo.GetCycle(ctx, cycle.ID)
	if err != nil {
		t.Fatalf("GetCycle failed: %v", err)
	}
	if stored.Status != models.CycleFinalized {
		t.Errorf("expected FINALIZED, got %s", stored.Status)
	}

	nomSnaps, err := repo.ListNominationSnapshots(ctx, cycle.ID)
	if err != nil {
		t.Fatalf("ListNominationSnapshots failed: %v", err)
	}
	if len(nomSnaps) != 1 {
		t.Fatalf("expected 1 nomination snapshot, got %d", len(nomSnaps))
	}
	if len(nomSnaps[0].Scores) != 1 || nomSnaps[0].Scores[0].Comment != "solid quarter" {
		t.Errorf("snapshot scores not preserved: %+v", nomSnaps[0].Scores)
	}

	rankSnaps, err := repo.ListRankingSnapshots(ctx, cycle.ID)
	if err != nil {
		t.Fatalf("ListRankingSnapshots failed: %v", err)
	}
	if len(rankSnaps) != 1 || rankSnaps[0].Rank != 1 {
		t.Errorf("expected 1 ranking snapshot with rank 1, got %+v", rankSnaps)
	}

	// Only one finalize wins
	err = repo.FinalizeCycle(ctx, cycle.ID, nil, nil, snapshotAt)
	if err != ErrStaleState {
		t.Errorf("expected ErrStaleState on second finalize, got %v", err)
	}
	// The losing call must not have touched the snapshots
	nomSnaps, err = repo.ListNominationSnapshots(ctx, cycle.ID)
	if err != nil {
		t.Fatalf("ListNominationSnapshots failed: %v", err)
	}
	if len(nomSnaps) != 1 {
		t.Errorf("snapshots changed after failed finalize: %d", len(nomSnaps))
	}
}

func TestRepository_FinalizeCycle_RequiresClosed(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, status := range []models.CycleStatus{models.CycleDraft, models.CycleOpen, models.CycleFinalized} {
		cycle := seedCycle(t, repo, status)
		err := repo.FinalizeCycle(ctx, cycle.ID, nil, nil, time.Now().UTC())
		if err != ErrStaleState {
			t.Errorf("finalize on %s: expected ErrStaleState, got %v", status, err)
		}
	}
}

func TestRepository_ListApprovedNominations_FiltersByTeam(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cycle := seedCycle(t, repo, models.CycleClosed)

	team := models.Team{ID: uuid.New(), Name: "Platform"}
	if err := repo.CreateTeam(ctx, team); err != nil {
		t.Fatalf("failed to seed team: %v", err)
	}

	inTeam := seedNomination(t, repo, cycle.ID, models.NominationApproved)
	_, err := repo.DB().ExecContext(ctx, "UPDATE nominations SET team_id = ? WHERE id = ?",
		team.ID.String(), inTeam.ID.String())
	if err != nil {
		t.Fatalf("failed to assign team: %v", err)
	}
	seedNomination(t, repo, cycle.ID, models.NominationApproved)

	got, err := repo.ListApprovedNominations(ctx, cycle.ID, &team.ID)
	if err != nil {
		t.Fatalf("ListApprovedNominations failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 team-scoped nomination, got %d", len(got))
	}
	if got[0].ID != inTeam.ID {
		t.Errorf("wrong nomination returned")
	}
	if len(got[0].Scores) != 1 {
		t.Errorf("expected scores to be loaded, got %d", len(got[0].Scores))
	}
}

func TestRepository_ListCycleNominations_AllStatuses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cycle := seedCycle(t, repo, models.CycleClosed)
	other := seedCycle(t, repo, models.CycleClosed)

	want := map[uuid.UUID]models.NominationStatus{}
	for _, status := range []models.NominationStatus{
		models.NominationApproved, models.NominationRejected, models.NominationPending,
	} {
		nom := seedNomination(t, repo, cycle.ID, status)
		want[nom.ID] = status
	}
	seedNomination(t, repo, other.ID, models.NominationApproved)

	got, err := repo.ListCycleNominations(ctx, cycle.ID)
	if err != nil {
		t.Fatalf("ListCycleNominations failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 of the cycle's nominations, got %d", len(got))
	}
	for _, nom := range got {
		status, ok := want[nom.ID]
		if !ok {
			t.Errorf("unexpected nomination %s in result", nom.ID)
			continue
		}
		if nom.Status != status {
			t.Errorf("nomination %s: expected status %s, got %s", nom.ID, status, nom.Status)
		}
		if len(nom.Scores) != 1 {
			t.Errorf("nomination %s: expected scores to be loaded, got %d", nom.ID, len(nom.Scores))
		}
	}
}

func TestRepository_CriterionConfigRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cycle := seedCycle(t, repo, models.CycleDraft)

	crit := models.Criterion{
		ID:      uuid.New(),
		CycleID: cycle.ID,
		Name:    "Scope",
		Weight:  0.3,
		Active:  true,
		Config: &models.CriterionConfig{
			Type:     models.CriterionTypeMultiSelect,
			Options:  []string{"team", "org", "company"},
			Required: true,
		},
	}
	if err := repo.AddCriteria(ctx, []models.Criterion{crit}); err != nil {
		t.Fatalf("AddCriteria failed: %v", err)
	}

	stored, err := repo.GetCriterion(ctx, crit.ID)
	if err != nil {
		t.Fatalf("GetCriterion failed: %v", err)
	}
	if stored.Config == nil || stored.Config.Type != models.CriterionTypeMultiSelect {
		t.Fatalf("config not preserved: %+v", stored.Config)
	}
	if len(stored.Config.Options) != 3 || stored.Config.Options[1] != "org" {
		t.Errorf("options not preserved: %v", stored.Config.Options)
	}
}
