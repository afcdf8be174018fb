package services_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/errors"
	"github.com/abarnes/kudos/internal/models"
	"github.com/abarnes/kudos/internal/services"
)

func intPtr(v int) *int { return &v }

func textCriterion(name string, weight float64, required bool) models.Criterion {
	return models.Criterion{
		ID:      uuid.New(),
		CycleID: uuid.New(),
		Name:    name,
		Weight:  weight,
		Active:  true,
		Config:  &models.CriterionConfig{Type: models.CriterionTypeText, Required: required},
	}
}

func TestNormalizeScore_LegacyScoreWins(t *testing.T) {
	crit := textCriterion("Leadership", 0.6, true)
	score := models.CriterionScore{
		CriterionID: crit.ID,
		Score:       intPtr(8),
		Answer:      &models.Answer{Text: "also answered"},
	}

	got, err := services.NormalizeScore(crit, score, nil)
	if err != nil {
		t.Fatalf("NormalizeScore failed: %v", err)
	}
	if got != 8 {
		t.Errorf("expected legacy score 8 to win, got %v", got)
	}
}

func TestNormalizeScore_TextPresence(t *testing.T) {
	crit := textCriterion("Impact", 0.5, true)

	got, err := services.NormalizeScore(crit, models.CriterionScore{
		CriterionID: crit.ID,
		Answer:      &models.Answer{Text: "saved the quarter"},
	}, nil)
	if err != nil {
		t.Fatalf("NormalizeScore failed: %v", err)
	}
	if got != services.MaxContribution {
		t.Errorf("expected completeness signal %v, got %v", services.MaxContribution, got)
	}

	// Required criterion with an empty answer fails
	_, err = services.NormalizeScore(crit, models.CriterionScore{
		CriterionID: crit.ID,
		Answer:      &models.Answer{},
	}, nil)
	if !errors.Is(err, errors.ErrMissingAnswer) {
		t.Errorf("expected MissingAnswer, got %v", err)
	}
}

func TestNormalizeScore_TextWithImage(t *testing.T) {
	crit := models.Criterion{
		ID:     uuid.New(),
		Name:   "Evidence",
		Weight: 1,
		Active: true,
		Config: &models.CriterionConfig{
			Type:          models.CriterionTypeTextWithImage,
			Required:      true,
			ImageRequired: true,
		},
	}

	_, err := services.NormalizeScore(crit, models.CriterionScore{
		CriterionID: crit.ID,
		Answer:      &models.Answer{Text: "see attached"},
	}, nil)
	if !errors.Is(err, errors.ErrMissingAnswer) {
		t.Errorf("expected MissingAnswer without image, got %v", err)
	}

	got, err := services.NormalizeScore(crit, models.CriterionScore{
		CriterionID: crit.ID,
		Answer:      &models.Answer{Text: "see attached", ImageURL: "https://img.example/1.png"},
	}, nil)
	if err != nil {
		t.Fatalf("NormalizeScore failed: %v", err)
	}
	if got != services.MaxContribution {
		t.Errorf("expected %v, got %v", services.MaxContribution, got)
	}
}

func TestNormalizeScore_SelectWithValues(t *testing.T) {
	crit := models.Criterion{
		ID:     uuid.New(),
		Name:   "Scope",
		Weight: 1,
		Active: true,
		Config: &models.CriterionConfig{
			Type:     models.CriterionTypeSingleSelect,
			Options:  []string{"team", "org", "company"},
			Required: true,
		},
	}
	values := services.OptionValues{"team": 3, "org": 6, "company": 10}

	got, err := services.NormalizeScore(crit, models.CriterionScore{
		CriterionID: crit.ID,
		Answer:      &models.Answer{Selected: "org"},
	}, values)
	if err != nil {
		t.Fatalf("NormalizeScore failed: %v", err)
	}
	if got != 6 {
		t.Errorf("expected 6, got %v", got)
	}

	// Unknown option with a table installed is an error
	_, err = services.NormalizeScore(crit, models.CriterionScore{
		CriterionID: crit.ID,
		Answer:      &models.Answer{Selected: "galaxy"},
	}, values)
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected InvalidInput for unknown option, got %v", err)
	}

	// Without a table, selection counts as presence
	got, err = services.NormalizeScore(crit, models.CriterionScore{
		CriterionID: crit.ID,
		Answer:      &models.Answer{Selected: "team"},
	}, nil)
	if err != nil {
		t.Fatalf("NormalizeScore failed: %v", err)
	}
	if got != services.MaxContribution {
		t.Errorf("expected presence signal, got %v", got)
	}
}

func TestNormalizeScore_MultiSelectMean(t *testing.T) {
	crit := models.Criterion{
		ID:     uuid.New(),
		Name:   "Values",
		Weight: 1,
		Active: true,
		Config: &models.CriterionConfig{
			Type:    models.CriterionTypeMultiSelect,
			Options: []string{"kind", "bold", "curious"},
		},
	}
	values := services.OptionValues{"kind": 4, "bold": 6, "curious": 8}

	got, err := services.NormalizeScore(crit, models.CriterionScore{
		CriterionID: crit.ID,
		Answer:      &models.Answer{SelectedList: []string{"kind", "curious"}},
	}, values)
	if err != nil {
		t.Fatalf("NormalizeScore failed: %v", err)
	}
	if got != 6 {
		t.Errorf("expected mean 6, got %v", got)
	}
}

func TestAggregateNomination_WeightedTotal(t *testing.T) {
	leadership := textCriterion("Leadership", 0.6, true)
	teamwork := textCriterion("Teamwork", 0.4, true)
	criteria := []models.Criterion{leadership, teamwork}

	scores := []models.CriterionScore{
		{CriterionID: leadership.ID, Score: intPtr(8)},
		{CriterionID: teamwork.ID, Score: intPtr(6)},
	}

	total, err := services.AggregateNomination(criteria, scores, nil)
	if err != nil {
		t.Fatalf("AggregateNomination failed: %v", err)
	}
	if total != 7.2 {
		t.Errorf("expected 8*0.6 + 6*0.4 = 7.2, got %v", total)
	}

	// Aggregating the same data again yields an identical total
	again, err := services.AggregateNomination(criteria, scores, nil)
	if err != nil {
		t.Fatalf("AggregateNomination failed: %v", err)
	}
	if total != again {
		t.Errorf("aggregation is not deterministic: %v vs %v", total, again)
	}
}

func TestAggregateNomination_Incomplete(t *testing.T) {
	leadership := textCriterion("Leadership", 0.6, true)
	teamwork := textCriterion("Teamwork", 0.4, true)

	_, err := services.AggregateNomination(
		[]models.Criterion{leadership, teamwork},
		[]models.CriterionScore{{CriterionID: leadership.ID, Score: intPtr(8)}},
		nil,
	)
	if !errors.Is(err, errors.ErrIncomplete) {
		t.Errorf("expected Incomplete, got %v", err)
	}
}

func TestAggregateNomination_IgnoresInactive(t *testing.T) {
	active := textCriterion("Active", 0.5, true)
	inactive := textCriterion("Retired", 0.5, true)
	inactive.Active = false

	total, err := services.AggregateNomination(
		[]models.Criterion{active, inactive},
		[]models.CriterionScore{{CriterionID: active.ID, Score: intPtr(10)}},
		nil,
	)
	if err != nil {
		t.Fatalf("AggregateNomination failed: %v", err)
	}
	if total != 5 {
		t.Errorf("expected 5 from active criterion only, got %v", total)
	}
}

func TestValidateCriterionSpec(t *testing.T) {
	tests := []struct {
		name    string
		crit    models.Criterion
		wantErr bool
	}{
		{
			name: "valid text",
			crit: textCriterion("Impact", 0.5, true),
		},
		{
			name: "weight above one",
			crit: func() models.Criterion {
				c := textCriterion("Impact", 1.5, true)
				return c
			}(),
			wantErr: true,
		},
		{
			name: "select without options",
			crit: models.Criterion{
				ID: uuid.New(), Name: "Scope", Weight: 0.2, Active: true,
				Config: &models.CriterionConfig{Type: models.CriterionTypeSingleSelect},
			},
			wantErr: true,
		},
		{
			name: "duplicate options",
			crit: models.Criterion{
				ID: uuid.New(), Name: "Scope", Weight: 0.2, Active: true,
				Config: &models.CriterionConfig{
					Type:    models.CriterionTypeMultiSelect,
					Options: []string{"a", "a"},
				},
			},
			wantErr: true,
		},
		{
			name: "text with options",
			crit: models.Criterion{
				ID: uuid.New(), Name: "Story", Weight: 0.2, Active: true,
				Config: &models.CriterionConfig{
					Type:    models.CriterionTypeText,
					Options: []string{"a"},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := services.ValidateCriterionSpec(tt.crit)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCriterionSpec() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
