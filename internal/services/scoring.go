package services

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/abarnes/kudos/internal/errors"
	"github.com/abarnes/kudos/internal/models"
)

const (
	// MaxContribution is the upper bound of a single normalized contribution,
	// matching the 0-10 rating convention of legacy numeric scores.
	MaxContribution = 10.0

	// scorePrecision rounds totals so repeated aggregation of the same data
	// yields bit-identical values regardless of summation noise.
	scorePrecision = 1e4
)

// OptionValues maps a select criterion's option labels to numeric values in
// [0, 10]. It is supplied per criterion by the caller; without one, select
// answers are treated as a presence signal like free text.
type OptionValues map[string]float64

// ScoringTable maps criterion IDs to their option value tables.
type ScoringTable map[uuid.UUID]OptionValues

// NormalizeScore converts one criterion score into a numeric contribution in
// [0, MaxContribution]. A legacy numeric score always wins over a structured
// answer. Text answers carry no inherent numeric value, so a present answer
// yields the maximum as a completeness signal; the human quality judgment
// lives in the approval rating, not here.
func NormalizeScore(crit models.Criterion, score models.CriterionScore, values OptionValues) (float64, error) {
	if score.Score != nil {
		return clampContribution(float64(*score.Score)), nil
	}

	required := crit.Config != nil && crit.Config.Required
	if score.Answer == nil {
		if required {
			return 0, errors.MissingAnswerf("criterion %q requires an answer", crit.Name)
		}
		return 0, nil
	}

	critType := models.CriterionTypeText
	if crit.Config != nil && crit.Config.Type != "" {
		critType = crit.Config.Type
	}

	switch critType {
	case models.CriterionTypeText:
		return presenceSignal(score.Answer.Text != "", required, crit.Name)

	case models.CriterionTypeTextWithImage:
		present := score.Answer.Text != ""
		if crit.Config != nil && crit.Config.ImageRequired {
			present = present && score.Answer.ImageURL != ""
		}
		return presenceSignal(present, required, crit.Name)

	case models.CriterionTypeSingleSelect:
		selected := score.Answer.Selected
		if selected == "" {
			return presenceSignal(false, required, crit.Name)
		}
		if values == nil {
			return MaxContribution, nil
		}
		v, ok := values[selected]
		if !ok {
			return 0, errors.InvalidInputf("option %q has no value for criterion %q", selected, crit.Name)
		}
		return clampContribution(v), nil

	case models.CriterionTypeMultiSelect:
		if len(score.Answer.SelectedList) == 0 {
			return presenceSignal(false, required, crit.Name)
		}
		if values == nil {
			return MaxContribution, nil
		}
		var sum float64
		for _, selected := range score.Answer.SelectedList {
			v, ok := values[selected]
			if !ok {
				return 0, errors.InvalidInputf("option %q has no value for criterion %q", selected, crit.Name)
			}
			sum += v
		}
		return clampContribution(sum / float64(len(score.Answer.SelectedList))), nil

	default:
		return 0, errors.InvalidInputf("unknown criterion type %q", critType)
	}
}

func presenceSignal(present, required bool, name string) (float64, error) {
	if present {
		return MaxContribution, nil
	}
	if required {
		return 0, errors.MissingAnswerf("criterion %q requires an answer", name)
	}
	return 0, nil
}

func clampContribution(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > MaxContribution {
		return MaxContribution
	}
	return v
}

// AggregateNomination produces the weighted total for one nomination against
// the cycle's active criteria. Aggregation is all-or-nothing: a missing score
// for any active criterion fails with Incomplete rather than producing a
// partial total.
func AggregateNomination(criteria []models.Criterion, scores []models.CriterionScore, table ScoringTable) (float64, error) {
	byID := make(map[uuid.UUID]models.CriterionScore, len(scores))
	for _, score := range scores {
		byID[score.CriterionID] = score
	}

	var total float64
	for _, crit := range criteria {
		if !crit.Active {
			continue
		}
		score, ok := byID[crit.ID]
		if !ok {
			return 0, errors.Incompletef("no score for active criterion %q", crit.Name)
		}
		contribution, err := NormalizeScore(crit, score, table[crit.ID])
		if err != nil {
			return 0, err
		}
		total += contribution * crit.Weight
	}
	return roundScore(total), nil
}

// roundScore truncates float noise so equal inputs always compare equal
// during tie detection.
func roundScore(v float64) float64 {
	return math.Round(v*scorePrecision) / scorePrecision
}

// ValidateCriterionSpec checks a criterion definition before it is persisted.
func ValidateCriterionSpec(crit models.Criterion) error {
	if strings.TrimSpace(crit.Name) == "" {
		return errors.InvalidInput("criterion name is required")
	}
	if crit.Weight < 0 || crit.Weight > 1 {
		return errors.InvalidInputf("criterion %q weight must be in [0, 1]", crit.Name)
	}
	if crit.Config == nil {
		return nil
	}
	switch crit.Config.Type {
	case models.CriterionTypeText, models.CriterionTypeTextWithImage:
		if len(crit.Config.Options) > 0 {
			return errors.InvalidInputf("criterion %q: options are only valid for select types", crit.Name)
		}
	case models.CriterionTypeSingleSelect, models.CriterionTypeMultiSelect:
		if len(crit.Config.Options) == 0 {
			return errors.InvalidInputf("criterion %q: select types need at least one option", crit.Name)
		}
		seen := make(map[string]bool, len(crit.Config.Options))
		for _, opt := range crit.Config.Options {
			if strings.TrimSpace(opt) == "" {
				return errors.InvalidInputf("criterion %q: empty option label", crit.Name)
			}
			if seen[opt] {
				return errors.InvalidInputf("criterion %q: duplicate option %q", crit.Name, opt)
			}
			seen[opt] = true
		}
	case "":
		return errors.InvalidInputf("criterion %q: config type is required", crit.Name)
	default:
		return errors.InvalidInputf("criterion %q: unknown type %q", crit.Name, crit.Config.Type)
	}
	return nil
}
