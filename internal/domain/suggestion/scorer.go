package suggestion

import (
	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/domain/pantry"
)

// ScoreResult is the availability scorer's output for one meal.
type ScoreResult struct {
	Score            float64
	Missing          []meal.IngredientRequirement
	MissingMandatory int

	// Disqualified is set in strict mode when a mandatory ingredient is
	// absent; the score is not meaningful in that case.
	Disqualified bool

	// Vacuous is set for meals with zero requirements, which score 100
	// by definition and should be logged upstream as a data error.
	Vacuous bool
}

// Scorer computes availability scores for meals against a pantry snapshot.
// It is stateless and safe for concurrent use.
type Scorer struct {
	weights ScoringWeights
}

// NewScorer creates a scorer with the given tier weights. Zero weights fall
// back to the defaults so a partially configured deployment stays sane.
func NewScorer(weights ScoringWeights) *Scorer {
	if weights.Mandatory+weights.Recommended+weights.Optional <= 0 {
		weights = DefaultAlgorithmConfig().Scoring
	}
	return &Scorer{weights: weights}
}

// Score computes how completely the pantry covers the meal's requirements.
//
// Requirements are partitioned by tier and each tier contributes its
// coverage ratio, weighted. Empty tiers contribute full coverage: the
// max(count, 1) denominator makes 1 - 0/1 = 1, so a meal with no optional
// ingredients is not punished for having none.
func (s *Scorer) Score(def meal.Definition, snap pantry.Snapshot, mode Mode) ScoreResult {
	counts := def.CountRequirements()
	if counts.Total() == 0 {
		return ScoreResult{Score: 100, Vacuous: true}
	}

	var result ScoreResult
	var missingRecommended, missingOptional int
	for _, req := range def.Requirements {
		if snap.Contains(req.IngredientID) {
			continue
		}
		result.Missing = append(result.Missing, req)
		switch req.Status {
		case meal.StatusRecommended:
			missingRecommended++
		case meal.StatusOptional:
			missingOptional++
		default:
			// Unknown tiers were counted as mandatory; keep the
			// buckets consistent with CountRequirements.
			result.MissingMandatory++
		}
	}

	if mode == ModeStrict && result.MissingMandatory > 0 {
		result.Disqualified = true
		return result
	}

	score := 100 * (s.weights.Mandatory*coverage(result.MissingMandatory, counts.Mandatory) +
		s.weights.Recommended*coverage(missingRecommended, counts.Recommended) +
		s.weights.Optional*coverage(missingOptional, counts.Optional))

	result.Score = clampScore(score)
	return result
}

// coverage returns the covered fraction of a tier, guarding the division
// so an empty tier yields full coverage instead of NaN.
func coverage(missing, total int) float64 {
	denom := total
	if denom < 1 {
		denom = 1
	}
	return 1 - float64(missing)/float64(denom)
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
