package suggestion

// Classify maps an availability score and the missing-mandatory count to a
// match tier and its display reason. It is a pure function of its inputs:
// identical arguments always classify identically, and at fixed thresholds
// the tier is monotonic in score. Threshold lower bounds are inclusive, so
// a score exactly at a cut point takes the higher tier.
//
// Perfect additionally requires a complete mandatory set: a meal can score
// above the perfect threshold on recommended/optional coverage alone in
// lenient mode and still not be cookable as written.
func Classify(score float64, missingMandatory int, t Thresholds) (MatchType, Reason) {
	switch {
	case score >= t.PerfectMatch && missingMandatory == 0:
		return MatchPerfect, ReasonPerfectMatch
	case score >= t.GoodMatch:
		return MatchGood, ReasonGoodMatch
	case score >= t.MinimumViable:
		return MatchPartial, ReasonPartialMatch
	default:
		return MatchPoor, ReasonPoorMatch
	}
}

// Viable reports whether a match tier belongs in default suggestion lists.
// Poor matches are retained only for the pantry-based near-miss analysis.
func Viable(m MatchType) bool {
	switch m {
	case MatchPerfect, MatchGood, MatchPartial:
		return true
	case MatchPoor:
		return false
	default:
		return false
	}
}
