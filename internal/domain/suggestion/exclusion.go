package suggestion

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ExclusionResult reports what the recency policy kept, removed, and
// relaxed, so response metadata can explain the pool size.
type ExclusionResult struct {
	Kept []Candidate

	// Excluded counts candidates removed by recency and not restored.
	Excluded int

	// Relaxed counts exclusions undone by the pool-size fallback.
	Relaxed int
}

// exclusion pairs a removed candidate with the timestamp that triggered
// its removal, so fallback can relax the oldest exclusions first.
type exclusion struct {
	cand        Candidate
	triggeredAt time.Time
}

// RecencyPolicy suppresses meals the user recently cooked or was repeatedly
// shown, to keep suggestions varied.
type RecencyPolicy struct {
	limits Limits
}

// NewRecencyPolicy creates a policy bound to one config snapshot's limits.
func NewRecencyPolicy(limits Limits) *RecencyPolicy {
	return &RecencyPolicy{limits: limits}
}

// Apply filters the candidate pool against the user's recent history.
//
// A meal is excluded when it was selected (cooked) within the window, or
// when it was suggested but never selected more than the configured
// number of consecutive times within the window. A selection resets the
// consecutive-suggestion streak: meals the user acts on are governed only
// by the selection rule, and meals the user ignores are not punished
// forever.
//
// Fallback: if exclusion would leave fewer than
// min(limits.MaxSuggestions, len(candidates)) meals, exclusions are
// relaxed oldest-first until the pool is large enough or none remain.
// Relaxed candidates are flagged RecencyExcluded so callers can see they
// survived only through the fallback; the ranker still applies their
// recency penalty.
func (p *RecencyPolicy) Apply(candidates []Candidate, history []HistoryEntry, now time.Time) ExclusionResult {
	window := time.Duration(p.limits.RecentExclusionDays) * 24 * time.Hour
	cutoff := now.Add(-window)

	byMeal := groupByMeal(history, cutoff)

	var result ExclusionResult
	var removed []exclusion
	for _, cand := range candidates {
		entries := byMeal[cand.MealID]
		if triggeredAt, excluded := p.shouldExclude(entries); excluded {
			removed = append(removed, exclusion{cand: cand, triggeredAt: triggeredAt})
			continue
		}
		result.Kept = append(result.Kept, cand)
	}

	// Pool-size fallback: relax oldest exclusions first.
	minPool := p.limits.MaxSuggestions
	if len(candidates) < minPool {
		minPool = len(candidates)
	}
	sort.Slice(removed, func(i, j int) bool {
		if !removed[i].triggeredAt.Equal(removed[j].triggeredAt) {
			return removed[i].triggeredAt.Before(removed[j].triggeredAt)
		}
		return removed[i].cand.MealID.String() < removed[j].cand.MealID.String()
	})
	for len(result.Kept) < minPool && len(removed) > 0 {
		relaxed := removed[0].cand
		relaxed.RecencyExcluded = true
		result.Kept = append(result.Kept, relaxed)
		removed = removed[1:]
		result.Relaxed++
	}

	result.Excluded = len(removed)
	return result
}

// shouldExclude evaluates one meal's in-window history. The returned
// timestamp orders fallback relaxation (oldest trigger relaxes first).
func (p *RecencyPolicy) shouldExclude(entries []HistoryEntry) (time.Time, bool) {
	if len(entries) == 0 {
		return time.Time{}, false
	}

	// Selection rule: cooked within the window.
	var latestSelection time.Time
	for _, e := range entries {
		if e.WasSelected && e.SelectedAt != nil && e.SelectedAt.After(latestSelection) {
			latestSelection = *e.SelectedAt
		}
	}
	if !latestSelection.IsZero() {
		return latestSelection, true
	}

	// Staleness rule: trailing run of suggested-not-selected entries.
	streak := 0
	var lastSuggested time.Time
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].WasSelected {
			break
		}
		streak++
		if entries[i].SuggestedAt.After(lastSuggested) {
			lastSuggested = entries[i].SuggestedAt
		}
	}
	if streak > p.limits.MaxConsecutiveSuggestions {
		return lastSuggested, true
	}

	return time.Time{}, false
}

// groupByMeal indexes in-window history entries per meal, ordered by
// suggestion time ascending so streak scans see chronological order.
func groupByMeal(history []HistoryEntry, cutoff time.Time) map[uuid.UUID][]HistoryEntry {
	byMeal := make(map[uuid.UUID][]HistoryEntry)
	for _, e := range history {
		inWindow := e.SuggestedAt.After(cutoff) ||
			(e.WasSelected && e.SelectedAt != nil && e.SelectedAt.After(cutoff))
		if !inWindow {
			continue
		}
		byMeal[e.MealID] = append(byMeal[e.MealID], e)
	}
	for id := range byMeal {
		entries := byMeal[id]
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].SuggestedAt.Before(entries[j].SuggestedAt)
		})
		byMeal[id] = entries
	}
	return byMeal
}

// LastSuggestedIndex maps each meal to its most recent suggestion time
// within the window. The ranker uses it for penalty decay.
func LastSuggestedIndex(history []HistoryEntry, now time.Time, recentExclusionDays int) map[uuid.UUID]time.Time {
	cutoff := now.Add(-time.Duration(recentExclusionDays) * 24 * time.Hour)
	index := make(map[uuid.UUID]time.Time)
	for _, e := range history {
		if !e.SuggestedAt.After(cutoff) {
			continue
		}
		if last, ok := index[e.MealID]; !ok || e.SuggestedAt.After(last) {
			index[e.MealID] = e.SuggestedAt
		}
	}
	return index
}
