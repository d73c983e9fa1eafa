package routetypes

// (CompareResult and the rest of this file are grounded on
// MetricVectorUtils::compareMetricVectors, see DESIGN.md.)

// CompareResult is the outcome of comparing a candidate metric vector
// against the current best one. CompareLooser ("b outright beats a on a
// non-tiebreaker entity") is not named in spec.md §4.3.1's prose, but is
// the implicit fifth case the "WINNER/TIE_WINNER/TIE_LOOSER/TIE/ERROR"
// walk needs: the caller's switch simply does nothing for it, leaving
// the existing best in place.
type CompareResult int

const (
	CompareWinner CompareResult = iota
	CompareTieWinner
	CompareTieLooser
	CompareLooser
	CompareTie
	CompareError
)

// GetMetricEntityByType returns the entity of the given type, if present.
func GetMetricEntityByType(mv MetricVector, t MetricEntityType) (MetricEntity, bool) {
	for _, e := range mv.Metrics {
		if e.Type == t {
			return e, true
		}
	}
	return MetricEntity{}, false
}

type valueCompare int

const (
	leftWins valueCompare = iota
	rightWins
	tieValues
)

// compareValues compares two same-priority entities element-wise; the
// first differing element decides, higher value wins. Metrics where a
// smaller raw measurement is better (e.g. IGP distance) are expected to
// negate their value before being placed in the vector, the way
// OPENR_IGP_COST does (spec.md §4.3.2) — compareValues itself always
// prefers the larger number.
func compareValues(a, b MetricEntity) valueCompare {
	n := min(len(a.Values), len(b.Values))
	for i := 0; i < n; i++ {
		if a.Values[i] > b.Values[i] {
			return leftWins
		}
		if a.Values[i] < b.Values[i] {
			return rightWins
		}
	}
	switch {
	case len(a.Values) == len(b.Values):
		return tieValues
	case len(a.Values) > len(b.Values):
		return leftWins
	default:
		return rightWins
	}
}

// CompareMetricVectors implements the element-wise, priority-ordered
// comparison rule of spec.md §4.3.1: entities are walked from highest
// priority to lowest; the first entity that distinguishes the two
// vectors decides the outcome unless it is flagged as a tie breaker (in
// which case the result is TIE_WINNER/TIE_LOOSER rather than an outright
// WINNER/LOOSER); an entity present on only one side is resolved by its
// CompareType; mismatched entities at the same priority, or two vectors
// that are identical in every entity that was compared, are an ERROR or
// a TIE respectively.
func CompareMetricVectors(a, b MetricVector) CompareResult {
	byPriorityA := indexByPriority(a)
	byPriorityB := indexByPriority(b)
	priorities := mergedDescendingPriorities(byPriorityA, byPriorityB)

	for _, p := range priorities {
		ea, hasA := byPriorityA[p]
		eb, hasB := byPriorityB[p]

		switch {
		case hasA && hasB:
			if ea.Type != eb.Type || ea.CompareType != eb.CompareType {
				return CompareError
			}
			switch cmp := compareValues(ea, eb); cmp {
			case tieValues:
				continue
			case leftWins:
				if ea.IsBestPathTieBreaker {
					return CompareTieWinner
				}
				return CompareWinner
			default: // rightWins
				if ea.IsBestPathTieBreaker {
					return CompareTieLooser
				}
				return CompareLooser
			}
		case hasA && !hasB:
			present := ea.CompareType == CompareTypeWinIfPresent
			if ea.IsBestPathTieBreaker {
				if present {
					return CompareTieWinner
				}
				return CompareTieLooser
			}
			if present {
				return CompareWinner
			}
			return CompareLooser
		case !hasA && hasB:
			present := eb.CompareType == CompareTypeWinIfPresent
			if eb.IsBestPathTieBreaker {
				if present {
					return CompareTieLooser
				}
				return CompareTieWinner
			}
			if present {
				return CompareLooser
			}
			return CompareWinner
		}
	}
	return CompareTie
}

func indexByPriority(mv MetricVector) map[int64]MetricEntity {
	m := make(map[int64]MetricEntity, len(mv.Metrics))
	for _, e := range mv.Metrics {
		m[e.Priority] = e
	}
	return m
}

// mergedDescendingPriorities walks higher-priority entities first, so
// that a synthetic low-priority entity like OPENR_IGP_COST only breaks
// ties among otherwise-equal candidates.
func mergedDescendingPriorities(a, b map[int64]MetricEntity) []int64 {
	seen := make(map[int64]bool, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for p := range a {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for p := range b {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] > out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// CreateMetricEntity mirrors the original's MetricVectorUtils helper.
func CreateMetricEntity(t MetricEntityType, priority int64, cmp CompareType, isTieBreaker bool, values []int64) MetricEntity {
	return MetricEntity{
		Type:                 t,
		Priority:             priority,
		CompareType:          cmp,
		IsBestPathTieBreaker: isTieBreaker,
		Values:               values,
	}
}
