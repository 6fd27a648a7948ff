package sentiment

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the compound scores of a table. Percentages are in
// [0, 100]. StdCompound is the sample standard deviation and is 0 for fewer
// than two rows.
type Stats struct {
	TotalItems     int     `json:"total_items"`
	PositiveCount  int     `json:"positive_count"`
	NeutralCount   int     `json:"neutral_count"`
	NegativeCount  int     `json:"negative_count"`
	PositivePct    float64 `json:"positive_pct"`
	NeutralPct     float64 `json:"neutral_pct"`
	NegativePct    float64 `json:"negative_pct"`
	AvgCompound    float64 `json:"avg_compound"`
	MedianCompound float64 `json:"median_compound"`
	StdCompound    float64 `json:"std_compound"`
}

// Scored is a table row together with the sentiment of its text column.
type Scored[T any] struct {
	Row       T      `json:"row"`
	Scores    Scores `json:"scores"`
	Sentiment Label  `json:"sentiment"`
}

// ScoreRows scores the text column of each row, selected by text. A
// BatchScorer scores the whole column in one call.
func ScoreRows[T any](s Scorer, rows []T, text func(T) string) []Scored[T] {
	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = text(r)
	}

	var scores []Scores
	if b, ok := s.(BatchScorer); ok {
		scores = b.ScoreAll(texts)
	} else {
		scores = make([]Scores, len(texts))
		for i, t := range texts {
			scores[i] = s.Score(t)
		}
	}

	out := make([]Scored[T], len(rows))
	for i, r := range rows {
		out[i] = Scored[T]{Row: r, Scores: scores[i], Sentiment: scores[i].Label()}
	}
	return out
}

// Aggregate computes counts, percentages and compound statistics over scores.
func Aggregate(scores []Scores) Stats {
	st := Stats{TotalItems: len(scores)}
	if len(scores) == 0 {
		return st
	}

	compound := make([]float64, len(scores))
	for i, s := range scores {
		compound[i] = s.Compound
		switch s.Label() {
		case Positive:
			st.PositiveCount++
		case Negative:
			st.NegativeCount++
		default:
			st.NeutralCount++
		}
	}

	n := float64(len(scores))
	st.PositivePct = float64(st.PositiveCount) / n * 100
	st.NeutralPct = float64(st.NeutralCount) / n * 100
	st.NegativePct = float64(st.NegativeCount) / n * 100
	st.AvgCompound = stat.Mean(compound, nil)
	if len(compound) > 1 {
		st.StdCompound = stat.StdDev(compound, nil)
	}

	slices.Sort(compound)
	st.MedianCompound = median(compound)
	return st
}

// AggregateRows aggregates the scores of scored rows.
func AggregateRows[T any](rows []Scored[T]) Stats {
	scores := make([]Scores, len(rows))
	for i, r := range rows {
		scores[i] = r.Scores
	}
	return Aggregate(scores)
}

// median expects sorted, non-empty input.
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
