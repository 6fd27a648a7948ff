// Package sentiment scores free text and aggregates the scores of a table.
package sentiment

// Classification thresholds on the compound score. Both bounds are inclusive.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// Label is the three-way classification of a compound score.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Scores is the four-component output of a lexicon scorer. Compound is
// normalized to [-1, 1].
type Scores struct {
	Neg      float64 `json:"neg"`
	Neu      float64 `json:"neu"`
	Pos      float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

// Label classifies s by its compound score.
func (s Scores) Label() Label {
	return Classify(s.Compound)
}

// Classify maps a compound score to a Label.
func Classify(compound float64) Label {
	switch {
	case compound >= PositiveThreshold:
		return Positive
	case compound <= NegativeThreshold:
		return Negative
	default:
		return Neutral
	}
}

// Scorer scores a single text. Empty text yields the zero Scores.
type Scorer interface {
	Score(text string) Scores
}

// BatchScorer scores many texts at once, preserving order.
type BatchScorer interface {
	Scorer
	ScoreAll(texts []string) []Scores
}
