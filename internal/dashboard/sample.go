package dashboard

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/blackmichael/reddit-analytics/internal/analysis"
	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/sentiment"
)

// SampleRows returns n synthetic analyzed submissions created hourly up to
// now. It stands in for a collection when the dashboard is asked for sample
// data.
func SampleRows(n int, now time.Time, rng *rand.Rand) []analysis.AnalyzedSubmission {
	rows := make([]analysis.AnalyzedSubmission, n)
	for i := range rows {
		created := now.Add(-time.Duration(n-1-i) * time.Hour)
		scores := sentiment.Scores{
			Compound: uniform(rng, -0.5, 0.8),
			Pos:      uniform(rng, 0.1, 0.6),
			Neu:      uniform(rng, 0.2, 0.7),
			Neg:      uniform(rng, 0.0, 0.3),
		}
		rows[i] = analysis.AnalyzedSubmission{
			Submission: domain.Submission{
				ID:          fmt.Sprintf("sample%d", i+1),
				Title:       fmt.Sprintf("Sample Post %d", i+1),
				Score:       10 + rng.IntN(490),
				UpvoteRatio: uniform(rng, 0.6, 1.0),
				NumComments: 5 + rng.IntN(195),
				CreatedUTC:  float64(created.Unix()),
				Author:      "sample",
			},
			Sentiment:         scores.Label(),
			SentimentCompound: scores.Compound,
			Scores:            scores,
		}
	}
	return rows
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
