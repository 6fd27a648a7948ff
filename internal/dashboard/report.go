package dashboard

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/blackmichael/reddit-analytics/internal/analysis"
	"github.com/blackmichael/reddit-analytics/internal/sentiment"
)

const (
	// HistogramBins is the number of equal-width upvote-ratio bins over [0, 1].
	HistogramBins = 20

	// TopPostCount is the number of rows in the top posts table.
	TopPostCount = 10
)

// Colors used for each sentiment label.
var Colors = map[sentiment.Label]string{
	sentiment.Positive: "#00CC96",
	sentiment.Neutral:  "#636EFA",
	sentiment.Negative: "#EF553B",
}

var labels = []sentiment.Label{sentiment.Positive, sentiment.Neutral, sentiment.Negative}

// Metrics are the headline numbers of a report.
type Metrics struct {
	TotalPosts         int     `json:"total_posts"`
	AverageScore       float64 `json:"average_score"`
	AverageUpvoteRatio float64 `json:"average_upvote_ratio"`
	PositivePct        float64 `json:"positive_pct"`
}

// LabelCount is one slice of the sentiment distribution.
type LabelCount struct {
	Label sentiment.Label `json:"label"`
	Count int             `json:"count"`
	Pct   float64         `json:"pct"`
	Color string          `json:"color"`
}

// DayCounts is the sentiment breakdown of the posts created on one UTC day.
type DayCounts struct {
	Day      string `json:"day"`
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
}

// Total returns the number of posts on the day.
func (d DayCounts) Total() int {
	return d.Positive + d.Neutral + d.Negative
}

// Point is a post on the score-vs-comments chart.
type Point struct {
	Title       string          `json:"title"`
	Score       int             `json:"score"`
	NumComments int             `json:"num_comments"`
	Sentiment   sentiment.Label `json:"sentiment"`
}

// Bin is one bar of the upvote-ratio histogram, covering [Low, High).
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// TopPost is a row of the top posts table.
type TopPost struct {
	Title       string          `json:"title"`
	Permalink   string          `json:"permalink,omitempty"`
	Score       int             `json:"score"`
	NumComments int             `json:"num_comments"`
	UpvoteRatio float64         `json:"upvote_ratio"`
	Sentiment   sentiment.Label `json:"sentiment"`
}

// Report is everything the dashboard shows for one analysis.
type Report struct {
	Config       ViewConfig      `json:"config"`
	Metrics      Metrics         `json:"metrics"`
	Stats        sentiment.Stats `json:"stats"`
	Distribution []LabelCount    `json:"distribution"`
	PerDay       []DayCounts     `json:"per_day"`
	Scatter      []Point         `json:"scatter"`
	Histogram    []Bin           `json:"histogram"`
	TopPosts     []TopPost       `json:"top_posts"`
}

// BuildReport derives the dashboard report from an analyzed table.
func BuildReport(cfg ViewConfig, rows []analysis.AnalyzedSubmission) Report {
	r := Report{
		Config:    cfg,
		Scatter:   make([]Point, 0, len(rows)),
		Histogram: make([]Bin, HistogramBins),
	}

	scores := make([]sentiment.Scores, len(rows))
	counts := make(map[sentiment.Label]int, len(labels))
	days := make(map[string]*DayCounts)
	var scoreSum, ratioSum float64

	for i := range r.Histogram {
		r.Histogram[i] = Bin{
			Low:  float64(i) / HistogramBins,
			High: float64(i+1) / HistogramBins,
		}
	}

	for i, row := range rows {
		scores[i] = row.Scores
		counts[row.Sentiment]++
		scoreSum += float64(row.Score)
		ratioSum += row.UpvoteRatio

		day := time.Unix(int64(row.CreatedUTC), 0).UTC().Format(time.DateOnly)
		d, ok := days[day]
		if !ok {
			d = &DayCounts{Day: day}
			days[day] = d
		}
		switch row.Sentiment {
		case sentiment.Positive:
			d.Positive++
		case sentiment.Negative:
			d.Negative++
		default:
			d.Neutral++
		}

		r.Scatter = append(r.Scatter, Point{
			Title:       row.Title,
			Score:       row.Score,
			NumComments: row.NumComments,
			Sentiment:   row.Sentiment,
		})
		r.Histogram[histogramBin(row.UpvoteRatio)].Count++
	}

	n := len(rows)
	r.Stats = sentiment.Aggregate(scores)
	r.Metrics.TotalPosts = n
	if n > 0 {
		r.Metrics.AverageScore = scoreSum / float64(n)
		r.Metrics.AverageUpvoteRatio = ratioSum / float64(n)
		r.Metrics.PositivePct = float64(counts[sentiment.Positive]) / float64(n) * 100
	}

	for _, l := range labels {
		lc := LabelCount{Label: l, Count: counts[l], Color: Colors[l]}
		if n > 0 {
			lc.Pct = float64(lc.Count) / float64(n) * 100
		}
		r.Distribution = append(r.Distribution, lc)
	}

	r.PerDay = make([]DayCounts, 0, len(days))
	for _, d := range days {
		r.PerDay = append(r.PerDay, *d)
	}
	slices.SortFunc(r.PerDay, func(a, b DayCounts) int { return cmp.Compare(a.Day, b.Day) })

	r.TopPosts = topPosts(rows, TopPostCount)
	return r
}

func histogramBin(ratio float64) int {
	i := int(math.Floor(ratio * HistogramBins))
	return min(max(i, 0), HistogramBins-1)
}

// topPosts returns the n highest-scoring rows. Ties keep table order.
func topPosts(rows []analysis.AnalyzedSubmission, n int) []TopPost {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b analysis.AnalyzedSubmission) int {
		return cmp.Compare(b.Score, a.Score)
	})
	sorted = sorted[:min(n, len(sorted))]

	out := make([]TopPost, len(sorted))
	for i, row := range sorted {
		out[i] = TopPost{
			Title:       row.Title,
			Permalink:   row.Permalink,
			Score:       row.Score,
			NumComments: row.NumComments,
			UpvoteRatio: row.UpvoteRatio,
			Sentiment:   row.Sentiment,
		}
	}
	return out
}
