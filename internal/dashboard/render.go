package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/sentiment"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"ratio": func(f float64) string { return fmt.Sprintf("%.2f%%", f*100) },
	"pct":   func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
	"color": func(l sentiment.Label) string { return Colors[l] },
}).ParseFS(templateFS, "templates/*.html"))

// chart geometry in SVG user units
const (
	chartWidth   = 560.0
	chartHeight  = 300.0
	chartPadding = 40.0
)

type page struct {
	Config      ViewConfig
	SortModes   []domain.SortMode
	TimeWindows []domain.TimeWindow
	MinLimit    int
	MaxLimit    int
	Error       string
	Report      *Report
	Charts      *charts
}

type charts struct {
	Width, Height, Padding float64
	Scatter                []dot
	ScoreRange             [2]int
	CommentRange           [2]int
	Histogram              []bar
	PerDay                 []stack
}

type dot struct {
	CX, CY float64
	Point
}

type bar struct {
	X, Y, W, H float64
	Bin
}

type stack struct {
	Day      string
	Total    int
	Segments []LabelCount
}

// Render writes the dashboard for cfg. A nil report renders the intro page.
func Render(w io.Writer, cfg ViewConfig, r *Report) error {
	p := newPage(cfg)
	if r != nil {
		p.Report = r
		p.Charts = layout(r)
	}
	return pageTemplate.Execute(w, p)
}

// RenderError writes the dashboard controls with an error message in place
// of a report.
func RenderError(w io.Writer, cfg ViewConfig, msg string) error {
	p := newPage(cfg)
	p.Error = msg
	return pageTemplate.Execute(w, p)
}

func newPage(cfg ViewConfig) page {
	return page{
		Config:      cfg,
		SortModes:   SortModes,
		TimeWindows: domain.TimeWindows,
		MinLimit:    MinLimit,
		MaxLimit:    MaxLimit,
	}
}

func layout(r *Report) *charts {
	c := &charts{Width: chartWidth, Height: chartHeight, Padding: chartPadding}
	plotW := chartWidth - 2*chartPadding
	plotH := chartHeight - 2*chartPadding

	if len(r.Scatter) > 0 {
		c.ScoreRange = [2]int{r.Scatter[0].Score, r.Scatter[0].Score}
		c.CommentRange = [2]int{r.Scatter[0].NumComments, r.Scatter[0].NumComments}
		for _, p := range r.Scatter[1:] {
			c.ScoreRange = [2]int{min(c.ScoreRange[0], p.Score), max(c.ScoreRange[1], p.Score)}
			c.CommentRange = [2]int{min(c.CommentRange[0], p.NumComments), max(c.CommentRange[1], p.NumComments)}
		}
		for _, p := range r.Scatter {
			c.Scatter = append(c.Scatter, dot{
				CX:    chartPadding + scale(p.Score, c.ScoreRange)*plotW,
				CY:    chartHeight - chartPadding - scale(p.NumComments, c.CommentRange)*plotH,
				Point: p,
			})
		}
	}

	maxCount := 0
	for _, b := range r.Histogram {
		maxCount = max(maxCount, b.Count)
	}
	barW := plotW / float64(max(len(r.Histogram), 1))
	for i, b := range r.Histogram {
		h := 0.0
		if maxCount > 0 {
			h = float64(b.Count) / float64(maxCount) * plotH
		}
		c.Histogram = append(c.Histogram, bar{
			X:   chartPadding + float64(i)*barW,
			Y:   chartHeight - chartPadding - h,
			W:   barW - 1,
			H:   h,
			Bin: b,
		})
	}

	for _, d := range r.PerDay {
		s := stack{Day: d.Day, Total: d.Total()}
		for _, lc := range []LabelCount{
			{Label: sentiment.Positive, Count: d.Positive},
			{Label: sentiment.Neutral, Count: d.Neutral},
			{Label: sentiment.Negative, Count: d.Negative},
		} {
			if lc.Count == 0 {
				continue
			}
			lc.Color = Colors[lc.Label]
			lc.Pct = float64(lc.Count) / float64(s.Total) * 100
			s.Segments = append(s.Segments, lc)
		}
		c.PerDay = append(c.PerDay, s)
	}
	return c
}

// scale maps v into [0, 1] over the closed range r.
func scale(v int, r [2]int) float64 {
	if r[1] == r[0] {
		return 0.5
	}
	return float64(v-r[0]) / float64(r[1]-r[0])
}
