package sentiment

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonreiter/govader"
)

// DefaultCacheSize is the number of distinct texts LexiconAnalyzer remembers.
const DefaultCacheSize = 4096

// LexiconAnalyzer scores text with the VADER lexicon. Results are memoized
// per text, so repeated titles across runs are scored once.
type LexiconAnalyzer struct {
	mu       sync.Mutex
	polarity func(string) Scores
	cache    *lru.Cache[string, Scores]
}

var _ Scorer = (*LexiconAnalyzer)(nil)

// NewLexiconAnalyzer creates an analyzer with a cache of cacheSize entries.
// A non-positive size selects DefaultCacheSize.
func NewLexiconAnalyzer(cacheSize int) (*LexiconAnalyzer, error) {
	vader := govader.NewSentimentIntensityAnalyzer()
	return newLexiconAnalyzer(cacheSize, func(text string) Scores {
		s := vader.PolarityScores(text)
		return Scores{Neg: s.Negative, Neu: s.Neutral, Pos: s.Positive, Compound: s.Compound}
	})
}

func newLexiconAnalyzer(cacheSize int, polarity func(string) Scores) (*LexiconAnalyzer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, Scores](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create score cache: %w", err)
	}
	return &LexiconAnalyzer{polarity: polarity, cache: cache}, nil
}

// Score returns the polarity scores of text. Empty or whitespace-only text
// yields the zero Scores, never an error.
func (a *LexiconAnalyzer) Score(text string) Scores {
	if strings.TrimSpace(text) == "" {
		return Scores{}
	}
	if s, ok := a.cache.Get(text); ok {
		return s
	}

	a.mu.Lock()
	s := a.polarity(text)
	a.mu.Unlock()

	a.cache.Add(text, s)
	return s
}

var _ BatchScorer = (*LexiconAnalyzer)(nil)

// ScoreAll scores each text, preserving order.
func (a *LexiconAnalyzer) ScoreAll(texts []string) []Scores {
	out := make([]Scores, len(texts))
	for i, t := range texts {
		out[i] = a.Score(t)
	}
	return out
}
