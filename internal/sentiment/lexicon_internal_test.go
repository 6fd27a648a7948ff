package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexiconAnalyzer_MemoizesScores(t *testing.T) {
	calls := map[string]int{}
	a, err := newLexiconAnalyzer(2, func(text string) Scores {
		calls[text]++
		return Scores{Compound: 0.5}
	})
	require.NoError(t, err)

	a.Score("one")
	a.Score("one")
	a.Score("")
	assert.Equal(t, 1, calls["one"])
	assert.Zero(t, calls[""], "blank text never reaches the lexicon")

	a.Score("two")
	a.Score("three")
	a.Score("one")
	assert.Equal(t, 2, calls["one"], "evicted entries are scored again")
}
