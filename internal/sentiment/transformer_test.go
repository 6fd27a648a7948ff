package sentiment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/reddit-analytics/internal/sentiment"
)

type inferRequest struct {
	Inputs []string `json:"inputs"`
}

func newModelServer(t *testing.T, handler func(inputs []string) any) (*httptest.Server, *[][]string) {
	var batches [][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/"+sentiment.DefaultModel, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req inferRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batches = append(batches, req.Inputs)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handler(req.Inputs))
	}))
	t.Cleanup(srv.Close)
	return srv, &batches
}

func newClassifier(t *testing.T, srv *httptest.Server) *sentiment.TransformerClassifier {
	c, err := sentiment.NewTransformerClassifier(sentiment.TransformerOptions{BaseURL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	return c
}

func TestTransformerClassifier_BatchesAndPreservesOrder(t *testing.T) {
	srv, batches := newModelServer(t, func(inputs []string) any {
		out := make([][]map[string]any, len(inputs))
		for i, in := range inputs {
			label, score := "POSITIVE", 0.9
			if strings.HasPrefix(in, "bad") {
				label, score = "NEGATIVE", 0.8
			}
			out[i] = []map[string]any{
				{"label": label, "score": score},
				{"label": "OTHER", "score": 1 - score},
			}
		}
		return out
	})
	c := newClassifier(t, srv)

	texts := make([]string, 0, 20)
	for i := range 20 {
		switch {
		case i == 3:
			texts = append(texts, "  ")
		case i%2 == 0:
			texts = append(texts, "good")
		default:
			texts = append(texts, "bad")
		}
	}

	got, err := c.Classify(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, got, 20)

	require.Len(t, *batches, 2)
	assert.Len(t, (*batches)[0], 15, "blank text is not sent")
	assert.Len(t, (*batches)[1], 4)

	assert.Equal(t, sentiment.ModelLabel{Label: "positive", Confidence: 0.9}, got[0])
	assert.Equal(t, sentiment.ModelLabel{Label: "negative", Confidence: 0.8}, got[1])
	assert.Equal(t, sentiment.ModelLabel{Label: "neutral", Confidence: 0.5}, got[3])
	assert.Equal(t, "negative", got[19].Label)
}

func TestTransformerClassifier_FlatResponseAndTruncation(t *testing.T) {
	srv, batches := newModelServer(t, func(inputs []string) any {
		out := make([]map[string]any, len(inputs))
		for i := range inputs {
			out[i] = map[string]any{"label": "NEGATIVE", "score": 0.7}
		}
		return out
	})
	c := newClassifier(t, srv)

	long := strings.Repeat("é", 600)
	got, err := c.Classify(context.Background(), []string{long})
	require.NoError(t, err)
	assert.Equal(t, "negative", got[0].Label)

	require.Len(t, *batches, 1)
	assert.Equal(t, sentiment.MaxInputRunes, utf8.RuneCountInString((*batches)[0][0]))
}

func TestTransformerClassifier_AllBlankSkipsRequest(t *testing.T) {
	srv, batches := newModelServer(t, func([]string) any { return nil })
	c := newClassifier(t, srv)

	got, err := c.Classify(context.Background(), []string{"", " "})
	require.NoError(t, err)
	assert.Empty(t, *batches)
	for _, l := range got {
		assert.Equal(t, sentiment.ModelLabel{Label: "neutral", Confidence: 0.5}, l)
	}
}

func TestTransformerClassifier_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	c := newClassifier(t, srv)

	_, err := c.Classify(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestTransformerClassifier_MismatchedResultCount(t *testing.T) {
	srv, _ := newModelServer(t, func([]string) any {
		return []map[string]any{{"label": "POSITIVE", "score": 0.9}}
	})
	c := newClassifier(t, srv)

	_, err := c.Classify(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestNewTransformerClassifier_RequiresURL(t *testing.T) {
	_, err := sentiment.NewTransformerClassifier(sentiment.TransformerOptions{})
	assert.Error(t, err)
}
