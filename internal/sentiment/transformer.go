package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultModel is the classifier used when none is configured.
	DefaultModel = "distilbert-base-uncased-finetuned-sst-2-english"

	// BatchSize is the number of texts sent per inference request.
	BatchSize = 16

	// MaxInputRunes is the length each text is truncated to before scoring.
	MaxInputRunes = 512

	blankLabel      = "neutral"
	blankConfidence = 0.5
)

// ModelLabel is the classifier output for one text.
type ModelLabel struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// TransformerOptions configure a TransformerClassifier.
type TransformerOptions struct {
	BaseURL    string
	Model      string
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// TransformerClassifier labels text with a hosted transformer model served
// behind a Hugging Face style inference endpoint:
// POST {BaseURL}/models/{Model} with {"inputs": [...]}.
type TransformerClassifier struct {
	endpoint   string
	model      string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTransformerClassifier creates a classifier. BaseURL is required.
func NewTransformerClassifier(opts TransformerOptions) (*TransformerClassifier, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("transformer base url is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &TransformerClassifier{
		endpoint:   strings.TrimRight(opts.BaseURL, "/") + "/models/" + opts.Model,
		model:      opts.Model,
		token:      opts.Token,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}, nil
}

// Model returns the configured model name.
func (c *TransformerClassifier) Model() string {
	return c.model
}

// Classify labels each text, preserving order. Texts are sent in batches of
// BatchSize and truncated to MaxInputRunes. Blank texts are not sent and are
// labelled neutral with confidence 0.5.
func (c *TransformerClassifier) Classify(ctx context.Context, texts []string) ([]ModelLabel, error) {
	out := make([]ModelLabel, len(texts))
	for start := 0; start < len(texts); start += BatchSize {
		end := min(start+BatchSize, len(texts))

		var inputs []string
		var positions []int
		for i := start; i < end; i++ {
			if strings.TrimSpace(texts[i]) == "" {
				out[i] = ModelLabel{Label: blankLabel, Confidence: blankConfidence}
				continue
			}
			inputs = append(inputs, truncateRunes(texts[i], MaxInputRunes))
			positions = append(positions, i)
		}
		if len(inputs) == 0 {
			continue
		}

		labels, err := c.infer(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("classify batch %d: %w", start/BatchSize, err)
		}
		for j, pos := range positions {
			out[pos] = labels[j]
		}
	}
	return out, nil
}

func (c *TransformerClassifier) infer(ctx context.Context, inputs []string) ([]ModelLabel, error) {
	body, err := json.Marshal(map[string]any{"inputs": inputs})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("model service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(raw) != len(inputs) {
		return nil, fmt.Errorf("model returned %d results for %d inputs", len(raw), len(inputs))
	}

	labels := make([]ModelLabel, len(raw))
	for i, r := range raw {
		l, err := decodeCandidates(r)
		if err != nil {
			return nil, fmt.Errorf("decode result %d: %w", i, err)
		}
		labels[i] = l
	}
	c.logger.Debug("model batch classified", "model", c.model, "inputs", len(inputs))
	return labels, nil
}

type candidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// decodeCandidates accepts either a single {label, score} object or a list
// of candidates, in which case the highest-scoring one wins.
func decodeCandidates(r json.RawMessage) (ModelLabel, error) {
	var cands []candidate
	if trimmed := bytes.TrimSpace(r); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &cands); err != nil {
			return ModelLabel{}, err
		}
	} else {
		var one candidate
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return ModelLabel{}, err
		}
		cands = []candidate{one}
	}
	if len(cands) == 0 {
		return ModelLabel{}, fmt.Errorf("no candidates")
	}

	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return ModelLabel{Label: strings.ToLower(best.Label), Confidence: best.Score}, nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
