package pii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pagesafe/pagesafe-backend/pkg/config"
)

// GLiNERClient calls a GLiNER inference server over HTTP. The label
// vocabulary is a deployment-time constant passed with every request; only
// entities matching it (and clearing the score threshold) are returned.
type GLiNERClient struct {
	baseURL    string
	labels     []string
	labelSet   map[string]struct{}
	threshold  float64
	httpClient *http.Client
}

// NewGLiNERClient constructs a classifier against the configured server.
func NewGLiNERClient(cfg config.NERConfig) (*GLiNERClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("ner base url is required")
	}
	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("ner label set is required")
	}
	labelSet := make(map[string]struct{}, len(cfg.Labels))
	for _, label := range cfg.Labels {
		labelSet[strings.ToUpper(strings.TrimSpace(label))] = struct{}{}
	}
	return &GLiNERClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		labels:     cfg.Labels,
		labelSet:   labelSet,
		threshold:  cfg.ScoreThreshold,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type predictRequest struct {
	Text      string   `json:"text"`
	Labels    []string `json:"labels"`
	Threshold float64  `json:"threshold"`
}

type predictResponse struct {
	Entities []Entity `json:"entities"`
}

// Classify runs the model on text and returns entities whose label belongs
// to the configured vocabulary.
func (g *GLiNERClient) Classify(ctx context.Context, text string) ([]Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	payload, err := json.Marshal(predictRequest{
		Text:      text,
		Labels:    g.labels,
		Threshold: g.threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrClassification, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: inference server returned %d", ErrClassification, resp.StatusCode)
	}

	var decoded predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrClassification, err)
	}

	entities := make([]Entity, 0, len(decoded.Entities))
	for _, entity := range decoded.Entities {
		if _, ok := g.labelSet[strings.ToUpper(entity.Label)]; !ok {
			continue
		}
		if entity.Score < g.threshold {
			continue
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
