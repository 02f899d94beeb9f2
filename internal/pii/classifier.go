package pii

import (
	"context"
	"errors"
)

// ErrClassification indicates the entity model call failed. Callers absorb
// this per fragment: the fragment is treated as non-PII and processing
// continues.
var ErrClassification = errors.New("entity classification failed")

// Entity is one labeled span returned by the model.
type Entity struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// Classifier runs zero-shot entity recognition restricted to a label set
// fixed at construction time.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Entity, error)
}
