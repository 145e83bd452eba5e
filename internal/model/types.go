package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Brownie44l1/freshness-api/internal/labels"
)

// ErrUnavailable is returned by Predict when no classifier was loaded.
var ErrUnavailable = errors.New("model is not loaded, predictions are unavailable")

// LoadError reports a classifier artifact that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// InferenceError wraps any failure while running the classifier or
// interpreting its output.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// State is the lifecycle state of a Service.
type State int

const (
	Unloaded State = iota
	Ready
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	default:
		return "unloaded"
	}
}

type Prediction struct {
	Label         string
	Index         int
	Confidence    float64
	Probabilities []float32
}

// ConfidencePercent formats the confidence as a percentage with two decimals.
func (p *Prediction) ConfidencePercent() string {
	return fmt.Sprintf("%.2f%%", p.Confidence*100)
}

// Top formats the n most probable classes as "label=NN.NN%", highest first.
func (p *Prediction) Top(table *labels.Table, n int) string {
	idx := make([]int, len(p.Probabilities))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.Probabilities[idx[a]] > p.Probabilities[idx[b]]
	})
	if n > len(idx) {
		n = len(idx)
	}

	parts := make([]string, 0, n)
	for _, i := range idx[:n] {
		parts = append(parts, fmt.Sprintf("%s=%.2f%%", table.Name(i), p.Probabilities[i]*100))
	}
	return strings.Join(parts, " ")
}

// PredictionResponse is the JSON body returned for a successful prediction.
type PredictionResponse struct {
	Prediction string `json:"prediction"`
	Confidence string `json:"confidence"`
}

// Response builds the externally visible form of p.
func (p *Prediction) Response() PredictionResponse {
	return PredictionResponse{
		Prediction: p.Label,
		Confidence: p.ConfidencePercent(),
	}
}
