package model

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Brownie44l1/freshness-api/internal/labels"
	"github.com/Brownie44l1/freshness-api/internal/preprocess"
	"gorgonia.org/tensor"
)

// InputShape is the NHWC shape the classifier accepts.
var InputShape = tensor.Shape{1, preprocess.DefaultImageSize, preprocess.DefaultImageSize, preprocess.Channels}

// Service owns the process-wide classifier. Its state is fixed at
// construction: Ready with a classifier, Unloaded otherwise.
type Service struct {
	classifier Classifier
	labels     *labels.Table
	loadErr    error
}

// NewService returns a Ready service when classifier is non-nil. A nil
// classifier yields an Unloaded service that remembers loadErr.
func NewService(classifier Classifier, table *labels.Table, loadErr error) *Service {
	if table == nil {
		table = labels.Default
	}
	if classifier == nil && loadErr == nil {
		loadErr = ErrUnavailable
	}
	if classifier != nil {
		loadErr = nil
	}
	return &Service{
		classifier: classifier,
		labels:     table,
		loadErr:    loadErr,
	}
}

func (s *Service) State() State {
	if s.classifier == nil {
		return Unloaded
	}
	return Ready
}

// LoadError is the reason the service is Unloaded, or nil when Ready.
func (s *Service) LoadError() error {
	return s.loadErr
}

func (s *Service) Labels() *labels.Table {
	return s.labels
}

// Predict classifies input and returns the arg-max class. Ties go to the
// lowest index.
func (s *Service) Predict(ctx context.Context, input *tensor.Dense) (*Prediction, error) {
	if s.State() != Ready {
		return nil, ErrUnavailable
	}
	if input == nil {
		return nil, &InferenceError{Err: errors.New("nil input tensor")}
	}

	if shape := input.Shape(); !shape.Eq(InputShape) {
		return nil, &InferenceError{Err: fmt.Errorf("input shape %v, want %v", shape, InputShape)}
	}

	data, ok := input.Data().([]float32)
	if !ok {
		return nil, &InferenceError{Err: fmt.Errorf("unsupported tensor type %v", input.Dtype())}
	}

	probs, err := s.classifier.Classify(ctx, data)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	if len(probs) == 0 {
		return nil, &InferenceError{Err: errors.New("classifier returned no probabilities")}
	}

	idx := argmax(probs)
	return &Prediction{
		Label:         s.labels.Name(idx),
		Index:         idx,
		Confidence:    float64(probs[idx]),
		Probabilities: probs,
	}, nil
}

// Close releases the classifier.
func (s *Service) Close() error {
	if s.classifier == nil {
		return nil
	}
	if err := s.classifier.Close(); err != nil {
		log.Printf("Failed to close classifier: %v", err)
		return err
	}
	return nil
}

func argmax(values []float32) int {
	maxIdx := 0
	maxVal := values[0]
	for i, v := range values {
		if v > maxVal {
			maxVal = v
			maxIdx = i
		}
	}
	return maxIdx
}
