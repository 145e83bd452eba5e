package model

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Brownie44l1/freshness-api/internal/labels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

type fakeClassifier struct {
	probs  []float32
	err    error
	input  []float32
	closed bool
}

func (f *fakeClassifier) Classify(_ context.Context, input []float32) ([]float32, error) {
	f.input = input
	return f.probs, f.err
}

func (f *fakeClassifier) Close() error {
	f.closed = true
	return nil
}

func probabilities(hot int, value float32) []float32 {
	probs := make([]float32, 28)
	rest := (1 - value) / 27
	for i := range probs {
		probs[i] = rest
	}
	probs[hot] = value
	return probs
}

func inputTensor() *tensor.Dense {
	return tensor.New(tensor.WithShape(1, 224, 224, 3), tensor.WithBacking(make([]float32, 224*224*3)))
}

func TestPredictArgmax(t *testing.T) {
	probs := make([]float32, 28)
	probs[0], probs[1], probs[2] = 0.05, 0.90, 0.05
	fc := &fakeClassifier{probs: probs}
	svc := NewService(fc, nil, nil)
	require.Equal(t, Ready, svc.State())

	in := inputTensor()
	pred, err := svc.Predict(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, pred.Index)
	assert.Equal(t, labels.Default.Name(1), pred.Label)
	assert.Equal(t, "apple_rotten", pred.Label)
	assert.InDelta(t, 0.90, pred.Confidence, 1e-6)
	assert.Equal(t, "90.00%", pred.ConfidencePercent())
	assert.Len(t, fc.input, 224*224*3)

	resp := pred.Response()
	assert.Equal(t, "apple_rotten", resp.Prediction)
	assert.Equal(t, "90.00%", resp.Confidence)
}

func TestPredictLastClass(t *testing.T) {
	svc := NewService(&fakeClassifier{probs: probabilities(27, 0.9234)}, nil, nil)

	pred, err := svc.Predict(context.Background(), inputTensor())
	require.NoError(t, err)
	assert.Equal(t, "tomato_rotten", pred.Label)
	assert.Equal(t, "92.34%", pred.ConfidencePercent())
}

func TestPredictTieLowestIndex(t *testing.T) {
	probs := make([]float32, 28)
	probs[4], probs[9] = 0.5, 0.5
	svc := NewService(&fakeClassifier{probs: probs}, nil, nil)

	pred, err := svc.Predict(context.Background(), inputTensor())
	require.NoError(t, err)
	assert.Equal(t, 4, pred.Index)
	assert.Equal(t, "carrot_fresh", pred.Label)
}

func TestPredictUnknownIndex(t *testing.T) {
	probs := make([]float32, 30)
	probs[29] = 1
	svc := NewService(&fakeClassifier{probs: probs}, nil, nil)

	pred, err := svc.Predict(context.Background(), inputTensor())
	require.NoError(t, err)
	assert.Equal(t, labels.Unknown, pred.Label)
	assert.Equal(t, "100.00%", pred.ConfidencePercent())
}

func TestPredictRejectsWrongShape(t *testing.T) {
	fc := &fakeClassifier{probs: probabilities(0, 1)}
	svc := NewService(fc, nil, nil)

	for name, in := range map[string]*tensor.Dense{
		"no batch":   tensor.New(tensor.WithShape(224, 224, 3), tensor.WithBacking(make([]float32, 224*224*3))),
		"small":      tensor.New(tensor.WithShape(1, 4, 4, 3), tensor.WithBacking(make([]float32, 48))),
		"channels 4": tensor.New(tensor.WithShape(1, 224, 224, 4), tensor.WithBacking(make([]float32, 224*224*4))),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Predict(context.Background(), in)

			var ierr *InferenceError
			require.ErrorAs(t, err, &ierr)
			assert.Contains(t, err.Error(), "input shape")
		})
	}
	assert.Nil(t, fc.input)
}

func TestPredictionTop(t *testing.T) {
	probs := make([]float32, 28)
	probs[3], probs[7], probs[20] = 0.6, 0.3, 0.1
	pred := &Prediction{Probabilities: probs}

	assert.Equal(t, "banana_rotten=60.00% carrot_rotten=30.00%", pred.Top(labels.Default, 2))
	assert.Len(t, strings.Fields(pred.Top(labels.Default, 50)), 28)
}

func TestPredictUnloaded(t *testing.T) {
	loadErr := &LoadError{Path: "models/missing.onnx", Err: errors.New("no such file")}
	svc := NewService(nil, nil, loadErr)

	assert.Equal(t, Unloaded, svc.State())
	assert.Equal(t, "unloaded", svc.State().String())
	assert.Equal(t, loadErr, svc.LoadError())

	_, err := svc.Predict(context.Background(), inputTensor())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, svc.Close())
}

func TestPredictUnloadedWithoutReason(t *testing.T) {
	svc := NewService(nil, nil, nil)
	assert.ErrorIs(t, svc.LoadError(), ErrUnavailable)
}

func TestPredictInferenceErrors(t *testing.T) {
	cases := map[string]*fakeClassifier{
		"classifier failure": {err: errors.New("session run failed")},
		"empty output":       {probs: []float32{}},
	}
	for name, fc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewService(fc, nil, nil)
			_, err := svc.Predict(context.Background(), inputTensor())

			var ierr *InferenceError
			require.ErrorAs(t, err, &ierr)
			assert.Contains(t, err.Error(), "inference failed")
		})
	}

	svc := NewService(&fakeClassifier{probs: probabilities(0, 1)}, nil, nil)
	_, err := svc.Predict(context.Background(), nil)
	var ierr *InferenceError
	assert.ErrorAs(t, err, &ierr)
}

func TestServiceClose(t *testing.T) {
	fc := &fakeClassifier{}
	svc := NewService(fc, nil, nil)
	require.NoError(t, svc.Close())
	assert.True(t, fc.closed)
}

func TestLoadONNXMissingFile(t *testing.T) {
	_, err := LoadONNX(ONNXConfig{ModelPath: t.TempDir() + "/missing.onnx"})

	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, err.Error(), "missing.onnx")
}
