package model

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Classifier maps a flattened input tensor to a probability vector.
type Classifier interface {
	Classify(ctx context.Context, input []float32) ([]float32, error)
	Close() error
}

type ONNXConfig struct {
	ModelPath      string
	RuntimeLibrary string
	InputName      string
	OutputName     string
	InputShape     []int64
	OutputShape    []int64
}

// ONNXClassifier runs a single ONNX Runtime session. The session is bound to
// one pair of tensors, so runs are serialized.
type ONNXClassifier struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// LoadONNX initializes the runtime environment and opens the model. All
// failures are reported as *LoadError.
func LoadONNX(cfg ONNXConfig) (*ONNXClassifier, error) {
	c, err := loadONNX(cfg)
	if err != nil {
		return nil, &LoadError{Path: cfg.ModelPath, Err: err}
	}
	return c, nil
}

func loadONNX(cfg ONNXConfig) (*ONNXClassifier, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, err
	}

	if cfg.RuntimeLibrary != "" {
		ort.SetSharedLibraryPath(cfg.RuntimeLibrary)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.InputShape...))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (c *ONNXClassifier) Classify(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, fmt.Errorf("classifier is closed")
	}

	dst := c.inputTensor.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("expected %d input values, got %d", len(dst), len(input))
	}
	copy(dst, input)

	if err := c.session.Run(); err != nil {
		return nil, err
	}

	out := c.outputTensor.GetData()
	probs := make([]float32, len(out))
	copy(probs, out)
	return probs, nil
}

func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	c.inputTensor.Destroy()
	c.outputTensor.Destroy()
	c.session.Destroy()
	c.session = nil
	return ort.DestroyEnvironment()
}
