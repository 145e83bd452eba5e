package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Brownie44l1/freshness-api/internal/preprocess"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config path is given.
const DefaultPath = "config.yaml"

type Config struct {
	Server     Server     `yaml:"server"`
	Model      Model      `yaml:"model"`
	Preprocess Preprocess `yaml:"preprocess"`
}

type Server struct {
	Port           int           `yaml:"port"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	Mode           string        `yaml:"mode"`
}

type Model struct {
	Path           string `yaml:"path"`
	RuntimeLibrary string `yaml:"runtime_library"`
	InputName      string `yaml:"input_name"`
	OutputName     string `yaml:"output_name"`
}

// Preprocess tunes decoding only; the output is always 224x224x3.
type Preprocess struct {
	Interpolation string `yaml:"interpolation"`
	MaxPixels     int64  `yaml:"max_pixels"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Port:           8080,
			MaxUploadBytes: 10 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			AllowedOrigins: []string{
				"http://localhost:3000",
				"https://detect-it-three.vercel.app",
			},
			Mode: "release",
		},
		Model: Model{
			Path:       "models/freshness_classifier.onnx",
			InputName:  "input",
			OutputName: "output",
		},
		Preprocess: Preprocess{
			Interpolation: "bicubic",
			MaxPixels:     preprocess.DefaultMaxPixels,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path, a
// .env file in the working directory and the environment, in increasing
// priority. A missing YAML or .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("ORT_LIBRARY_PATH"); v != "" {
		c.Model.RuntimeLibrary = v
	}
	if v := os.Getenv("MODEL_INPUT_NAME"); v != "" {
		c.Model.InputName = v
	}
	if v := os.Getenv("MODEL_OUTPUT_NAME"); v != "" {
		c.Model.OutputName = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.Server.Mode = v
	}
	return nil
}

// normalize trims origins so that "https://host/" matches the Origin header.
func (c *Config) normalize() {
	origins := make([]string, 0, len(c.Server.AllowedOrigins))
	for _, o := range c.Server.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.AllowedOrigins = origins
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid server mode %q", c.Server.Mode)
	}
	if c.Model.Path == "" {
		return errors.New("model path is required")
	}
	if c.Model.InputName == "" || c.Model.OutputName == "" {
		return errors.New("model input and output names are required")
	}
	if c.Preprocess.MaxPixels < 0 {
		return fmt.Errorf("max_pixels must not be negative, got %d", c.Preprocess.MaxPixels)
	}
	if _, err := preprocess.ParseInterpolation(c.Preprocess.Interpolation); err != nil {
		return err
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
