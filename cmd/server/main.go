package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/freshness-api/internal/config"
	"github.com/Brownie44l1/freshness-api/internal/handlers"
	"github.com/Brownie44l1/freshness-api/internal/labels"
	"github.com/Brownie44l1/freshness-api/internal/metrics"
	"github.com/Brownie44l1/freshness-api/internal/model"
	"github.com/Brownie44l1/freshness-api/internal/preprocess"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	gin.SetMode(cfg.Server.Mode)

	interp, err := preprocess.ParseInterpolation(cfg.Preprocess.Interpolation)
	if err != nil {
		log.Fatalf("Invalid preprocess config: %v", err)
	}
	pre := preprocess.New()
	pre.Interpolation = interp
	pre.MaxPixels = cfg.Preprocess.MaxPixels
	table := labels.Default

	log.Printf("Loading model from: %s", cfg.Model.Path)

	// A missing or corrupt model leaves the service up but unable to predict.
	var classifier model.Classifier
	onnx, loadErr := model.LoadONNX(model.ONNXConfig{
		ModelPath:      cfg.Model.Path,
		RuntimeLibrary: cfg.Model.RuntimeLibrary,
		InputName:      cfg.Model.InputName,
		OutputName:     cfg.Model.OutputName,
		InputShape:     toInt64(model.InputShape),
		OutputShape:    []int64{1, int64(table.Len())},
	})
	if loadErr != nil {
		log.Printf("Failed to load model: %v", loadErr)
	} else {
		classifier = onnx
		log.Println("Model loaded successfully.")
	}

	service := model.NewService(classifier, table, loadErr)
	defer service.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	handler := handlers.NewHandler(service, handlers.Options{
		Preprocessor:   pre,
		Metrics:        m,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	router := handlers.NewRouter(handler, cfg.Server.AllowedOrigins, m)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %d", cfg.Server.Port)
	log.Printf("Model state: %s", service.State())
	log.Printf("Classes: %v", table.Names())
	log.Printf("Allowed origins: %v", cfg.Server.AllowedOrigins)
	log.Println("Endpoints:")
	log.Println("  GET  /        - Welcome message")
	log.Println("  GET  /health  - Health check")
	log.Println("  GET  /metrics - Prometheus metrics")
	log.Println("  POST /predict - Predict freshness from image upload")
	log.Printf("Upload test: curl -X POST -F \"file=@apple.jpg\" http://localhost:%d/predict", cfg.Server.Port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}

func toInt64(dims []int) []int64 {
	out := make([]int64, len(dims))
	for i, d := range dims {
		out[i] = int64(d)
	}
	return out
}
