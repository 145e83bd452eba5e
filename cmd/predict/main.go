package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
)

type predictionResponse struct {
	Prediction string `json:"prediction"`
	Confidence string `json:"confidence"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the freshness API")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: predict [-server URL] <path-to-image>")
		os.Exit(1)
	}
	imagePath := flag.Arg(0)

	data, err := os.ReadFile(imagePath)
	if err != nil {
		log.Fatalf("Failed to read image: %v", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(imagePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var result predictionResponse
	var apiErr errorResponse
	resp, err := resty.New().
		SetTimeout(*timeout).
		R().
		SetMultipartField("file", filepath.Base(imagePath), contentType, bytes.NewReader(data)).
		SetResult(&result).
		SetError(&apiErr).
		Post(*server + "/predict")
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	if resp.IsError() {
		log.Fatalf("Server returned %d: %s", resp.StatusCode(), apiErr.Detail)
	}

	fmt.Printf("Prediction: %s\nConfidence: %s\n", result.Prediction, result.Confidence)
}
