package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Brownie44l1/freshness-api/internal/metrics"
	"github.com/Brownie44l1/freshness-api/internal/model"
	"github.com/Brownie44l1/freshness-api/internal/preprocess"
	"github.com/gin-gonic/gin"
)

const (
	// FileField is the multipart field carrying the uploaded image.
	FileField = "file"

	welcomeMessage = "Welcome to the Detect.IT API. Use the /predict endpoint to detect the freshness of fruits and vegetables."
)

type Handler struct {
	service        *model.Service
	preprocessor   *preprocess.Preprocessor
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

type Options struct {
	Preprocessor   *preprocess.Preprocessor
	Metrics        *metrics.Metrics
	MaxUploadBytes int64
}

func NewHandler(service *model.Service, opts Options) *Handler {
	if opts.Preprocessor == nil {
		opts.Preprocessor = preprocess.New()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{
		service:        service,
		preprocessor:   opts.Preprocessor,
		metrics:        opts.Metrics,
		maxUploadBytes: opts.MaxUploadBytes,
	}
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

// Health stays 200 while the model is unloaded so the process can still be
// probed; the body tells the two states apart.
func (h *Handler) Health(c *gin.Context) {
	state := h.service.State()
	if state == model.Ready {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "model": state.String()})
		return
	}

	body := gin.H{"status": "degraded", "model": state.String()}
	if err := h.service.LoadError(); err != nil {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) Predict(c *gin.Context) {
	if h.service.State() != model.Ready {
		abortWithDetail(c, http.StatusInternalServerError,
			"Model is not loaded. The server cannot make predictions.")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile(FileField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			abortWithDetail(c, http.StatusBadRequest,
				fmt.Sprintf("Uploaded file exceeds the %d byte limit.", h.maxUploadBytes))
			return
		}
		abortWithDetail(c, http.StatusBadRequest,
			fmt.Sprintf("No image file provided. Use '%s' as the form field name.", FileField))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		abortWithDetail(c, http.StatusBadRequest, "The uploaded file is not an image.")
		return
	}

	log.Printf("[%s] Received file: %s, size: %d bytes, type: %s",
		requestID(c), fileHeader.Filename, fileHeader.Size, contentType)

	file, err := fileHeader.Open()
	if err != nil {
		abortWithDetail(c, http.StatusInternalServerError,
			fmt.Sprintf("Failed to open uploaded file: %v", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		abortWithDetail(c, http.StatusInternalServerError,
			fmt.Sprintf("Failed to read uploaded file: %v", err))
		return
	}

	start := time.Now()
	result, err := h.classify(c, data)
	if err != nil {
		status := statusFor(err)
		log.Printf("[%s] Prediction error: %v", requestID(c), err)
		if status == http.StatusBadRequest {
			abortWithDetail(c, status, err.Error())
			return
		}
		abortWithDetail(c, status,
			fmt.Sprintf("An error occurred while processing the image: %v", err))
		return
	}

	if h.metrics != nil {
		h.metrics.InferenceDuration.Observe(time.Since(start).Seconds())
		h.metrics.Predictions.WithLabelValues(result.Label).Inc()
	}
	log.Printf("[%s] Prediction: %s (%s), top: %s", requestID(c), result.Label,
		result.ConfidencePercent(), result.Top(h.service.Labels(), 3))

	c.JSON(http.StatusOK, result.Response())
}

func (h *Handler) classify(c *gin.Context, data []byte) (*model.Prediction, error) {
	input, err := h.preprocessor.Preprocess(data)
	if err != nil {
		return nil, err
	}
	return h.service.Predict(c.Request.Context(), input)
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var perr *preprocess.Error
	if errors.As(err, &perr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
