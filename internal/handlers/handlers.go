package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Brownie44l1/sign-api/internal/model"
	"github.com/Brownie44l1/sign-api/internal/preprocess"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ServiceName      = "Sign Language Recognition Backend"
	RequestIDKey     = "request_id"
	processingPrefix = "Error processing image: "

	// DefaultMaxBodyBytes bounds a /predict body. A webcam frame as a base64
	// data URL is a few hundred kilobytes.
	DefaultMaxBodyBytes int64 = 16 << 20
)

// Predictor classifies one preprocessed tensor. *model.Classifier
// implements it.
type Predictor interface {
	Classify(input []float32) (*model.Prediction, error)
}

type Handler struct {
	predictor    Predictor
	pipeline     *preprocess.Pipeline
	log          *zap.Logger
	maxBodyBytes int64
}

func NewHandler(predictor Predictor, pipeline *preprocess.Pipeline, log *zap.Logger) *Handler {
	return &Handler{
		predictor:    predictor,
		pipeline:     pipeline,
		log:          log,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": ServiceName})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Predict(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)

	var req model.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.Warn("predict request body too large",
				zap.String(RequestIDKey, c.GetString(RequestIDKey)),
				zap.Int64("limit", tooLarge.Limit))
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"detail": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return
		}

		h.log.Debug("rejected predict request body",
			zap.String(RequestIDKey, c.GetString(RequestIDKey)),
			zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	start := time.Now()
	prediction, err := h.Run(*req.Image)
	if err != nil {
		h.log.Warn("prediction failed",
			zap.String(RequestIDKey, c.GetString(RequestIDKey)),
			zap.String("kind", model.KindOf(err)),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": processingPrefix + err.Error()})
		return
	}

	h.log.Info("prediction",
		zap.String(RequestIDKey, c.GetString(RequestIDKey)),
		zap.String("sign", prediction.Label),
		zap.Int("index", prediction.Index),
		zap.Float64("confidence", prediction.Confidence),
		zap.Bool("recognized", prediction.Recognized),
		zap.Duration("latency", time.Since(start)))
	h.log.Debug("class probabilities",
		zap.String(RequestIDKey, c.GetString(RequestIDKey)),
		zap.Float64s("probabilities", prediction.Probabilities))

	c.JSON(http.StatusOK, prediction.Response())
}

// Run decodes and classifies one data-URL encoded image.
func (h *Handler) Run(dataURL string) (*model.Prediction, error) {
	inputData, err := h.pipeline.Process(dataURL)
	if err != nil {
		return nil, err
	}

	return h.predictor.Classify(inputData)
}

// RunImage classifies raw image bytes, as read from a file.
func (h *Handler) RunImage(data []byte) (*model.Prediction, error) {
	inputData, err := h.pipeline.ProcessImage(data)
	if err != nil {
		return nil, err
	}

	return h.predictor.Classify(inputData)
}
