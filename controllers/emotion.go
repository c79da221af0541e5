package controllers

import (
	"context"
	"net/http"
	"strings"

	"eamhc/emotion"
	"eamhc/models"
	"eamhc/tools"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Predictor is the part of emotion.Bridge the handlers need.
type Predictor interface {
	Predict(ctx context.Context, text string, degraded bool) (*emotion.Prediction, error)
}

// Recorder queues predictions for a best-effort save.
type Recorder interface {
	Enqueue(p models.Prediction) error
}

// EmotionController serves the inference endpoint.
type EmotionController struct {
	predictor Predictor
	recorder  Recorder
	logger    *zap.Logger
}

// NewEmotionController wires the handler. recorder may be nil, in which case
// save requests are answered with saved=false.
func NewEmotionController(predictor Predictor, recorder Recorder, logger *zap.Logger) *EmotionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmotionController{predictor: predictor, recorder: recorder, logger: logger}
}

type PredictRequest struct {
	Text     string `json:"text"`
	Degraded bool   `json:"degraded"`
	UserID   string `json:"user_id"`
	Save     bool   `json:"save"`
}

type PredictResponse struct {
	Prediction     string             `json:"prediction"`
	Probability    map[string]float64 `json:"probability"`
	MaxProbability float64            `json:"maxProbability"`
	Confidence     float64            `json:"confidence"`
	Mode           emotion.Mode       `json:"mode"`
	FallbackReason string             `json:"fallbackReason,omitempty"`
	Saved          *bool              `json:"saved,omitempty"`
}

// POST /api/predict-emotion
func (h *EmotionController) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, "invalid json body: "+err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.Save && req.UserID == "" {
		RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, "user_id is required to save a prediction")
		return
	}
	if req.UserID != "" && !tools.ValidateUserID(req.UserID) {
		RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, "user_id is invalid")
		return
	}

	pred, err := h.predictor.Predict(c.Request.Context(), req.Text, req.Degraded)
	if err != nil {
		h.logger.Warn("prediction failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("text_fp", tools.Fingerprint(req.Text)),
			zap.String("outcome", emotion.Outcome(err)),
			zap.Error(err))
		RespondInferenceError(c, err)
		return
	}

	resp := PredictResponse{
		Prediction:     pred.Label,
		Probability:    pred.Distribution,
		MaxProbability: pred.Confidence,
		Confidence:     pred.Confidence,
		Mode:           pred.Mode,
		FallbackReason: pred.FallbackReason,
	}
	if req.Save {
		saved := h.save(c, req.UserID, pred)
		resp.Saved = &saved
	}
	h.logger.Debug("prediction served",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("text_fp", tools.Fingerprint(pred.Text)),
		zap.String("label", pred.Label),
		zap.String("mode", string(pred.Mode)))
	RespondSuccess(c, resp)
}

// save never fails the request; the prediction is returned either way.
func (h *EmotionController) save(c *gin.Context, userID string, pred *emotion.Prediction) bool {
	if h.recorder == nil {
		h.logger.Warn("save requested but no recorder is configured")
		return false
	}
	row, err := models.NewPrediction(userID, pred)
	if err == nil {
		err = h.recorder.Enqueue(row)
	}
	if err != nil {
		h.logger.Error("prediction not queued for saving",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("user_id", userID),
			zap.Error(err))
		return false
	}
	return true
}
