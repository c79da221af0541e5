package controllers

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	dbpkg "eamhc/db"
	"eamhc/emotion"
	"eamhc/models"
	"eamhc/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type SavePredictionRequest struct {
	RawText      string             `json:"rawtext"`
	Prediction   string             `json:"prediction"`
	Probability  float64            `json:"probability"`
	UserID       string             `json:"user_id"`
	Distribution map[string]float64 `json:"distribution"`
	Mode         string             `json:"mode"`
}

// toRow validates the request. With a distribution, label and confidence
// are recomputed from it the same way the bridge does.
func (r SavePredictionRequest) toRow() (models.Prediction, error) {
	text := strings.TrimSpace(r.RawText)
	userID := strings.TrimSpace(r.UserID)
	label := strings.TrimSpace(r.Prediction)

	switch {
	case text == "":
		return models.Prediction{}, fmt.Errorf("%w: rawtext is required", emotion.ErrInvalidInput)
	case userID == "":
		return models.Prediction{}, fmt.Errorf("%w: user_id is required", emotion.ErrInvalidInput)
	case !tools.ValidateUserID(userID):
		return models.Prediction{}, fmt.Errorf("%w: user_id is invalid", emotion.ErrInvalidInput)
	case label == "":
		return models.Prediction{}, fmt.Errorf("%w: prediction is required", emotion.ErrInvalidInput)
	}

	mode := emotion.Mode(strings.TrimSpace(r.Mode))
	switch mode {
	case "":
		mode = emotion.ModeModel
	case emotion.ModeModel, emotion.ModeSimulated:
	default:
		return models.Prediction{}, fmt.Errorf("%w: mode must be %q or %q", emotion.ErrInvalidInput, emotion.ModeModel, emotion.ModeSimulated)
	}

	if len(r.Distribution) > 0 {
		pred, err := emotion.Shape(text, emotion.Record{Prediction: label, Probability: r.Distribution}, mode)
		if err != nil {
			return models.Prediction{}, fmt.Errorf("%w: %w", emotion.ErrInvalidInput, err)
		}
		return models.NewPrediction(userID, pred)
	}

	if math.IsNaN(r.Probability) || r.Probability < 0 || r.Probability > 1 {
		return models.Prediction{}, fmt.Errorf("%w: probability must be between 0 and 1", emotion.ErrInvalidInput)
	}
	return models.Prediction{
		UserID:     userID,
		RawText:    text,
		Label:      label,
		Confidence: r.Probability,
		Mode:       string(mode),
	}, nil
}

// POST /api/emotion-prediction
// Stores a prediction the client already has (usually right after /predict-emotion).
func SavePrediction(c *gin.Context) {
	var req SavePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, "invalid json body: "+err.Error())
		return
	}

	row, err := req.toRow()
	if err != nil {
		RespondInferenceError(c, err)
		return
	}

	now := time.Now()
	row.CreatedAt = &now
	if err := dbpkg.CreatePrediction(dbpkg.DBInstance(c), &row); err != nil {
		RespondInferenceError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"id": row.ID})
}

// GET /api/emotion/user-predictions
// Query params:
// - user_id (required)
// - label, mode, q (optional filters)
// - sort_by=created_at|confidence|label|id (default: created_at)
// - order=asc|desc (default: desc)
// - limit (default: 50, max: 500), offset (default: 0)
func GetUserPredictions(c *gin.Context) {
	userID, ok := QueryUserID(c)
	if !ok {
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondErrorCode(c, http.StatusServiceUnavailable, CodeInternal, "database not configured")
		return
	}

	filter := dbpkg.PredictionFilter{
		UserID: userID,
		Label:  c.Query("label"),
		Mode:   c.Query("mode"),
		Query:  c.Query("q"),
		SortBy: strings.TrimSpace(c.Query("sort_by")),
		Order:  strings.TrimSpace(c.Query("order")),
		Limit:  clampInt(queryInt(c, "limit", dbpkg.DefaultListLimit), 1, dbpkg.MaxListLimit),
		Offset: clampInt(queryInt(c, "offset", 0), 0, 1_000_000),
	}

	items, total, err := dbpkg.ListPredictions(db, filter)
	if err != nil {
		RespondErrorCode(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	RespondSuccess(c, gin.H{
		"total":       total,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
		"predictions": items,
	})
}

// GET /api/emotion/user-stats?user_id=
func GetUserStats(c *gin.Context) {
	userID, ok := QueryUserID(c)
	if !ok {
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondErrorCode(c, http.StatusServiceUnavailable, CodeInternal, "database not configured")
		return
	}

	stats, err := dbpkg.PredictionStats(db, userID)
	if err != nil {
		RespondErrorCode(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	RespondSuccess(c, stats)
}

// GET /api/emotion/predictions/:id?user_id=
func GetPrediction(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	userID, ok := QueryUserID(c)
	if !ok {
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondErrorCode(c, http.StatusServiceUnavailable, CodeInternal, "database not configured")
		return
	}

	p, err := dbpkg.GetPrediction(db, id, userID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			RespondErrorCode(c, http.StatusNotFound, CodeNotFound, "prediction not found")
			return
		}
		RespondErrorCode(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	RespondSuccess(c, p)
}

// DELETE /api/emotion/predictions/:id?user_id=
func DeletePrediction(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	userID, ok := QueryUserID(c)
	if !ok {
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondErrorCode(c, http.StatusServiceUnavailable, CodeInternal, "database not configured")
		return
	}

	if err := dbpkg.DeletePrediction(db, id, userID); err != nil {
		if gorm.IsRecordNotFoundError(err) {
			RespondErrorCode(c, http.StatusNotFound, CodeNotFound, "prediction not found")
			return
		}
		RespondInferenceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/emotion/labels
func GetLabels(c *gin.Context) {
	RespondSuccess(c, gin.H{"labels": emotion.Labels()})
}
