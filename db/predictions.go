package db

import (
	"fmt"
	"strings"

	"eamhc/emotion"
	"eamhc/models"

	"github.com/jinzhu/gorm"
)

// PredictionFilter narrows ListPredictions. Zero values mean "no filter";
// Limit is clamped to [1, MaxListLimit].
type PredictionFilter struct {
	UserID string
	Label  string
	Mode   string
	Query  string
	SortBy string
	Order  string
	Limit  int
	Offset int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// LabelStat is one row of the per-user label summary.
type LabelStat struct {
	Prediction     string  `json:"prediction"`
	Count          int64   `json:"count"`
	AvgProbability float64 `json:"avg_probability"`
}

// CreatePrediction inserts p. Any failure is reported as
// emotion.ErrPersistence.
func CreatePrediction(db *gorm.DB, p *models.Prediction) error {
	if db == nil {
		return fmt.Errorf("%w: no database", emotion.ErrPersistence)
	}
	if err := db.Create(p).Error; err != nil {
		return fmt.Errorf("%w: %w", emotion.ErrPersistence, err)
	}
	return nil
}

// ListPredictions returns one page of predictions plus the total matching
// count. Default order is newest first.
func ListPredictions(db *gorm.DB, f PredictionFilter) ([]models.Prediction, int64, error) {
	f = f.normalized()

	query := db.Model(&models.Prediction{})
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.Label != "" {
		query = query.Where("label = ?", f.Label)
	}
	if f.Mode != "" {
		query = query.Where("mode = ?", f.Mode)
	}
	if f.Query != "" {
		query = query.Where("raw_text LIKE ?", "%"+f.Query+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := []models.Prediction{}
	if err := query.
		Order(fmt.Sprintf("%s %s, id %s", f.SortBy, f.Order, f.Order)).
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (f PredictionFilter) normalized() PredictionFilter {
	f.UserID = strings.TrimSpace(f.UserID)
	f.Label = strings.TrimSpace(f.Label)
	f.Mode = strings.TrimSpace(f.Mode)
	f.Query = strings.TrimSpace(f.Query)

	// whitelist sort fields
	switch f.SortBy {
	case "created_at", "confidence", "label", "id":
	default:
		f.SortBy = "created_at"
	}
	if strings.ToLower(f.Order) == "asc" {
		f.Order = "asc"
	} else {
		f.Order = "desc"
	}

	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// PredictionStats counts predictions per label for a user, with the mean
// confidence. Rows come back most frequent first.
func PredictionStats(db *gorm.DB, userID string) ([]LabelStat, error) {
	stats := []LabelStat{}
	err := db.Table("predictions").
		Select("label as prediction, count(*) as count, avg(confidence) as avg_probability").
		Where("user_id = ?", userID).
		Group("label").
		Order("count desc, label asc").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetPrediction loads one of userID's predictions. A row owned by someone
// else is reported as not found.
func GetPrediction(db *gorm.DB, id int64, userID string) (models.Prediction, error) {
	var p models.Prediction
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	return p, err
}

// DeletePrediction removes one of userID's predictions. It returns
// gorm.ErrRecordNotFound when nothing matched.
func DeletePrediction(db *gorm.DB, id int64, userID string) error {
	res := db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Prediction{})
	if res.Error != nil {
		return fmt.Errorf("%w: %w", emotion.ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
