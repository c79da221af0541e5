package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eamhc/config"
	"eamhc/emotion"
	"eamhc/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conf := config.Default()
	conf.DbPath = filepath.Join(t.TempDir(), "test.db")
	conf.AutoMigrate = true

	db, err := Connect(conf, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, db *gorm.DB, userID, text, label string, confidence float64, at time.Time) models.Prediction {
	t.Helper()
	row := models.Prediction{
		UserID:     userID,
		RawText:    text,
		Label:      label,
		Confidence: confidence,
		Mode:       string(emotion.ModeModel),
		CreatedAt:  &at,
	}
	require.NoError(t, row.SetDistribution(map[string]float64{label: confidence, "neutral": 1 - confidence}))
	require.NoError(t, CreatePrediction(db, &row))
	return row
}

func TestConnect_CreatesSqliteFile(t *testing.T) {
	conf := config.Default()
	conf.DbPath = filepath.Join(t.TempDir(), "nested", "dir", "app.db")
	conf.AutoMigrate = true

	db, err := Connect(conf, nil)
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.HasTable(&models.Prediction{}))
	assert.NoError(t, db.DB().Ping())
}

func TestCreatePrediction(t *testing.T) {
	db := newTestDB(t)

	row := seed(t, db, "u-1", "so happy", "joy", 0.9, time.Now())

	assert.NotZero(t, row.ID)
	var stored models.Prediction
	require.NoError(t, db.First(&stored, row.ID).Error)
	assert.Equal(t, "so happy", stored.RawText)
	dist, err := stored.DistributionMap()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, emotion.Sum(dist), emotion.SumTolerance)
}

func TestCreatePrediction_FailureIsPersistenceError(t *testing.T) {
	db := newTestDB(t)
	db.Close()

	err := CreatePrediction(db, &models.Prediction{Label: "joy"})

	assert.True(t, errors.Is(err, emotion.ErrPersistence))
	assert.True(t, errors.Is(CreatePrediction(nil, &models.Prediction{}), emotion.ErrPersistence))
}

func TestListPredictions(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().Add(-time.Hour)
	seed(t, db, "u-1", "first", "joy", 0.9, base)
	seed(t, db, "u-1", "second", "fear", 0.7, base.Add(time.Minute))
	seed(t, db, "u-1", "third", "joy", 0.8, base.Add(2*time.Minute))
	seed(t, db, "u-2", "other user", "anger", 0.6, base)

	t.Run("newest first for one user", func(t *testing.T) {
		items, total, err := ListPredictions(db, PredictionFilter{UserID: "u-1"})

		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, items, 3)
		assert.Equal(t, "third", items[0].RawText)
		assert.Equal(t, "first", items[2].RawText)
	})

	t.Run("pagination keeps the total", func(t *testing.T) {
		items, total, err := ListPredictions(db, PredictionFilter{UserID: "u-1", Limit: 1, Offset: 1})

		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, items, 1)
		assert.Equal(t, "second", items[0].RawText)
	})

	t.Run("label filter and ascending order", func(t *testing.T) {
		items, total, err := ListPredictions(db, PredictionFilter{UserID: "u-1", Label: "joy", Order: "asc"})

		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, "first", items[0].RawText)
	})

	t.Run("text search", func(t *testing.T) {
		items, _, err := ListPredictions(db, PredictionFilter{Query: "other"})

		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "u-2", items[0].UserID)
	})

	t.Run("unknown sort field falls back", func(t *testing.T) {
		items, _, err := ListPredictions(db, PredictionFilter{UserID: "u-1", SortBy: "raw_text; drop table predictions"})

		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		items, total, err := ListPredictions(db, PredictionFilter{UserID: "nobody"})

		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})
}

func TestPredictionStats(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	seed(t, db, "u-1", "a", "joy", 0.9, now)
	seed(t, db, "u-1", "b", "joy", 0.7, now)
	seed(t, db, "u-1", "c", "fear", 0.6, now)
	seed(t, db, "u-2", "d", "anger", 0.5, now)

	stats, err := PredictionStats(db, "u-1")

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "joy", stats[0].Prediction)
	assert.Equal(t, int64(2), stats[0].Count)
	assert.InDelta(t, 0.8, stats[0].AvgProbability, 1e-9)
	assert.Equal(t, "fear", stats[1].Prediction)
	assert.Equal(t, int64(1), stats[1].Count)

	empty, err := PredictionStats(db, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestPredictionFilterNormalized(t *testing.T) {
	f := PredictionFilter{Limit: 10_000, Offset: -3, Order: "ASC", SortBy: "confidence"}.normalized()
	assert.Equal(t, MaxListLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, "asc", f.Order)
	assert.Equal(t, "confidence", f.SortBy)

	f = PredictionFilter{}.normalized()
	assert.Equal(t, DefaultListLimit, f.Limit)
	assert.Equal(t, "desc", f.Order)
	assert.Equal(t, "created_at", f.SortBy)
}
