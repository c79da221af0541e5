package emotion

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	t.Run("exact record keeps its label and confidence", func(t *testing.T) {
		rec := Record{Prediction: "joy", Probability: map[string]float64{"joy": 0.9, "sad": 0.1}}

		pred, err := Shape("what a day", rec, ModeModel)

		require.NoError(t, err)
		assert.Equal(t, "joy", pred.Label)
		assert.InDelta(t, 0.9, pred.Confidence, SumTolerance)
		assert.InDelta(t, 1.0, Sum(pred.Distribution), SumTolerance)
		assert.Equal(t, ModeModel, pred.Mode)
		assert.Equal(t, "what a day", pred.Text)
	})

	t.Run("unnormalised distribution is rescaled", func(t *testing.T) {
		rec := Record{Prediction: "fear", Probability: map[string]float64{"fear": 3, "joy": 1}}

		pred, err := Shape("x", rec, ModeModel)

		require.NoError(t, err)
		assert.InDelta(t, 0.75, pred.Distribution["fear"], SumTolerance)
		assert.InDelta(t, 0.25, pred.Distribution["joy"], SumTolerance)
		assert.InDelta(t, 0.75, pred.Confidence, SumTolerance)
	})

	t.Run("argmax overrides the reported label", func(t *testing.T) {
		rec := Record{Prediction: "joy", Probability: map[string]float64{"joy": 0.2, "anger": 0.8}}

		pred, err := Shape("x", rec, ModeModel)

		require.NoError(t, err)
		assert.Equal(t, "anger", pred.Label)
		assert.Equal(t, "joy", pred.ReportedLabel)
	})

	t.Run("invalid record is rejected", func(t *testing.T) {
		_, err := Shape("x", Record{Prediction: "joy"}, ModeModel)
		assert.Error(t, err)
	})
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name      string
		dist      map[string]float64
		wantLabel string
		wantP     float64
	}{
		{"single max", map[string]float64{"joy": 0.7, "fear": 0.3}, "joy", 0.7},
		{"tie goes to canonical order", map[string]float64{"sad": 0.5, "fear": 0.5}, "fear", 0.5},
		{"canonical beats unknown on tie", map[string]float64{"calm": 0.5, "surprise": 0.5}, "surprise", 0.5},
		{"unknown labels tie lexicographically", map[string]float64{"zen": 0.5, "calm": 0.5}, "calm", 0.5},
		{"empty", map[string]float64{}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, p := Argmax(tt.dist)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantP, p)
		})
	}
}

func TestArgmaxIsStable(t *testing.T) {
	dist := map[string]float64{"shame": 0.25, "happy": 0.25, "joy": 0.25, "neutral": 0.25}
	for i := 0; i < 100; i++ {
		label, _ := Argmax(dist)
		require.Equal(t, "happy", label)
	}
}

func TestOrderedLabels(t *testing.T) {
	dist := map[string]float64{"zen": 1, "surprise": 1, "calm": 1, "anger": 1, "joy": 1}
	assert.Equal(t, []string{"anger", "joy", "surprise", "calm", "zen"}, OrderedLabels(dist))
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"error field", Record{Error: "boom", Prediction: "error", Probability: map[string]float64{"joy": 1}}},
		{"no prediction", Record{Probability: map[string]float64{"joy": 1}}},
		{"no distribution", Record{Prediction: "joy"}},
		{"empty label", Record{Prediction: "joy", Probability: map[string]float64{"": 1}}},
		{"nan", Record{Prediction: "joy", Probability: map[string]float64{"joy": math.NaN()}}},
		{"inf", Record{Prediction: "joy", Probability: map[string]float64{"joy": math.Inf(1)}}},
		{"all zero", Record{Prediction: "joy", Probability: map[string]float64{"joy": 0, "sad": 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.rec.Validate())
		})
	}

	assert.NoError(t, Record{Prediction: "joy", Probability: map[string]float64{"joy": 0, "sad": 1}}.Validate())
}

func TestNormalizeText(t *testing.T) {
	text, err := NormalizeText("  hello \n", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = NormalizeText("   ", 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = NormalizeText(strings.Repeat("é", 11), 10)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	text, err = NormalizeText(strings.Repeat("é", 10), 10)
	require.NoError(t, err)
	assert.Len(t, []rune(text), 10)

	_, err = NormalizeText("hello\x00world", 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = NormalizeText("bad \xff\xfe bytes", 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestLabels(t *testing.T) {
	labels := Labels()
	require.Len(t, labels, 10)
	assert.Equal(t, LabelAnger, labels[0])
	assert.Equal(t, LabelSurprise, labels[9])

	labels[0] = "mutated"
	assert.Equal(t, LabelAnger, Labels()[0])

	assert.True(t, IsCanonical("shame"))
	assert.False(t, IsCanonical("calm"))
}
