package emotion

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Mode tells callers where a prediction came from.
type Mode string

const (
	ModeModel     Mode = "model"
	ModeSimulated Mode = "simulated"
)

// SumTolerance is the allowed drift of a shaped distribution from 1.0.
const SumTolerance = 1e-6

// Prediction is the shaped result of one classification.
type Prediction struct {
	Text         string             `json:"text"`
	Label        string             `json:"prediction"`
	Distribution map[string]float64 `json:"probability"`
	Confidence   float64            `json:"confidence"`
	Mode         Mode               `json:"mode"`

	// FallbackReason is set when a degraded classifier stood in for the
	// primary one.
	FallbackReason string `json:"fallbackReason,omitempty"`

	// ReportedLabel is the label the classifier itself named, which may
	// differ from Label when the classifier disagrees with its own
	// distribution.
	ReportedLabel string `json:"-"`
}

// Classifier maps free text to a Prediction.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Prediction, error)
	Name() string
}

// Record is the structured payload a classifier process prints.
type Record struct {
	Prediction  string             `json:"prediction"`
	Probability map[string]float64 `json:"probability"`
	Error       string             `json:"error,omitempty"`
}

// Validate checks that a record carries a usable distribution.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Error) != "" {
		return fmt.Errorf("classifier reported: %s", r.Error)
	}
	if strings.TrimSpace(r.Prediction) == "" {
		return fmt.Errorf("record has no prediction")
	}
	if len(r.Probability) == 0 {
		return fmt.Errorf("record has no probability distribution")
	}
	var sum float64
	for label, p := range r.Probability {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("record has an empty label")
		}
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return fmt.Errorf("invalid probability %v for %q", p, label)
		}
		sum += p
	}
	if sum <= 0 {
		return fmt.Errorf("probability distribution sums to zero")
	}
	return nil
}

// Shape turns a validated record into a Prediction. The distribution is
// renormalised to sum to 1 and the label is recomputed as the argmax, ties
// broken by canonical label order.
func Shape(text string, rec Record, mode Mode) (*Prediction, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	var sum float64
	for _, p := range rec.Probability {
		sum += p
	}

	dist := make(map[string]float64, len(rec.Probability))
	for label, p := range rec.Probability {
		dist[label] = p / sum
	}

	label, confidence := Argmax(dist)
	return &Prediction{
		Text:          text,
		Label:         label,
		Distribution:  dist,
		Confidence:    confidence,
		Mode:          mode,
		ReportedLabel: rec.Prediction,
	}, nil
}

// Argmax returns the label with the highest probability and that
// probability. Ties go to the label first in canonical order.
func Argmax(dist map[string]float64) (string, float64) {
	best := ""
	bestP := math.Inf(-1)
	for _, label := range OrderedLabels(dist) {
		if p := dist[label]; p > bestP {
			best, bestP = label, p
		}
	}
	if best == "" {
		return "", 0
	}
	return best, bestP
}

// Sum adds up a distribution.
func Sum(dist map[string]float64) float64 {
	var s float64
	for _, p := range dist {
		s += p
	}
	return s
}

// NormalizeText trims the input and enforces the size contract. maxLen <= 0
// disables the length check.
func NormalizeText(text string, maxLen int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalidInput("text is required")
	}
	if !utf8.ValidString(text) {
		return "", invalidInput("text is not valid UTF-8")
	}
	// NUL cannot be passed in argv
	if strings.IndexByte(text, 0) >= 0 {
		return "", invalidInput("text contains a NUL byte")
	}
	if maxLen > 0 && len([]rune(text)) > maxLen {
		return "", invalidInput("text exceeds %d characters", maxLen)
	}
	return text, nil
}
