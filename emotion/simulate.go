package emotion

import (
	"context"
	"strings"
)

type keywordRule struct {
	label      string
	confidence float64
	keywords   []string
}

// Rules are checked in order; the first match wins.
var keywordRules = []keywordRule{
	{LabelAnger, 0.85, []string{"irritating", "messed up", "angry", "mad"}},
	{LabelSadness, 0.82, []string{"sad", "upset", "unhappy", "depressed"}},
	{LabelJoy, 0.89, []string{"happy", "joy", "excited", "great"}},
	{LabelFear, 0.78, []string{"scared", "fear", "afraid", "worried"}},
	{LabelDisgust, 0.75, []string{"disgust", "gross", "nasty"}},
	{LabelSurprise, 0.80, []string{"surprised", "wow", "amazing"}},
}

const neutralConfidence = 0.70

// KeywordClassifier is the deterministic degraded-mode classifier. It
// guesses a label from keywords and spreads the remaining probability
// evenly over the other canonical labels.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier { return &KeywordClassifier{} }

func (KeywordClassifier) Name() string { return "simulated" }

func (k KeywordClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	text, err := NormalizeText(text, 0)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	label, top := Simulate(text)
	dist := make(map[string]float64, len(canonicalLabels))
	rest := (1 - top) / float64(len(canonicalLabels)-1)
	for _, l := range canonicalLabels {
		if l == label {
			dist[l] = top
		} else {
			dist[l] = rest
		}
	}

	return &Prediction{
		Text:          text,
		Label:         label,
		Distribution:  dist,
		Confidence:    top,
		Mode:          ModeSimulated,
		ReportedLabel: label,
	}, nil
}

// Simulate returns the keyword-matched label and its fixed confidence.
func Simulate(text string) (string, float64) {
	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label, rule.confidence
			}
		}
	}
	return LabelNeutral, neutralConfidence
}
