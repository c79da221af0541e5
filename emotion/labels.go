// Package emotion is the boundary between the web server and the external
// text-emotion classifier. It defines the Classifier interface, the
// implementations that sit behind it (one-shot process, long-lived pipe
// process, keyword simulation) and the wrappers that bound and combine them.
package emotion

import "sort"

// Canonical label order. Ties on the top probability resolve to the label
// that appears first here.
const (
	LabelAnger    = "anger"
	LabelDisgust  = "disgust"
	LabelFear     = "fear"
	LabelHappy    = "happy"
	LabelJoy      = "joy"
	LabelNeutral  = "neutral"
	LabelSad      = "sad"
	LabelSadness  = "sadness"
	LabelShame    = "shame"
	LabelSurprise = "surprise"
)

var canonicalLabels = []string{
	LabelAnger,
	LabelDisgust,
	LabelFear,
	LabelHappy,
	LabelJoy,
	LabelNeutral,
	LabelSad,
	LabelSadness,
	LabelShame,
	LabelSurprise,
}

var labelRank = func() map[string]int {
	m := make(map[string]int, len(canonicalLabels))
	for i, l := range canonicalLabels {
		m[l] = i
	}
	return m
}()

// Labels returns a copy of the canonical label set in canonical order.
func Labels() []string {
	out := make([]string, len(canonicalLabels))
	copy(out, canonicalLabels)
	return out
}

// IsCanonical reports whether label belongs to the canonical set.
func IsCanonical(label string) bool {
	_, ok := labelRank[label]
	return ok
}

// labelLess orders canonical labels by rank, then any other label
// lexicographically after all canonical ones.
func labelLess(a, b string) bool {
	ra, aok := labelRank[a]
	rb, bok := labelRank[b]
	switch {
	case aok && bok:
		return ra < rb
	case aok:
		return true
	case bok:
		return false
	default:
		return a < b
	}
}

// OrderedLabels returns the keys of dist in canonical order.
func OrderedLabels(dist map[string]float64) []string {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return labelLess(keys[i], keys[j]) })
	return keys
}
