package models

import (
	"fmt"
	"math"
	"sort"
)

// Prediction is a single label/confidence pair produced by a classifier
type Prediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	BestGuess   bool    `json:"best_guess,omitempty"`
}

// Percent formats the probability the way the result list shows it, e.g. "91.00%".
func (p Prediction) Percent() string {
	return fmt.Sprintf("%.2f%%", p.Probability*100)
}

// PredictionResult is a ranked set of predictions, highest probability first.
type PredictionResult []Prediction

// BestGuess returns the highest ranked prediction.
func (r PredictionResult) BestGuess() (Prediction, bool) {
	if len(r) == 0 {
		return Prediction{}, false
	}
	return r[0], true
}

// IsRanked reports whether the result is sorted by descending probability.
func (r PredictionResult) IsRanked() bool {
	return sort.SliceIsSorted(r, func(i, j int) bool {
		return r[i].Probability > r[j].Probability
	})
}

// Rank returns a copy sorted by descending probability, truncated to topK
// (topK <= 0 keeps everything), with probabilities clamped to [0,1] and the
// first entry flagged as best guess.
func Rank(predictions []Prediction, topK int) PredictionResult {
	ranked := make(PredictionResult, 0, len(predictions))
	for _, p := range predictions {
		p.Probability = clampProbability(p.Probability)
		p.BestGuess = false
		ranked = append(ranked, p)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	if len(ranked) > 0 {
		ranked[0].BestGuess = true
	}
	return ranked
}

func clampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
