package model

import (
	"fmt"
	"math"
)

// Scorer produces raw class scores for one preprocessed input tensor.
// *Server is the production implementation.
type Scorer interface {
	Score(input []float32) ([]float32, error)
}

// Classifier turns raw scores into a thresholded Prediction using the label
// order from the manifest.
type Classifier struct {
	scorer    Scorer
	classes   []string
	threshold float64
}

func NewClassifier(scorer Scorer, manifest *Manifest) *Classifier {
	return &Classifier{
		scorer:    scorer,
		classes:   append([]string(nil), manifest.Classes...),
		threshold: manifest.ConfidenceThreshold,
	}
}

func (c *Classifier) Classify(input []float32) (*Prediction, error) {
	scores, err := c.scorer.Score(input)
	if err != nil {
		return nil, NewError(ErrInference, err)
	}
	if len(scores) != len(c.classes) {
		return nil, NewError(ErrInference,
			fmt.Errorf("model produced %d scores for %d classes", len(scores), len(c.classes)))
	}
	for i, s := range scores {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return nil, NewError(ErrInference, fmt.Errorf("model produced a non-finite score at index %d", i))
		}
	}

	probs := Softmax(scores)
	idx, p := Argmax(probs)

	prediction := &Prediction{
		Index:         idx,
		Confidence:    p * 100,
		Probabilities: probs,
	}
	if prediction.Confidence < c.threshold {
		return prediction, nil
	}

	prediction.Label = c.classes[idx]
	prediction.Recognized = true
	return prediction, nil
}

// Softmax returns the probability distribution for scores. The maximum is
// subtracted first so large scores do not overflow.
func Softmax(scores []float32) []float64 {
	if len(scores) == 0 {
		return nil
	}

	max := float64(scores[0])
	for _, s := range scores[1:] {
		if float64(s) > max {
			max = float64(s)
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(float64(s) - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}

	return probs
}

// Argmax returns the index and value of the largest entry. Ties go to the
// lowest index.
func Argmax(values []float64) (int, float64) {
	maxIdx := 0
	maxVal := values[0]
	for i, v := range values {
		if v > maxVal {
			maxVal = v
			maxIdx = i
		}
	}
	return maxIdx, maxVal
}
