package nn

import "math"

// BCE returns the mean binary cross-entropy of probabilities yPred against
// 0/1 targets, and its gradient with respect to the pre-sigmoid logits.
// Probabilities are clipped away from 0 and 1.
func BCE(yTrue, yPred []float64) (float64, []float64) {
	n := len(yTrue)
	if n == 0 {
		return 0, nil
	}
	s := 0.0
	grad := make([]float64, n)

	for i := range n {
		p := math.Min(math.Max(yPred[i], 1e-12), 1-1e-12)
		y := yTrue[i]
		s += -(y*math.Log(p) + (1-y)*math.Log(1-p))
		grad[i] = (p - y) / float64(n)
	}
	return s / float64(n), grad
}
