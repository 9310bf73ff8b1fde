// Package optim holds parameter update rules.
package optim

// SGD is plain stochastic gradient descent with a fixed learning rate.
type SGD struct{ LearningRate float64 }

func NewSGD(lr float64) *SGD { return &SGD{LearningRate: lr} }

// Step updates weights in place: w -= lr * g.
func (o *SGD) Step(weights, grads []float64) {
	for i := range weights {
		weights[i] -= o.LearningRate * grads[i]
	}
}

// StepScalar applies the same rule to a single parameter and returns it.
func (o *SGD) StepScalar(w, g float64) float64 {
	return w - o.LearningRate*g
}
