// Package nn holds the activation and loss functions shared by the gradient
// trained models.
package nn

import "math"

// Sigmoid maps x onto (0, 1).
func Sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }
