package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSGDStep(t *testing.T) {
	o := NewSGD(0.5)
	w := []float64{1, -1, 0}
	o.Step(w, []float64{2, -2, 0})
	assert.Equal(t, []float64{0, 0, 0}, w)
	assert.Equal(t, 0.75, o.StepScalar(1, 0.5))
}
