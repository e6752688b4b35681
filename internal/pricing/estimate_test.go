package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeKnownValues(t *testing.T) {
	est := Compute(13, 4, 803)

	// ceil(803/4) = 201 tokens per request.
	assert.Equal(t, 201*4, est.Totals.TextTokens)
	assert.Equal(t, 13*4, est.Totals.InputImages)
	assert.Equal(t, 4, est.Totals.OutputImages)
	assert.Equal(t, 4, est.NumberOfRequests)
	assert.Equal(t, 1, est.PerRequest.OutputImages)
	assert.Equal(t, 13, est.PerRequest.InputImages)

	assert.InDelta(t, 0.536, est.Costs.ImageOutput, 1e-9)
	assert.InDelta(t, 0.0572, est.Costs.ImageInput, 1e-9)
	assert.InDelta(t, 0.001608, est.Costs.TextInput, 1e-9)
	assert.InDelta(t, 0.594808, est.TotalCost, 1e-9)
}

func TestComputeSingleRequestNoInputs(t *testing.T) {
	est := Compute(0, 1, 4)

	assert.Equal(t, 1, est.Totals.TextTokens)
	assert.InDelta(t, ImageOutputRate, est.Costs.ImageOutput, 1e-9)
	assert.Zero(t, est.Costs.ImageInput)
	assert.InDelta(t, TextInputPerToken, est.Costs.TextInput, 1e-9)
}

func TestComputeDeterministic(t *testing.T) {
	a := Compute(5, 2, 999)
	b := Compute(5, 2, 999)
	assert.Equal(t, a, b)
}

func TestComputeRounding(t *testing.T) {
	est := Compute(7, 3, 1001)
	// Six decimal places at most.
	for _, v := range []float64{est.Costs.ImageOutput, est.Costs.ImageInput, est.Costs.TextInput, est.TotalCost} {
		assert.InDelta(t, v, round(v), 1e-12)
	}
}
