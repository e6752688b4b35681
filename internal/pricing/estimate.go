package pricing

import "math"

// Published rates for the image generation model. Image inputs are billed as
// a flat token block per image; text input is billed per token with a fixed
// characters-per-token approximation.
const (
	CharsPerToken = 4

	ImageOutputRate   = 0.134    // USD per generated 2K image
	ImageInputRate    = 0.0011   // USD per input image
	TextInputPerToken = 0.000002 // USD per input text token

	// costPrecision is the decimal precision costs are rounded to.
	costPrecision = 6
)

// PerRequest describes the size of one outbound provider call.
type PerRequest struct {
	InputImages  int `json:"inputImages"`
	OutputImages int `json:"outputImages"`
	PromptChars  int `json:"promptChars"`
}

// Totals aggregates sizes across the whole batch.
type Totals struct {
	InputImages  int `json:"inputImages"`
	OutputImages int `json:"outputImages"`
	TextTokens   int `json:"textTokens"`
}

// Rates echoes the published pricing so clients can render a breakdown.
type Rates struct {
	ImageOutputPerImage float64 `json:"imageOutputPerImage"`
	ImageInputPerImage  float64 `json:"imageInputPerImage"`
	TextInputPerToken   float64 `json:"textInputPerToken"`
	CharsPerToken       int     `json:"charsPerToken"`
}

// Costs breaks the estimate down by billing dimension.
type Costs struct {
	ImageOutput float64 `json:"imageOutput"`
	ImageInput  float64 `json:"imageInput"`
	TextInput   float64 `json:"textInput"`
}

// Estimate is the pre-flight cost of a generation or modification batch.
type Estimate struct {
	PerRequest       PerRequest `json:"perRequest"`
	NumberOfRequests int        `json:"numberOfRequests"`
	Totals           Totals     `json:"totals"`
	Rates            Rates      `json:"rates"`
	Costs            Costs      `json:"costs"`
	TotalCost        float64    `json:"totalCost"`
}

// Compute derives the deterministic cost of a batch of outputImages identical
// requests, each carrying inputImages reference images and promptChars of
// text, each producing one image.
func Compute(inputImages, outputImages, promptChars int) *Estimate {
	textTokens := (promptChars + CharsPerToken - 1) / CharsPerToken

	costs := Costs{
		ImageOutput: round(float64(outputImages) * ImageOutputRate),
		ImageInput:  round(float64(inputImages*outputImages) * ImageInputRate),
		TextInput:   round(float64(textTokens*outputImages) * TextInputPerToken),
	}

	return &Estimate{
		PerRequest: PerRequest{
			InputImages:  inputImages,
			OutputImages: 1,
			PromptChars:  promptChars,
		},
		NumberOfRequests: outputImages,
		Totals: Totals{
			InputImages:  inputImages * outputImages,
			OutputImages: outputImages,
			TextTokens:   textTokens * outputImages,
		},
		Rates: Rates{
			ImageOutputPerImage: ImageOutputRate,
			ImageInputPerImage:  ImageInputRate,
			TextInputPerToken:   TextInputPerToken,
			CharsPerToken:       CharsPerToken,
		},
		Costs:     costs,
		TotalCost: round(costs.ImageOutput + costs.ImageInput + costs.TextInput),
	}
}

func round(v float64) float64 {
	factor := math.Pow10(costPrecision)
	return math.Round(v*factor) / factor
}
