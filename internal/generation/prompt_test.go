package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"server/internal/domain"
)

var warli = domain.ArtForm{
	Key:         "warli",
	Name:        "Warli Painting",
	Description: "Traditional tribal art from Maharashtra.",
	StylePrompt: "white geometric stick figures on terracotta background",
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(warli, "clay pot", 1, "")

	assert.Contains(t, prompt, "product photograph of a Clay Pot")
	assert.Contains(t, prompt, "authentic Warli Painting artwork")
	assert.Contains(t, prompt, warli.StylePrompt)
	assert.NotContains(t, prompt, "distinct product variations")
	assert.NotContains(t, prompt, "Specific requirements")
}

func TestBuildPromptMultipleImages(t *testing.T) {
	prompt := BuildPrompt(warli, "tote bag", 3, "")
	assert.Contains(t, prompt, "Generate 3 distinct product variations")
}

func TestBuildPromptInstructions(t *testing.T) {
	prompt := BuildPrompt(warli, "mug", 1, "  add a sun motif  ")
	assert.True(t, strings.HasSuffix(prompt, "Specific requirements: add a sun motif"))
}

func TestBuildPromptDeterministic(t *testing.T) {
	a := BuildPrompt(warli, "clay pot", 2, "blue accents")
	b := BuildPrompt(warli, "clay pot", 2, "blue accents")
	assert.Equal(t, a, b)
}
