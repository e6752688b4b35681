package generation

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"server/internal/domain"
)

var titleCaser = cases.Title(language.English)

// BuildPrompt renders the natural-language generation prompt for a studio
// product photograph: the product decorated with the named art form, citing
// the form's style fragment verbatim. Pure and deterministic; validation of
// the inputs happens upstream.
func BuildPrompt(form domain.ArtForm, productType string, numberOfImages int, instructions string) string {
	product := titleCaser.String(strings.TrimSpace(productType))

	var b strings.Builder
	fmt.Fprintf(&b, "Create a professional e-commerce product photograph of a %s featuring authentic %s artwork.\n\n", product, form.Name)
	fmt.Fprintf(&b, "The %s should be decorated with %s art, which is characterized by: %s\n\n", product, form.Name, form.StylePrompt)
	fmt.Fprintf(&b, "The scene is a clean, studio-lit product shot against a simple background. The %s is positioned at a slight angle to show the artwork clearly. The lighting is soft and even, creating subtle shadows that give the product dimension. The %s design is the focal point, with traditional motifs and colors applied authentically to the %s surface.\n\n", product, form.Name, product)
	b.WriteString("The final image should look like a high-end product catalog photo, suitable for an artisan marketplace.")

	if numberOfImages > 1 {
		fmt.Fprintf(&b, "\n\nGenerate %d distinct product variations, each with a unique design composition.", numberOfImages)
	}
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		fmt.Fprintf(&b, "\n\nSpecific requirements: %s", instructions)
	}

	return b.String()
}

// styleReferenceLabel precedes the art form's reference images in the payload.
func styleReferenceLabel(form domain.ArtForm) string {
	return fmt.Sprintf("Here are reference images showing the %s art style:", form.Name)
}

// productReferenceLabel precedes the user-supplied product photo.
func productReferenceLabel(productType string) string {
	return fmt.Sprintf("Here is a reference image of the %s to use as the base:", strings.TrimSpace(productType))
}
