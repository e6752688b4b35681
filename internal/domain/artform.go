package domain

// ArtForm describes one traditional art style available for generation. The
// catalog is loaded once at boot and immutable for the process lifetime.
type ArtForm struct {
	Key             string
	Name            string
	Description     string
	StylePrompt     string
	ReferenceImages []string
}
