package domain

import "time"

// InputPart is one element of a session's durable base input: either a text
// fragment or a reference to an image stored in the blob store. Image parts
// keep the storage path rather than pixel bytes so the record stays small and
// can be rehydrated for later modification turns.
type InputPart struct {
	Text     string `json:"text,omitempty"`
	ImageID  string `json:"imageId,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	FilePath string `json:"filePath,omitempty"`
}

// IsImage reports whether the part references stored image data.
func (p InputPart) IsImage() bool {
	return p.FilePath != ""
}

// GeneratedImage is one image produced by a generation or modification turn.
// Images are created atomically with the provider call that produced them and
// never mutated afterwards.
type GeneratedImage struct {
	ID            string `json:"id"`
	FilePath      string `json:"filePath"`
	SignaturePath string `json:"signaturePath,omitempty"`
	Turn          int    `json:"turn"`
}

// Session is one creative session: the art form and product the user chose,
// the base input replayed into every modification conversation, and every
// image ever produced, grouped by turn.
//
// Invariant: CurrentTurn equals the maximum Turn across Images, or 0 when no
// images exist. Turn 0 is the initial generation; each modification advances
// the counter by exactly one.
type Session struct {
	SessionID   string
	ArtForm     string
	ProductType string
	BaseInput   []InputPart
	Images      []GeneratedImage
	CurrentTurn int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

// LatestTurn returns the highest turn value present among the session images.
func (s *Session) LatestTurn() int {
	latest := 0
	for _, img := range s.Images {
		if img.Turn > latest {
			latest = img.Turn
		}
	}
	return latest
}

// ImagesByTurn groups session images by turn, preserving append order within
// each group.
func (s *Session) ImagesByTurn() map[int][]GeneratedImage {
	grouped := make(map[int][]GeneratedImage)
	for _, img := range s.Images {
		grouped[img.Turn] = append(grouped[img.Turn], img)
	}
	return grouped
}
