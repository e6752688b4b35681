package artform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"server/internal/domain"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

type definition struct {
	name        string
	description string
	stylePrompt string
}

// definitions holds the static art form registry. Reference images are
// attached at boot by scanning the assets directory.
var definitions = map[string]definition{
	"bluepottery": {
		name:        "Blue Pottery",
		description: "Traditional Jaipur craft featuring cobalt blue designs on white ceramic, with Persian-influenced floral and geometric patterns.",
		stylePrompt: "Blue Pottery style with distinctive cobalt blue, turquoise and white color palette, Persian-inspired floral motifs, geometric patterns on ceramic surface, handcrafted glazed finish",
	},
	"cheriyal": {
		name:        "Cheriyal Painting",
		description: "Scroll painting tradition from Telangana with bold colors and mythological narratives in a distinctive folk style.",
		stylePrompt: "Cheriyal painting style with vibrant red backgrounds, bold primary colors, stylized human figures, narrative mythological scenes, folk art aesthetic with strong black outlines",
	},
	"gond": {
		name:        "Gond Painting",
		description: "Tribal art from Madhya Pradesh featuring dots and dashes creating intricate patterns of flora and fauna.",
		stylePrompt: "Gond tribal art style with intricate dot and dash patterns filling animal and nature forms, vibrant contrasting colors, stylized depictions of tigers, birds, trees with detailed internal patterns",
	},
	"handsculpting": {
		name:        "Hand Sculpting",
		description: "Traditional hand-carved wooden craft with organic shapes and natural wood grain textures.",
		stylePrompt: "Hand sculpted style with organic carved forms, natural wood grain textures, smooth polished surfaces, artisanal handcrafted aesthetic with visible craftsmanship details",
	},
	"kalamkari": {
		name:        "Kalamkari",
		description: "Pen-drawn textile art from Andhra Pradesh with mythological narratives and natural dyes.",
		stylePrompt: "Kalamkari textile art style with fine pen-drawn details, earth-tone natural dyes (red, brown, black, yellow), mythological scenes with intricate borders and paisley motifs",
	},
	"kavad": {
		name:        "Kavad Storytelling",
		description: "Portable wooden shrine from Rajasthan with painted panels depicting mythological stories.",
		stylePrompt: "Kavad storytelling style with bright primary colors, wooden panel paintings, mythological narrative scenes, red and yellow dominant palette, folk art figures with ornate borders",
	},
	"madurkathi": {
		name:        "Madurkathi Weaving",
		description: "Traditional mat weaving from West Bengal using natural reed with geometric patterns.",
		stylePrompt: "Madurkathi woven style with natural reed textures, geometric woven patterns, earthy beige and brown tones, traditional Bengali craft aesthetic with intricate interlacing",
	},
	"miniature": {
		name:        "Miniature Painting",
		description: "Detailed small-scale paintings with intricate brushwork, rich colors, and royal court themes.",
		stylePrompt: "Miniature painting style with extremely fine detailed brushwork, rich jewel-tone colors, gold and silver accents, royal court scenes, ornate borders, Persian and Mughal influences",
	},
	"nirmal": {
		name:        "Nirmal Painting",
		description: "Paintings from Telangana featuring vibrant colors, gold leaf work, and mythological themes on wood.",
		stylePrompt: "Nirmal painting style with rich vibrant colors, gold leaf accents, mythological and nature themes, smooth lacquered finish typical of Telangana wood paintings",
	},
	"pattachitra": {
		name:        "Pattachitra Painting",
		description: "Cloth-based scroll painting from Odisha with mythological themes and intricate borders.",
		stylePrompt: "Pattachitra style with rich jewel-tone colors, intricate floral borders, mythological scenes especially Lord Jagannath, fine detailed brushwork on cloth-like texture",
	},
	"tholubommalata": {
		name:        "Tholu Bommalata",
		description: "Traditional leather shadow puppet art from Andhra Pradesh with intricate cut-out designs.",
		stylePrompt: "Tholu Bommalata shadow puppet style with intricate leather cutwork, translucent colored sections, mythological characters, detailed perforated patterns creating light and shadow effects",
	},
	"warli": {
		name:        "Warli Painting",
		description: "Traditional tribal art from Maharashtra featuring white geometric patterns on terracotta backgrounds.",
		stylePrompt: "Warli tribal art style with white geometric stick figures on terracotta/red-brown background, minimalist triangular human figures, circular sun and moon motifs, depicting rural life scenes",
	},
}

// Catalog is the read-only art form registry loaded at boot.
type Catalog struct {
	forms map[string]domain.ArtForm
	keys  []string
}

// Load builds the catalog, discovering reference images for each art form
// under assetsDir/art_forms/<key>. A missing directory just leaves the form
// without reference images.
func Load(assetsDir string) (*Catalog, error) {
	c := &Catalog{forms: make(map[string]domain.ArtForm, len(definitions))}

	for key, def := range definitions {
		refs, err := scanReferenceImages(assetsDir, key)
		if err != nil {
			return nil, fmt.Errorf("artform: scan references for %s: %w", key, err)
		}
		c.forms[key] = domain.ArtForm{
			Key:             key,
			Name:            def.name,
			Description:     def.description,
			StylePrompt:     def.stylePrompt,
			ReferenceImages: refs,
		}
		c.keys = append(c.keys, key)
	}
	sort.Strings(c.keys)

	return c, nil
}

// Get returns the art form for key, or ErrNotFound for unknown keys.
func (c *Catalog) Get(key string) (domain.ArtForm, error) {
	form, ok := c.forms[key]
	if !ok {
		return domain.ArtForm{}, fmt.Errorf("art form %q: %w", key, domain.ErrNotFound)
	}
	return form, nil
}

// List returns all art forms ordered by key.
func (c *Catalog) List() []domain.ArtForm {
	out := make([]domain.ArtForm, 0, len(c.keys))
	for _, key := range c.keys {
		out = append(out, c.forms[key])
	}
	return out
}

// Keys returns the sorted art form keys, used in validation error payloads.
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.keys...)
}

func scanReferenceImages(assetsDir, key string) ([]string, error) {
	dir := filepath.Join(assetsDir, "art_forms", key)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var refs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := imageExtensions[ext]; !ok {
			continue
		}
		refs = append(refs, fmt.Sprintf("assets/art_forms/%s/%s", key, entry.Name()))
	}
	sort.Strings(refs)
	return refs, nil
}
