package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ArtFormsList returns the catalog summary for the style picker.
func (a *App) ArtFormsList(w http.ResponseWriter, r *http.Request) {
	forms := a.Catalog.List()

	items := make([]map[string]any, 0, len(forms))
	for _, form := range forms {
		var preview any
		if len(form.ReferenceImages) > 0 {
			preview = imageURL(form.ReferenceImages[0])
		}
		items = append(items, map[string]any{
			"key":          form.Key,
			"name":         form.Name,
			"description":  form.Description,
			"previewImage": preview,
		})
	}

	a.success(w, map[string]any{"artForms": items})
}

// ArtFormDetail returns one art form with its full reference image set.
func (a *App) ArtFormDetail(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	form, err := a.Catalog.Get(key)
	if err != nil {
		a.json(w, http.StatusNotFound, map[string]any{
			"error":         "Art form not found",
			"validArtForms": a.Catalog.Keys(),
		})
		return
	}

	refs := make([]string, 0, len(form.ReferenceImages))
	for _, ref := range form.ReferenceImages {
		refs = append(refs, imageURL(ref))
	}

	a.success(w, map[string]any{
		"artForm": map[string]any{
			"key":             form.Key,
			"name":            form.Name,
			"description":     form.Description,
			"referenceImages": refs,
		},
	})
}
