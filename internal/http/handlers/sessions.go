package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"server/pkg/zip"
)

const (
	defaultSessionLimit = 50
	maxSessionLimit     = 100
)

// SessionGet returns one session with its images grouped by turn, newest
// turn first for display.
func (a *App) SessionGet(w http.ResponseWriter, r *http.Request) {
	session, err := a.Sessions.GetByID(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		a.sessionError(w, err)
		return
	}

	grouped := session.ImagesByTurn()
	turns := make([]int, 0, len(grouped))
	for turn := range grouped {
		turns = append(turns, turn)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(turns)))

	turnList := make([]map[string]any, 0, len(turns))
	for _, turn := range turns {
		turnList = append(turnList, map[string]any{
			"turn":   turn,
			"images": imageRefs(grouped[turn]),
		})
	}

	a.success(w, map[string]any{
		"sessionId":   session.SessionID,
		"artForm":     session.ArtForm,
		"productType": session.ProductType,
		"turns":       turnList,
		"imageCount":  len(session.Images),
		"createdAt":   session.CreatedAt.Format(time.RFC3339),
		"updatedAt":   session.UpdatedAt.Format(time.RFC3339),
	})
}

// SessionsList returns the gallery page: sessions newest-first with a total
// count for pagination.
func (a *App) SessionsList(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	if limit > maxSessionLimit {
		limit = maxSessionLimit
	}
	skip := 0
	if n, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil && n > 0 {
		skip = n
	}

	sessions, total, err := a.Sessions.List(r.Context(), limit, skip)
	if err != nil {
		a.error(w, err, "Sessions fetch error")
		return
	}

	items := make([]map[string]any, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, map[string]any{
			"sessionId":   session.SessionID,
			"artForm":     session.ArtForm,
			"productType": session.ProductType,
			"images":      imageRefs(session.Images),
			"imageCount":  len(session.Images),
			"createdAt":   session.CreatedAt.Format(time.RFC3339),
			"updatedAt":   session.UpdatedAt.Format(time.RFC3339),
		})
	}

	a.success(w, map[string]any{
		"sessions": items,
		"total":    total,
		"limit":    limit,
		"skip":     skip,
	})
}

// SessionDownload streams every image of a session as a zip archive, named
// by turn so the download unpacks in generation order.
func (a *App) SessionDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := a.Sessions.GetByID(ctx, chi.URLParam(r, "sessionId"))
	if err != nil {
		a.sessionError(w, err)
		return
	}

	assets := make([]zip.Asset, 0, len(session.Images))
	for _, img := range session.Images {
		data, err := a.Store.Read(ctx, img.FilePath)
		if err != nil {
			a.Logger.Warn().Err(err).Str("image", img.ID).Msg("download: skipping unreadable image")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("turn%02d_%s%s", img.Turn, img.ID, filepath.Ext(img.FilePath)),
			Data:     data,
		})
	}

	archive := zip.Archive(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=session-%s.zip", session.SessionID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
