package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"server/internal/artform"
	"server/internal/domain"
	"server/internal/generation"
	"server/internal/infra"
	"server/internal/storage"
)

// App is the handler container wiring the catalog, session store, request
// assembler, provider gateway, and blob store together.
type App struct {
	Catalog   *artform.Catalog
	Sessions  domain.SessionRepository
	Assembler *generation.Assembler
	Gateway   *generation.Gateway
	Store     *storage.FileStore
	Config    *infra.Config
	Logger    infra.Logger
}

// NewApp constructs the handler container.
func NewApp(catalog *artform.Catalog, sessions domain.SessionRepository, assembler *generation.Assembler, gateway *generation.Gateway, store *storage.FileStore, cfg *infra.Config, logger infra.Logger) *App {
	return &App{
		Catalog:   catalog,
		Sessions:  sessions,
		Assembler: assembler,
		Gateway:   gateway,
		Store:     store,
		Config:    cfg,
		Logger:    logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// success renders a 200 with success:true merged into the payload.
func (a *App) success(w http.ResponseWriter, data map[string]any) {
	payload := map[string]any{"success": true}
	for k, v := range data {
		payload[k] = v
	}
	a.json(w, http.StatusOK, payload)
}

// error maps domain errors onto HTTP statuses and renders {error: message}.
func (a *App) error(w http.ResponseWriter, err error, defaultMessage string) {
	status := http.StatusInternalServerError
	message := defaultMessage

	var statusErr *domain.StatusError
	switch {
	case errors.As(err, &statusErr):
		status = statusErr.StatusCode
		message = statusErr.Message
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
		message = strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	case errors.Is(err, domain.ErrTurnConflict):
		status = http.StatusConflict
		message = "session was modified concurrently, retry"
	case err != nil:
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Msg(defaultMessage)
	} else {
		a.Logger.Debug().Err(err).Msg(defaultMessage)
	}
	a.json(w, status, map[string]any{"error": message})
}

// imageURL converts a storage key into the root-relative path clients fetch.
func imageURL(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}

// imageRefs renders generated images for API responses.
func imageRefs(images []domain.GeneratedImage) []map[string]any {
	out := make([]map[string]any, 0, len(images))
	for _, img := range images {
		out = append(out, map[string]any{
			"id":  img.ID,
			"url": imageURL(img.FilePath),
		})
	}
	return out
}
