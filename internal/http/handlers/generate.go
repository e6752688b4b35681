package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/generation"
	"server/internal/storage"
)

const (
	defaultImageCount = 1
	maxImageCount     = 4
	maxUploadBytes    = 10 << 20
)

type generationParams struct {
	form         domain.ArtForm
	productType  string
	instructions string
	count        int
}

// normalizeGenerationParams validates and normalizes the shared generate /
// estimate fields.
func (a *App) normalizeGenerationParams(artFormKey, productType, instructions, numberOfImages string) (*generationParams, error) {
	form, err := a.Catalog.Get(artFormKey)
	if err != nil {
		return nil, domain.ValidationError("Invalid art form")
	}
	productType = strings.TrimSpace(productType)
	if productType == "" {
		return nil, domain.ValidationError("Product type is required")
	}

	count := defaultImageCount
	if n, err := strconv.Atoi(strings.TrimSpace(numberOfImages)); err == nil {
		count = n
	}
	if count < 1 {
		count = 1
	}
	if count > maxImageCount {
		count = maxImageCount
	}

	return &generationParams{
		form:         form,
		productType:  productType,
		instructions: strings.TrimSpace(instructions),
		count:        count,
	}, nil
}

// Generate starts a new creative session: it builds the generation payload,
// fans out one provider call per requested image, persists whatever
// succeeded, and reports per-call failures alongside.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, domain.ValidationError("invalid multipart payload"), "Generation error")
		return
	}

	params, err := a.normalizeGenerationParams(
		r.FormValue("artFormKey"),
		r.FormValue("productType"),
		r.FormValue("additionalInstructions"),
		r.FormValue("numberOfImages"),
	)
	if err != nil {
		a.error(w, err, "Generation error")
		return
	}

	ref, err := a.saveReferenceUpload(r)
	if err != nil {
		a.error(w, err, "Generation error")
		return
	}

	ctx := r.Context()
	plan, err := a.Assembler.PrepareGeneration(ctx, params.form, params.productType, ref, params.instructions, params.count)
	if err != nil {
		a.error(w, err, "Failed to prepare generation request")
		return
	}

	result := a.Gateway.Generate(ctx, plan.Parts, params.count, 0)
	if a.rejectEmptyBatch(w, result) {
		return
	}

	now := time.Now().UTC()
	session := &domain.Session{
		SessionID:   uuid.NewString(),
		ArtForm:     params.form.Key,
		ProductType: params.productType,
		BaseInput:   plan.BaseInput,
		Images:      result.Images,
		CurrentTurn: 0,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(a.Config.SessionTTL),
	}
	if err := a.Sessions.Create(ctx, session); err != nil {
		a.error(w, err, "Failed to save session")
		return
	}

	payload := map[string]any{
		"sessionId": session.SessionID,
		"images":    imageRefs(result.Images),
		"turn":      0,
	}
	if len(result.Errors) > 0 {
		payload["errors"] = result.Errors
	}
	a.success(w, payload)
}

type modifyRequest struct {
	ModificationPrompt string   `json:"modificationPrompt"`
	SelectedImageIDs   []string `json:"selectedImageIds"`
}

// Modify refines a session: it rebuilds one provider conversation per target
// image, fans the calls out, and appends the produced images as the next
// turn. The turn counter only advances when at least one image was produced,
// keeping it equal to the highest turn present among the images.
func (a *App) Modify(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req modifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, domain.ValidationError("invalid payload"), "Modification error")
		return
	}
	req.ModificationPrompt = strings.TrimSpace(req.ModificationPrompt)
	if req.ModificationPrompt == "" {
		a.error(w, domain.ValidationError("Modification prompt is required"), "Modification error")
		return
	}

	ctx := r.Context()
	session, err := a.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		a.sessionError(w, err)
		return
	}

	conversations, err := a.Assembler.PrepareModification(ctx, session.BaseInput, session.Images, req.ModificationPrompt, req.SelectedImageIDs)
	if err != nil {
		a.error(w, err, "Failed to prepare modification request")
		return
	}

	newTurn := session.CurrentTurn + 1
	result := a.Gateway.Modify(ctx, conversations, newTurn)
	if a.rejectEmptyBatch(w, result) {
		return
	}

	turn := session.CurrentTurn
	if len(result.Images) > 0 {
		if err := a.Sessions.AppendImages(ctx, sessionID, result.Images, newTurn); err != nil {
			a.sessionError(w, err)
			return
		}
		turn = newTurn
	}

	payload := map[string]any{
		"sessionId": sessionID,
		"images":    imageRefs(result.Images),
		"turn":      turn,
	}
	if len(result.Errors) > 0 {
		payload["errors"] = result.Errors
	}
	a.success(w, payload)
}

// saveReferenceUpload stores an optional uploaded product photo and returns
// its reference, or nil when the field is absent.
func (a *App) saveReferenceUpload(r *http.Request) (*generation.ReferenceImage, error) {
	file, header, err := r.FormFile("referenceImage")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, domain.ValidationError("invalid reference image upload")
	}
	defer file.Close()

	if _, ok := storage.MimeTypes[strings.ToLower(extOf(header.Filename))]; !ok {
		return nil, domain.ValidationError("Only image files are allowed")
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, domain.ValidationError("failed to read reference image")
	}
	if len(data) > maxUploadBytes {
		return nil, domain.ValidationError("File too large")
	}

	path, err := a.Store.SaveUpload(r.Context(), header.Filename, data)
	if err != nil {
		return nil, err
	}
	return &generation.ReferenceImage{ID: uuid.NewString(), FilePath: path}, nil
}

// rejectEmptyBatch applies the configurable all-calls-failed policy: by
// default an empty batch is still a partial-success 200, but operators can
// opt into surfacing it as the batch's worst error.
func (a *App) rejectEmptyBatch(w http.ResponseWriter, result *generation.BatchResult) bool {
	if !a.Config.FailOnEmptyBatch || len(result.Images) > 0 || len(result.Errors) == 0 {
		return false
	}
	worst := result.Errors[0]
	for _, e := range result.Errors[1:] {
		if e.StatusCode > worst.StatusCode {
			worst = e
		}
	}
	a.json(w, worst.StatusCode, map[string]any{"error": worst.Message, "errors": result.Errors})
	return true
}

// sessionError renders session-store failures with the message clients key on.
func (a *App) sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		a.json(w, http.StatusNotFound, map[string]any{"error": "Session not found or expired"})
		return
	}
	a.error(w, err, "Session store error")
}

func extOf(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		return filename[idx:]
	}
	return ""
}
