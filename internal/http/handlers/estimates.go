package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"server/internal/domain"
	"server/internal/pricing"
)

type estimateRequest struct {
	ArtFormKey             string `json:"artFormKey"`
	ProductType            string `json:"productType"`
	AdditionalInstructions string `json:"additionalInstructions"`
	NumberOfImages         int    `json:"numberOfImages"`
	HasReferenceImage      bool   `json:"hasReferenceImage"`
}

// EstimateCost computes the pre-flight cost of a generation request using
// the same request-construction sizing as the real call, without touching
// storage or the provider.
func (a *App) EstimateCost(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, domain.ValidationError("invalid payload"), "Cost estimation error")
		return
	}

	params, err := a.normalizeGenerationParams(req.ArtFormKey, req.ProductType, req.AdditionalInstructions, strconv.Itoa(req.NumberOfImages))
	if err != nil {
		a.error(w, err, "Cost estimation error")
		return
	}

	sizing := a.Assembler.EstimateGeneration(params.form, params.productType, req.HasReferenceImage, params.instructions, params.count)
	estimate := pricing.Compute(sizing.InputImages, sizing.OutputImages, sizing.PromptChars)

	a.success(w, estimatePayload(estimate, nil))
}

type modifyEstimateRequest struct {
	SessionID          string   `json:"sessionId"`
	ModificationPrompt string   `json:"modificationPrompt"`
	SelectedImageIDs   []string `json:"selectedImageIds"`
}

// EstimateModifyCost computes the pre-flight cost of a modification: one
// provider call per target image, each replaying the base input.
func (a *App) EstimateModifyCost(w http.ResponseWriter, r *http.Request) {
	var req modifyEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, domain.ValidationError("invalid payload"), "Cost estimation error")
		return
	}
	if strings.TrimSpace(req.ModificationPrompt) == "" {
		a.error(w, domain.ValidationError("Modification prompt is required"), "Cost estimation error")
		return
	}

	session, err := a.Sessions.GetByID(r.Context(), req.SessionID)
	if err != nil {
		a.sessionError(w, err)
		return
	}

	sizing, targetCount, err := a.Assembler.EstimateModification(session.BaseInput, session.Images, strings.TrimSpace(req.ModificationPrompt), req.SelectedImageIDs)
	if err != nil {
		a.error(w, err, "Cost estimation error")
		return
	}

	estimate := pricing.Compute(sizing.InputImages, sizing.OutputImages, sizing.PromptChars)
	a.success(w, estimatePayload(estimate, map[string]any{"imagesBeingModified": targetCount}))
}

func estimatePayload(estimate *pricing.Estimate, extra map[string]any) map[string]any {
	payload := map[string]any{
		"perRequest":       estimate.PerRequest,
		"numberOfRequests": estimate.NumberOfRequests,
		"totals":           estimate.Totals,
		"rates":            estimate.Rates,
		"costs":            estimate.Costs,
		"totalCost":        estimate.TotalCost,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}
