package generation

import (
	"context"
	"fmt"
	"strings"

	"server/internal/domain"
	"server/internal/gemini"
)

// ReferenceImage describes a user-uploaded product photo attached to a
// generation request.
type ReferenceImage struct {
	ID       string
	FilePath string
}

// Sizing captures the size metadata of a prepared request so cost can be
// computed without touching storage: how many images feed in, how many come
// out, and the total prompt character length.
type Sizing struct {
	InputImages  int
	OutputImages int
	PromptChars  int
}

// GenerationPlan is the output of PrepareGeneration: the gateway payload with
// inline image bytes, the durable base-input record with storage paths, and
// the size metadata.
type GenerationPlan struct {
	Parts     []gemini.Part
	BaseInput []domain.InputPart
	Sizing    Sizing
}

// Conversation is one independent provider conversation prepared for a
// modification call, tagged with the identity of the image it targets so
// results can be correlated.
type Conversation struct {
	ImageID  string
	Contents []gemini.Content
}

// Assembler turns generation and modification requests into provider
// payloads and durable records. It reads blob bytes only through the
// injected resolver.
type Assembler struct {
	resolve Resolver
}

// NewAssembler constructs an Assembler over the given path resolver.
func NewAssembler(resolve Resolver) *Assembler {
	return &Assembler{resolve: resolve}
}

// PrepareGeneration builds the ordered payload for an initial generation:
// the prompt text, the art form's reference images behind a label sentence,
// and the user's product photo behind its own label when present. The
// returned base input mirrors the payload with paths instead of bytes so the
// exact same context can be replayed in later modification turns.
func (a *Assembler) PrepareGeneration(ctx context.Context, form domain.ArtForm, productType string, ref *ReferenceImage, instructions string, outputCount int) (*GenerationPlan, error) {
	plan := &GenerationPlan{}

	prompt := BuildPrompt(form, productType, outputCount, instructions)
	a.appendText(plan, prompt)

	if len(form.ReferenceImages) > 0 {
		a.appendText(plan, styleReferenceLabel(form))
		for _, path := range form.ReferenceImages {
			if err := a.appendImage(ctx, plan, path, ""); err != nil {
				return nil, err
			}
		}
	}

	if ref != nil {
		a.appendText(plan, productReferenceLabel(productType))
		if err := a.appendImage(ctx, plan, ref.FilePath, ref.ID); err != nil {
			return nil, err
		}
	}

	plan.Sizing.OutputImages = outputCount
	return plan, nil
}

// EstimateGeneration computes the sizing of a generation request without
// resolving any blob data. hasReference accounts for an uploaded product
// photo that may not exist yet at estimate time.
func (a *Assembler) EstimateGeneration(form domain.ArtForm, productType string, hasReference bool, instructions string, outputCount int) Sizing {
	sizing := Sizing{
		InputImages:  len(form.ReferenceImages),
		OutputImages: outputCount,
		PromptChars:  len(BuildPrompt(form, productType, outputCount, instructions)),
	}
	if len(form.ReferenceImages) > 0 {
		sizing.PromptChars += len(styleReferenceLabel(form))
	}
	if hasReference {
		sizing.InputImages++
		sizing.PromptChars += len(productReferenceLabel(productType))
	}
	return sizing
}

// PrepareModification builds one independent conversation per target image.
// Each conversation replays the full base input as the user turn, presents
// exactly that target image (with its stored thought signature, if any) as
// the model turn, and closes with the modification prompt. Unselected images
// never enter a conversation's context, which keeps cost bounded and stops
// the model drifting toward images the user did not pick.
func (a *Assembler) PrepareModification(ctx context.Context, baseInput []domain.InputPart, priorImages []domain.GeneratedImage, modificationPrompt string, selectedImageIDs []string) ([]Conversation, error) {
	targets, err := resolveTargets(priorImages, selectedImageIDs)
	if err != nil {
		return nil, err
	}

	userParts, err := a.rehydrate(ctx, baseInput)
	if err != nil {
		return nil, err
	}

	conversations := make([]Conversation, 0, len(targets))
	for _, target := range targets {
		data, mime, err := a.resolve(ctx, target.FilePath)
		if err != nil {
			return nil, fmt.Errorf("rehydrate image %s: %w", target.ID, err)
		}
		modelPart := gemini.Part{MimeType: mime, Data: data}
		if target.SignaturePath != "" {
			sig, _, err := a.resolve(ctx, target.SignaturePath)
			if err != nil {
				return nil, fmt.Errorf("rehydrate signature for image %s: %w", target.ID, err)
			}
			modelPart.ThoughtSignature = string(sig)
		}

		conversations = append(conversations, Conversation{
			ImageID: target.ID,
			Contents: []gemini.Content{
				{Role: "user", Parts: userParts},
				{Role: "model", Parts: []gemini.Part{modelPart}},
				{Role: "user", Parts: []gemini.Part{{Text: modificationPrompt}}},
			},
		})
	}

	return conversations, nil
}

// EstimateModification computes the sizing of a modification request: one
// outbound call per target image, each replaying the base input plus the
// target itself.
func (a *Assembler) EstimateModification(baseInput []domain.InputPart, priorImages []domain.GeneratedImage, modificationPrompt string, selectedImageIDs []string) (Sizing, int, error) {
	targets, err := resolveTargets(priorImages, selectedImageIDs)
	if err != nil {
		return Sizing{}, 0, err
	}

	baseImages := 0
	baseChars := 0
	for _, part := range baseInput {
		if part.IsImage() {
			baseImages++
		} else {
			baseChars += len(part.Text)
		}
	}

	return Sizing{
		InputImages:  baseImages + 1,
		OutputImages: len(targets),
		PromptChars:  baseChars + len(modificationPrompt),
	}, len(targets), nil
}

// resolveTargets determines the target set of a modification: the explicitly
// selected ids when given (all must exist among the prior images), otherwise
// every image from the latest turn.
func resolveTargets(priorImages []domain.GeneratedImage, selectedImageIDs []string) ([]domain.GeneratedImage, error) {
	if len(selectedImageIDs) > 0 {
		selected := make(map[string]struct{}, len(selectedImageIDs))
		for _, id := range selectedImageIDs {
			selected[id] = struct{}{}
		}

		var targets []domain.GeneratedImage
		for _, img := range priorImages {
			if _, ok := selected[img.ID]; ok {
				targets = append(targets, img)
				delete(selected, img.ID)
			}
		}
		if len(selected) > 0 {
			missing := make([]string, 0, len(selected))
			for id := range selected {
				missing = append(missing, id)
			}
			return nil, fmt.Errorf("selected image(s) %s: %w", strings.Join(missing, ", "), domain.ErrNotFound)
		}
		return targets, nil
	}

	latest := 0
	for _, img := range priorImages {
		if img.Turn > latest {
			latest = img.Turn
		}
	}
	var targets []domain.GeneratedImage
	for _, img := range priorImages {
		if img.Turn == latest {
			targets = append(targets, img)
		}
	}
	if len(targets) == 0 {
		return nil, domain.ValidationError("no images available to modify")
	}
	return targets, nil
}

func (a *Assembler) appendText(plan *GenerationPlan, text string) {
	plan.Parts = append(plan.Parts, gemini.Part{Text: text})
	plan.BaseInput = append(plan.BaseInput, domain.InputPart{Text: text})
	plan.Sizing.PromptChars += len(text)
}

func (a *Assembler) appendImage(ctx context.Context, plan *GenerationPlan, path, externalID string) error {
	data, mime, err := a.resolve(ctx, path)
	if err != nil {
		return fmt.Errorf("resolve reference image %s: %w", path, err)
	}
	plan.Parts = append(plan.Parts, gemini.Part{MimeType: mime, Data: data})
	plan.BaseInput = append(plan.BaseInput, domain.InputPart{ImageID: externalID, MimeType: mime, FilePath: path})
	plan.Sizing.InputImages++
	return nil
}

// rehydrate decodes the durable base input back into provider parts,
// replaying stored image paths as inline bytes.
func (a *Assembler) rehydrate(ctx context.Context, baseInput []domain.InputPart) ([]gemini.Part, error) {
	parts := make([]gemini.Part, 0, len(baseInput))
	for _, part := range baseInput {
		if !part.IsImage() {
			parts = append(parts, gemini.Part{Text: part.Text})
			continue
		}
		data, mime, err := a.resolve(ctx, part.FilePath)
		if err != nil {
			return nil, fmt.Errorf("rehydrate base input %s: %w", part.FilePath, err)
		}
		parts = append(parts, gemini.Part{MimeType: mime, Data: data})
	}
	return parts, nil
}
