package generation

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"server/internal/domain"
	"server/internal/gemini"
	"server/internal/infra"
)

// maxConcurrentCalls caps how many provider calls one batch keeps in flight.
const maxConcurrentCalls = 4

// ContentGenerator is the provider capability the gateway fans out to.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, contents []gemini.Content) (*gemini.Result, error)
}

// BlobSaver persists produced image bytes and thought signatures.
type BlobSaver interface {
	SaveImage(ctx context.Context, data []byte, mimeType string) (string, error)
	SaveSignature(ctx context.Context, signature string) (string, error)
}

// CallError records one failed call within a batch, with the 1-based position
// of the call in the original request ordering.
type CallError struct {
	Index      int    `json:"index"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// BatchResult aggregates a fan-out batch under the all-settled policy:
// every produced image alongside every per-call failure. An all-failed batch
// is still a result, not an error; callers decide how to surface it.
type BatchResult struct {
	Images []domain.GeneratedImage
	Errors []CallError
}

// Gateway issues provider calls for generation and modification batches.
// Calls within a batch run concurrently and fail independently; a single
// failed call never aborts its siblings.
type Gateway struct {
	client ContentGenerator
	store  BlobSaver
	logger infra.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(client ContentGenerator, store BlobSaver, logger infra.Logger) *Gateway {
	return &Gateway{client: client, store: store, logger: logger}
}

// Generate issues outputCount independent calls carrying the identical
// payload. The provider is non-deterministic, so repeating the call yields
// distinct variations. Every image produced is stamped with turn.
func (g *Gateway) Generate(ctx context.Context, parts []gemini.Part, outputCount, turn int) *BatchResult {
	contents := []gemini.Content{{Role: "user", Parts: parts}}

	calls := make([][]gemini.Content, outputCount)
	for i := range calls {
		calls[i] = contents
	}
	return g.fanOut(ctx, calls, turn)
}

// Modify issues one call per prepared conversation. Conversations are
// already scoped to a single target image each, so the calls are fully
// independent. Every image produced is stamped with turn.
func (g *Gateway) Modify(ctx context.Context, conversations []Conversation, turn int) *BatchResult {
	calls := make([][]gemini.Content, len(conversations))
	for i, conv := range conversations {
		calls[i] = conv.Contents
	}
	return g.fanOut(ctx, calls, turn)
}

type callOutcome struct {
	images []domain.GeneratedImage
	err    *CallError
}

func (g *Gateway) fanOut(ctx context.Context, calls [][]gemini.Content, turn int) *BatchResult {
	outcomes := make([]callOutcome, len(calls))

	eg := &errgroup.Group{}
	eg.SetLimit(maxConcurrentCalls)
	for i, contents := range calls {
		i, contents := i, contents
		eg.Go(func() error {
			outcomes[i] = g.invoke(ctx, contents, i, turn)
			return nil
		})
	}
	// Workers record outcomes instead of returning errors, so Wait cannot
	// fail and partial results survive.
	_ = eg.Wait()

	result := &BatchResult{}
	for _, outcome := range outcomes {
		result.Images = append(result.Images, outcome.images...)
		if outcome.err != nil {
			result.Errors = append(result.Errors, *outcome.err)
		}
	}
	return result
}

// invoke performs one provider call and persists whatever it returned. The
// index is 0-based here and reported 1-based in the error entry.
func (g *Gateway) invoke(ctx context.Context, contents []gemini.Content, index, turn int) callOutcome {
	result, err := g.client.GenerateContent(ctx, contents)
	if err != nil {
		message, status := classifyError(err)
		g.logger.Warn().Err(err).Int("call", index+1).Msg("generation: provider call failed")
		return callOutcome{err: &CallError{Index: index + 1, Message: message, StatusCode: status}}
	}

	var images []domain.GeneratedImage
	for _, img := range result.Images {
		filePath, err := g.store.SaveImage(ctx, img.Data, img.MimeType)
		if err != nil {
			g.logger.Error().Err(err).Int("call", index+1).Msg("generation: failed to save image")
			return callOutcome{
				images: images,
				err:    &CallError{Index: index + 1, Message: "Failed to save generated image", StatusCode: http.StatusInternalServerError},
			}
		}

		generated := domain.GeneratedImage{
			ID:       uuid.NewString(),
			FilePath: filePath,
			Turn:     turn,
		}
		if img.ThoughtSignature != "" {
			sigPath, err := g.store.SaveSignature(ctx, img.ThoughtSignature)
			if err != nil {
				g.logger.Warn().Err(err).Str("image", generated.ID).Msg("generation: failed to save thought signature")
			} else {
				generated.SignaturePath = sigPath
			}
		}
		images = append(images, generated)
	}

	return callOutcome{images: images}
}

// classifyError normalizes any provider failure to {message, statusCode}.
func classifyError(err error) (string, int) {
	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message, statusErr.StatusCode
	}
	return err.Error(), http.StatusInternalServerError
}
