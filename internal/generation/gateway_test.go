package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
	"server/internal/gemini"
	"server/internal/infra"
)

// scriptedGenerator succeeds or fails per call based on the trailing user
// message text, so tests can target individual slots in a batch.
type scriptedGenerator struct {
	images    int
	signature string
}

func (g *scriptedGenerator) GenerateContent(ctx context.Context, contents []gemini.Content) (*gemini.Result, error) {
	last := contents[len(contents)-1]
	if len(last.Parts) > 0 && strings.Contains(last.Parts[0].Text, "fail") {
		return nil, domain.NewStatusError("quota exceeded", http.StatusTooManyRequests)
	}
	result := &gemini.Result{}
	for i := 0; i < g.images; i++ {
		result.Images = append(result.Images, gemini.Image{
			MimeType:         "image/png",
			Data:             []byte("pixels"),
			ThoughtSignature: g.signature,
		})
	}
	return result, nil
}

// memorySaver records saved blobs in memory.
type memorySaver struct {
	mu         sync.Mutex
	images     int
	signatures int
	failImages bool
}

func (s *memorySaver) SaveImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failImages {
		return "", errors.New("disk full")
	}
	s.images++
	return fmt.Sprintf("uploads/generated_%d.png", s.images), nil
}

func (s *memorySaver) SaveSignature(ctx context.Context, signature string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signatures++
	return fmt.Sprintf("uploads/signature_%d.txt", s.signatures), nil
}

func TestGatewayGenerateAllSucceed(t *testing.T) {
	saver := &memorySaver{}
	g := NewGateway(&scriptedGenerator{images: 1, signature: "sig"}, saver, infra.NopLogger())

	result := g.Generate(context.Background(), []gemini.Part{{Text: "prompt"}}, 3, 0)

	require.Len(t, result.Images, 3)
	assert.Empty(t, result.Errors)
	for _, img := range result.Images {
		assert.NotEmpty(t, img.ID)
		assert.NotEmpty(t, img.FilePath)
		assert.NotEmpty(t, img.SignaturePath)
		assert.Equal(t, 0, img.Turn)
	}
	assert.Equal(t, 3, saver.signatures)
}

func TestGatewayModifyPartialFailure(t *testing.T) {
	g := NewGateway(&scriptedGenerator{images: 1}, &memorySaver{}, infra.NopLogger())

	conversations := []Conversation{
		{ImageID: "img-1", Contents: []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: "ok"}}}}},
		{ImageID: "img-2", Contents: []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: "please fail"}}}}},
		{ImageID: "img-3", Contents: []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: "ok"}}}}},
	}

	result := g.Modify(context.Background(), conversations, 2)

	require.Len(t, result.Images, 2)
	for _, img := range result.Images {
		assert.Equal(t, 2, img.Turn)
	}

	require.Len(t, result.Errors, 1)
	callErr := result.Errors[0]
	assert.Equal(t, 2, callErr.Index)
	assert.Equal(t, "quota exceeded", callErr.Message)
	assert.Equal(t, http.StatusTooManyRequests, callErr.StatusCode)
}

func TestGatewayAllFailedIsStillAResult(t *testing.T) {
	g := NewGateway(&scriptedGenerator{images: 1}, &memorySaver{}, infra.NopLogger())

	conversations := []Conversation{
		{ImageID: "img-1", Contents: []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: "fail"}}}}},
		{ImageID: "img-2", Contents: []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: "fail"}}}}},
	}

	result := g.Modify(context.Background(), conversations, 1)
	assert.Empty(t, result.Images)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, 2, result.Errors[1].Index)
}

func TestGatewaySaveFailure(t *testing.T) {
	g := NewGateway(&scriptedGenerator{images: 1}, &memorySaver{failImages: true}, infra.NopLogger())

	result := g.Generate(context.Background(), []gemini.Part{{Text: "prompt"}}, 1, 0)
	assert.Empty(t, result.Images)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Failed to save generated image", result.Errors[0].Message)
	assert.Equal(t, http.StatusInternalServerError, result.Errors[0].StatusCode)
}

func TestGatewayNoSignature(t *testing.T) {
	saver := &memorySaver{}
	g := NewGateway(&scriptedGenerator{images: 1}, saver, infra.NopLogger())

	result := g.Generate(context.Background(), []gemini.Part{{Text: "prompt"}}, 1, 0)
	require.Len(t, result.Images, 1)
	assert.Empty(t, result.Images[0].SignaturePath)
	assert.Zero(t, saver.signatures)
}
