package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-3-pro-image-preview"
	defaultTimeout = 120 * time.Second

	aspectRatio = "1:1"
	imageSize   = "2K"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin facade over the Gemini generateContent endpoint. It is
// stateless per call and safe for concurrent use; the gateway injects it as a
// plain service dependency.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	logger     infra.Logger
}

// Part is one element of a conversation message: a text fragment or inline
// image bytes, optionally carrying the thought signature the model attached
// to it.
type Part struct {
	Text             string
	MimeType         string
	Data             []byte
	ThoughtSignature string
}

// Content is one conversation message with its role ("user" or "model").
type Content struct {
	Role  string
	Parts []Part
}

// Image is one inline image returned by the model, with the optional thought
// signature needed to reference it coherently in later turns.
type Image struct {
	MimeType         string
	Data             []byte
	ThoughtSignature string
}

// Result is the decoded outcome of one generateContent call.
type Result struct {
	Images []Image
	Text   string
}

type wirePart struct {
	Text             string          `json:"text,omitempty"`
	InlineData       *wireInlineData `json:"inlineData,omitempty"`
	ThoughtSignature string          `json:"thoughtSignature,omitempty"`
}

type wireInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts,omitempty"`
}

type wireImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type wireGenerationConfig struct {
	ResponseModalities []string         `json:"responseModalities,omitempty"`
	ImageConfig        *wireImageConfig `json:"imageConfig,omitempty"`
}

type wireRequest struct {
	Contents         []wireContent         `json:"contents"`
	GenerationConfig *wireGenerationConfig `json:"generationConfig,omitempty"`
}

type wireCandidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason,omitempty"`
}

type wireResponse struct {
	Candidates []wireCandidate `json:"candidates"`
}

type wireError struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; a reusable one is created.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	} else {
		logger = infra.NopLogger()
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateContent issues one generateContent call with the given conversation
// and decodes any returned images, text, and thought signatures. Each call is
// bounded by the configured timeout so a hung provider cannot stall a fan-out
// batch indefinitely.
func (c *Client) GenerateContent(ctx context.Context, contents []Content) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := wireRequest{
		Contents: encodeContents(contents),
		GenerationConfig: &wireGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig:        &wireImageConfig{AspectRatio: aspectRatio, ImageSize: imageSize},
		},
	}

	var response wireResponse
	if err := c.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}

	result := &Result{}
	var texts []string
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					c.logger.Warn().Err(err).Msg("gemini: skipping undecodable inline image")
					continue
				}
				result.Images = append(result.Images, Image{
					MimeType:         part.InlineData.MimeType,
					Data:             data,
					ThoughtSignature: part.ThoughtSignature,
				})
				continue
			}
			if part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
	}
	result.Text = strings.Join(texts, "\n")

	c.logger.Debug().
		Str("model", c.model).
		Int("images", len(result.Images)).
		Msg("gemini: generateContent completed")

	return result, nil
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gemini: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewStatusError(fmt.Sprintf("gemini request failed: %v", err), http.StatusInternalServerError)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return parseErrorBody(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gemini: decode response: %w", err)
	}
	return nil
}

// parseErrorBody normalizes a provider failure into {message, statusCode},
// unwrapping the JSON error envelope when present and defaulting to the raw
// HTTP status otherwise.
func parseErrorBody(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var apiErr wireError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		code := apiErr.Error.Code
		if code == 0 {
			code = resp.StatusCode
		}
		return domain.NewStatusError(apiErr.Error.Message, code)
	}

	message := strings.TrimSpace(string(data))
	if message == "" {
		message = fmt.Sprintf("gemini status %d", resp.StatusCode)
	}
	return domain.NewStatusError(message, resp.StatusCode)
}

func encodeContents(contents []Content) []wireContent {
	out := make([]wireContent, 0, len(contents))
	for _, content := range contents {
		wc := wireContent{Role: content.Role}
		for _, part := range content.Parts {
			wp := wirePart{Text: part.Text, ThoughtSignature: part.ThoughtSignature}
			if len(part.Data) > 0 {
				wp.InlineData = &wireInlineData{
					MimeType: part.MimeType,
					Data:     base64.StdEncoding.EncodeToString(part.Data),
				}
			}
			wc.Parts = append(wc.Parts, wp)
		}
		out = append(out, wc)
	}
	return out
}
