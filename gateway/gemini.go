package gateway

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-3-pro-preview"

// Generator sends a built request to a generative model and returns its text reply.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeminiGenerator calls the Gemini API through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini API client for apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Parts converts the request into genai parts, images first and the prompt last.
func (r Request) Parts() ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(r.Images)+1)
	for i, img := range r.Images {
		data, err := img.Data()
		if err != nil {
			return nil, fmt.Errorf("%w: image %d: %v", ErrValidation, i, err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: img.MIMEType}})
	}
	parts = append(parts, &genai.Part{Text: r.Prompt})
	return parts, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	parts, err := req.Parts()
	if err != nil {
		return "", err
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty response (check safety filters)", ErrUpstream)
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
