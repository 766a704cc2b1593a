package remote

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"rawdah/internal/model"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ChatRequest is one mentor turn: the prior transcript plus the new message.
type ChatRequest struct {
	History           []model.ChatMessage
	Message           string
	SystemInstruction string
	Temperature       float32
}

// GeminiClient streams mentor replies from the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string, httpOptions *genai.HTTPOptions) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if httpOptions != nil {
		cfg.HTTPOptions = *httpOptions
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: modelName}, nil
}

// Stream yields text fragments in arrival order. Iteration stops at the
// first error.
func (c *GeminiClient) Stream(ctx context.Context, req ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		temperature := req.Temperature
		config := &genai.GenerateContentConfig{Temperature: &temperature}
		if req.SystemInstruction != "" {
			config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
		}

		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, BuildContents(req.History, req.Message), config) {
			if err != nil {
				yield("", fmt.Errorf("%w: %v", ErrUnavailable, err))
				return
			}
			text := fragmentText(resp)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// BuildContents maps the transcript onto Gemini roles and appends the new
// user message.
func BuildContents(history []model.ChatMessage, message string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		if msg.Text == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if msg.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, role))
	}
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}

func fragmentText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			text += part.Text
		}
	}
	return text
}
