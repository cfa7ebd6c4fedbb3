package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ledgerline/ledgerline/internal/config"
)

// GeminiClient is the Gemini-backed implementation of Client.
type GeminiClient struct {
	client      *genai.Client
	chatModel   string
	visionModel string
}

// NewGeminiClient builds a Gemini client. The API key may also come from the
// environment the way the genai SDK resolves it.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		chatModel:   cfg.ChatModel,
		visionModel: cfg.VisionModel,
	}, nil
}

// Complete implements Client.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.chatModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GeminiClient.Complete: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GeminiClient.Complete: empty response from model")
	}
	return strings.TrimSpace(text), nil
}

// CompleteVision implements Client.
func (c *GeminiClient) CompleteVision(ctx context.Context, image []byte, instruction string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{
					InlineData: &genai.Blob{
						MIMEType: "image/png",
						Data:     image,
					},
				},
				{Text: instruction},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.visionModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GeminiClient.CompleteVision: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GeminiClient.CompleteVision: empty response from model")
	}
	return strings.TrimSpace(text), nil
}

var _ Client = (*GeminiClient)(nil)
