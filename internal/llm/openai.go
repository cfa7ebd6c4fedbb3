package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ledgerline/ledgerline/internal/config"
)

const visionMaxTokens = 2000

// OpenAIClient talks to any OpenAI-compatible endpoint (OpenAI itself, or
// DashScope's compatible mode for the Qwen models).
type OpenAIClient struct {
	client      *openai.Client
	chatModel   string
	visionModel string
}

// NewOpenAIClient builds a client from the LLM configuration. BaseURL is
// optional; when empty the official OpenAI endpoint is used.
func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(apiCfg),
		chatModel:   cfg.ChatModel,
		visionModel: cfg.VisionModel,
	}
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAIClient.Complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAIClient.Complete: empty response from model")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// CompleteVision implements Client. The image is inlined as a data URL, the
// way OpenAI-compatible vision endpoints expect it.
func (c *OpenAIClient) CompleteVision(ctx context.Context, image []byte, instruction string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.visionModel,
		MaxTokens: visionMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/png;base64," + encoded,
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: instruction,
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAIClient.CompleteVision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAIClient.CompleteVision: empty response from model")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var _ Client = (*OpenAIClient)(nil)
