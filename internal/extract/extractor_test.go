package extract

import (
	"context"
	"errors"
	"testing"
)

// mockLLMClient is a test double for the model service.
type mockLLMClient struct {
	CompleteFunc       func(ctx context.Context, prompt string) (string, error)
	CompleteVisionFunc func(ctx context.Context, image []byte, instruction string) (string, error)
}

func (m *mockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return "", nil
}

func (m *mockLLMClient) CompleteVision(ctx context.Context, image []byte, instruction string) (string, error) {
	if m.CompleteVisionFunc != nil {
		return m.CompleteVisionFunc(ctx, image, instruction)
	}
	return "", nil
}

func TestExtract_NativeTextWins(t *testing.T) {
	visionCalled := false
	e := &Extractor{
		llm: &mockLLMClient{
			CompleteVisionFunc: func(ctx context.Context, image []byte, instruction string) (string, error) {
				visionCalled = true
				return "", nil
			},
		},
		native: func(path string) (string, error) { return "10/05 ATM WITHDRAWAL -160.00", nil },
		render: func(path string) ([]byte, error) { return nil, errors.New("should not render") },
	}

	result := e.Extract(context.Background(), "statement.pdf")

	if result.IsImageBased {
		t.Error("Expected IsImageBased=false when native parse yields text")
	}
	if result.RawText != "10/05 ATM WITHDRAWAL -160.00" {
		t.Errorf("RawText = %q", result.RawText)
	}
	if visionCalled {
		t.Error("Vision OCR must not run when the native path yields text")
	}
}

func TestExtract_OCRFallbackOnBlankText(t *testing.T) {
	e := &Extractor{
		llm: &mockLLMClient{
			CompleteVisionFunc: func(ctx context.Context, image []byte, instruction string) (string, error) {
				return "COFFEE SHOP\nTOTAL 7.85", nil
			},
		},
		native: func(path string) (string, error) { return "   \n  ", nil },
		render: func(path string) ([]byte, error) { return []byte{0x89, 0x50}, nil },
	}

	result := e.Extract(context.Background(), "scan.pdf")

	if !result.IsImageBased {
		t.Error("Expected IsImageBased=true on the OCR path")
	}
	if result.RawText != "COFFEE SHOP\nTOTAL 7.85" {
		t.Errorf("RawText = %q", result.RawText)
	}
}

func TestExtract_BothPathsFailSoftly(t *testing.T) {
	tests := []struct {
		name   string
		render func(path string) ([]byte, error)
		vision func(ctx context.Context, image []byte, instruction string) (string, error)
	}{
		{
			name:   "render fails",
			render: func(path string) ([]byte, error) { return nil, errors.New("pdftoppm missing") },
		},
		{
			name:   "vision fails",
			render: func(path string) ([]byte, error) { return []byte{1}, nil },
			vision: func(ctx context.Context, image []byte, instruction string) (string, error) {
				return "", errors.New("service unavailable")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Extractor{
				llm:    &mockLLMClient{CompleteVisionFunc: tt.vision},
				native: func(path string) (string, error) { return "", errors.New("no text layer") },
				render: tt.render,
			}

			result := e.Extract(context.Background(), "broken.pdf")

			if !result.IsImageBased {
				t.Error("Expected IsImageBased=true after attempting the fallback")
			}
			if result.RawText != "" {
				t.Errorf("Expected empty RawText, got %q", result.RawText)
			}
		})
	}
}
