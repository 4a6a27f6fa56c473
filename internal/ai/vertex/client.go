package vertex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"go.uber.org/zap"
)

const (
	ProviderName    = "vertex"
	defaultModel    = "gemini-2.5-flash"
	defaultLocation = "us-central1"
)

// Generator calls Gemini models through Vertex AI using application default credentials.
type Generator struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGenerator(ctx context.Context, project, location, model string, logger *zap.Logger) (*Generator, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil, errors.New("vertex project is required")
	}

	if location = strings.TrimSpace(location); location == "" {
		location = defaultLocation
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, project, location)
	if err != nil {
		return nil, fmt.Errorf("create vertex ai client: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{client: client, model: model, logger: logger}, nil
}

func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	// GenerativeModel is configured per call so concurrent turns never share a system instruction.
	model := g.client.GenerativeModel(g.model)
	if system = strings.TrimSpace(system); system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("vertex ai returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			text, ok := part.(genai.Text)
			if !ok {
				continue
			}
			trimmed := strings.TrimSpace(string(text))
			if trimmed == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(trimmed)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("vertex ai returned empty response")
	}

	return output, nil
}

func (g *Generator) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *Generator) Model() string { return g.model }

func (g *Generator) Provider() string { return ProviderName }
