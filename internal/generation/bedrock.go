package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ignite/contentflow/internal/pkg/logger"
	"github.com/ignite/contentflow/internal/service/content"
)

// DefaultModelID is used when no model is configured.
const DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"

const systemPrompt = "You are a marketing copywriter. You write accurate, concise copy and never invent product facts that were not given to you."

// Invoker is the subset of the Bedrock runtime client used here.
type Invoker interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature,omitempty"`
}

type invokeResponse struct {
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// BedrockConfig configures a BedrockGenerator.
type BedrockConfig struct {
	ModelID     string
	MaxTokens   int
	Temperature float64
}

// BedrockGenerator implements content.Generator with Anthropic models on
// Bedrock.
type BedrockGenerator struct {
	client  Invoker
	prompts *PromptRenderer
	cfg     BedrockConfig
}

// NewBedrockGenerator builds a generator; client is usually
// bedrockruntime.NewFromConfig(awsCfg).
func NewBedrockGenerator(client Invoker, prompts *PromptRenderer, cfg BedrockConfig) *BedrockGenerator {
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if prompts == nil {
		prompts = NewPromptRenderer(nil)
	}
	return &BedrockGenerator{client: client, prompts: prompts, cfg: cfg}
}

func (g *BedrockGenerator) Generate(ctx context.Context, req content.GenerationRequest) (*content.GeneratedDraft, error) {
	prompt, err := g.prompts.Render(req.Type, req.Topic, req.Tone, req.Keywords)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        g.cfg.MaxTokens,
		System:           systemPrompt,
		Messages:         []message{{Role: "user", Content: []contentBlock{{Type: "text", Text: prompt}}}},
		Temperature:      g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal bedrock request: %w", err)
	}

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.cfg.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invoke %s: %w", content.ErrGenerationFailed, g.cfg.ModelID, err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parse bedrock response: %w", content.ErrGenerationFailed, err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	logger.Debug("content generated", "model", g.cfg.ModelID, "type", string(req.Type),
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)

	return ParseDraft(text.String())
}

// ParseDraft splits a model answer into title and body. Without a "Title:"
// line the first non-empty line becomes the title.
func ParseDraft(text string) (*content.GeneratedDraft, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return nil, fmt.Errorf("%w: model returned an empty answer", content.ErrGenerationFailed)
	}
	title := strings.TrimSpace(lines[i])
	if len(title) >= 6 && strings.EqualFold(title[:6], "title:") {
		title = strings.TrimSpace(title[6:])
	}
	title = strings.Trim(title, `"*# `)
	body := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: model answer lacks a title or body", content.ErrGenerationFailed)
	}
	return &content.GeneratedDraft{Title: title, Body: body}, nil
}
