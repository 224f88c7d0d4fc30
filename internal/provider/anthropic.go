package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/bizclone/pkg/anthropic"
)

const (
	anthropicName         = "anthropic"
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultMaxTokens      = 8192
)

// AnthropicProvider generates structured content through the Anthropic
// messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider wraps an Anthropic client as a Provider. An empty
// model selects the default.
func NewAnthropicProvider(client anthropic.Client, model string) *AnthropicProvider {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicProvider{client: client, model: model}
}

func (p *AnthropicProvider) Name() string { return anthropicName }

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	msgReq := anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	}
	if req.System != "" {
		msgReq.System = anthropic.BuildCachedSystemBlocks(req.System)
	}

	resp, err := p.client.CreateMessage(ctx, msgReq)
	if err != nil {
		return nil, Classify(anthropicName, err)
	}

	resp.Usage.LogCost(resp.Model, "generate")

	raw := resp.Text()
	content, err := DecodeContent(raw)
	if err != nil {
		zap.L().Warn("anthropic: undecodable response",
			zap.String("model", resp.Model),
			zap.Int("response_len", len(raw)),
		)
		return nil, Classify(anthropicName, err)
	}

	return &Result{
		Provider: anthropicName,
		Model:    resp.Model,
		Raw:      raw,
		Content:  content,
	}, nil
}
