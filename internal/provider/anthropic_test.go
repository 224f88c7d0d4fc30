package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizclone/pkg/anthropic"
)

// fakeAnthropicClient returns canned responses and records the last request.
type fakeAnthropicClient struct {
	resp *anthropic.MessageResponse
	err  error
	last anthropic.MessageRequest
}

func (f *fakeAnthropicClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestAnthropicProvider_Generate(t *testing.T) {
	client := &fakeAnthropicClient{
		resp: &anthropic.MessageResponse{
			ID:    "msg_1",
			Model: "claude-sonnet-4-5-20250929",
			Content: []anthropic.ContentBlock{
				{Type: "text", Text: "```json\n{\"overview\": \"a business\"}\n```"},
			},
			StopReason: "end_turn",
		},
	}
	p := NewAnthropicProvider(client, "")

	res, err := p.Generate(context.Background(), Request{
		System:    "You are an analyst.",
		Prompt:    "Analyze.",
		MaxTokens: 4096,
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, "a business", res.Content["overview"])

	assert.Equal(t, defaultAnthropicModel, client.last.Model)
	assert.Equal(t, int64(4096), client.last.MaxTokens)
	require.Len(t, client.last.System, 1)
	assert.Equal(t, "You are an analyst.", client.last.System[0].Text)
	require.NotNil(t, client.last.System[0].CacheControl, "system prompt should carry a cache breakpoint")
}

func TestAnthropicProvider_DefaultMaxTokens(t *testing.T) {
	client := &fakeAnthropicClient{
		resp: &anthropic.MessageResponse{
			Content: []anthropic.ContentBlock{{Type: "text", Text: "{}"}},
		},
	}
	p := NewAnthropicProvider(client, "claude-haiku-4-5-20251001")

	_, err := p.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(defaultMaxTokens), client.last.MaxTokens)
	assert.Equal(t, "claude-haiku-4-5-20251001", client.last.Model)
}

func TestAnthropicProvider_ClassifiesClientError(t *testing.T) {
	client := &fakeAnthropicClient{err: context.DeadlineExceeded}
	p := NewAnthropicProvider(client, "")

	_, err := p.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	var classified *Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ClassTimeout, classified.Class)
	assert.Equal(t, "anthropic", classified.Provider)
}
