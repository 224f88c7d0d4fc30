package provider

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

const (
	geminiName         = "gemini"
	defaultGeminiModel = "gemini-2.0-flash"
)

// GeminiProvider generates structured content through the Gemini API using
// native JSON response mode.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini-backed provider. An empty model selects
// the default.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return geminiName }

// Close releases the underlying API client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	model := p.client.GenerativeModel(p.model)
	model.ResponseMIMEType = "application/json"
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, Classify(geminiName, err)
	}

	raw, err := textFromCandidates(resp)
	if err != nil {
		return nil, Classify(geminiName, err)
	}

	content, err := DecodeContent(raw)
	if err != nil {
		return nil, Classify(geminiName, err)
	}

	return &Result{
		Provider: geminiName,
		Model:    p.model,
		Raw:      raw,
		Content:  content,
	}, nil
}

func textFromCandidates(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &Error{Class: ClassValidation, err: eris.New("gemini: empty response")}
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	if out == "" {
		return "", &Error{Class: ClassValidation, err: eris.New("gemini: no text parts in response")}
	}
	return out, nil
}
