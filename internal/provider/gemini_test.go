package provider

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFromCandidates(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []genai.Part{genai.Text(`{"overview":`), genai.Text(` "a business"}`)},
				},
			},
		},
	}

	text, err := textFromCandidates(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"overview": "a business"}`, text)
}

func TestTextFromCandidates_Empty(t *testing.T) {
	_, err := textFromCandidates(&genai.GenerateContentResponse{})
	require.Error(t, err)
	var classified *Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ClassValidation, classified.Class)
}

func TestNewGeminiProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "")
	require.Error(t, err)
}
