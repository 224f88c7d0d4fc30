package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
		wantErr bool
	}{
		{
			name:    "plain object",
			raw:     `{"overview": "a business"}`,
			wantKey: "overview",
		},
		{
			name:    "json code fence",
			raw:     "```json\n{\"overview\": \"a business\"}\n```",
			wantKey: "overview",
		},
		{
			name:    "bare code fence",
			raw:     "```\n{\"overview\": \"a business\"}\n```",
			wantKey: "overview",
		},
		{
			name:    "leading prose",
			raw:     "Here is the analysis you asked for:\n{\"overview\": \"a business\"}\nHope that helps!",
			wantKey: "overview",
		},
		{
			name:    "no json at all",
			raw:     "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "malformed object",
			raw:     `{"overview": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := DecodeContent(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var classified *Error
				require.ErrorAs(t, err, &classified)
				assert.Equal(t, ClassValidation, classified.Class)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, content, tt.wantKey)
		})
	}
}
