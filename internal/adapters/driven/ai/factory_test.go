package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  domain.LLMSettings
		wantNil   bool
		wantErr   error
		wantModel string
	}{
		{
			name:    "unconfigured settings returns nil",
			wantNil: true,
		},
		{
			name:      "ollama provider creates service",
			settings:  domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
			wantModel: "llama3.2",
		},
		{
			name:      "openai provider creates service",
			settings:  domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "test-key"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "anthropic provider creates service",
			settings:  domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "test-key", Model: "claude-3-5-haiku-latest"},
			wantModel: "claude-3-5-haiku-latest",
		},
		{
			name:     "openai without key fails",
			settings: domain.LLMSettings{Provider: domain.AIProviderOpenAI},
			wantNil:  true,
			wantErr:  domain.ErrInvalidConfig,
		},
		{
			name:     "unknown provider fails",
			settings: domain.LLMSettings{Provider: "mistral"},
			wantNil:  true,
			wantErr:  domain.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestValidateLLMConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := ValidateLLMConfig(context.Background(), domain.LLMSettings{
		Provider: domain.AIProviderOpenAI,
		APIKey:   "bad",
		BaseURL:  srv.URL,
	})
	assert.ErrorContains(t, err, "status 401")

	assert.NoError(t, ValidateLLMConfig(context.Background(), domain.LLMSettings{}))
}
