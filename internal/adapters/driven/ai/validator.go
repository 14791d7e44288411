package ai

import (
	"context"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(settings domain.LLMSettings) error {
	return ValidateLLMConfig(context.Background(), settings)
}
