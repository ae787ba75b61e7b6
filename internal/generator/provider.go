package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/hoangvvo/llm-sdk/sdk-go/anthropic"
	"github.com/hoangvvo/llm-sdk/sdk-go/google"
	"github.com/hoangvvo/llm-sdk/sdk-go/openai"

	"resume-tailor/resume/model"
)

// Provider names accepted by NewModel.
const (
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// ModelOptions selects and authenticates a provider model.
type ModelOptions struct {
	Provider string
	ModelID  string
	APIKey   string
	BaseURL  string
}

// NewModel builds the provider client. It returns ErrNoProvider when
// generation is disabled.
func NewModel(opts ModelOptions) (Model, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == ProviderNone || provider == "" {
		return nil, ErrNoProvider
	}
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, fmt.Errorf("%s: model id is required", provider)
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%s: api key is required", provider)
	}
	switch provider {
	case ProviderOpenAI:
		return openai.NewOpenAIModel(opts.ModelID, openai.OpenAIModelOptions{APIKey: opts.APIKey, BaseURL: opts.BaseURL}), nil
	case ProviderGoogle:
		return google.NewGoogleModel(opts.ModelID, google.GoogleModelOptions{APIKey: opts.APIKey, BaseURL: opts.BaseURL}), nil
	case ProviderAnthropic:
		return anthropic.NewAnthropicModel(opts.ModelID, anthropic.AnthropicModelOptions{APIKey: opts.APIKey, BaseURL: opts.BaseURL}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", opts.Provider)
	}
}

// Offline stands in for a Generator when no provider is configured. Every
// call fails as unavailable; substituting untailored content is the
// caller's decision.
type Offline struct{}

func (Offline) Generate(ctx context.Context, _ model.Profile, _ model.JobPosting, _ map[string]string) (model.TailoredContent, error) {
	if err := ctx.Err(); err != nil {
		return model.TailoredContent{}, &GenerationError{Kind: KindTimeout, Err: err}
	}
	return model.TailoredContent{}, &GenerationError{Kind: KindUnavailable, Err: ErrNoProvider}
}
