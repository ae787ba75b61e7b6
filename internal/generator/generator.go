// Package generator produces tailored résumé and cover-letter content for one
// job posting by calling a language model.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"go.opentelemetry.io/otel/attribute"

	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/telemetry"
	"resume-tailor/resume/model"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultMaxAttempts = 3
	defaultTemperature = 0.2
	defaultMaxTokens   = 8000
	defaultBackoff     = 500 * time.Millisecond
	maxBackoff         = 10 * time.Second
	schemaName         = "tailored_content"
)

// Model is the subset of llmsdk.LanguageModel the generator needs.
type Model interface {
	Generate(ctx context.Context, input *llmsdk.LanguageModelInput) (*llmsdk.ModelResponse, error)
}

// Options configures a Generator. Zero values take defaults.
type Options struct {
	Timeout        time.Duration
	MaxAttempts    int
	Temperature    float64
	MaxTokens      int64
	InitialBackoff time.Duration
	// Rules maps a region to the layout rules sent in the prompt.
	Rules func(model.Region) RegionRules
}

// Generator turns a profile and a posting into TailoredContent.
type Generator struct {
	model          Model
	timeout        time.Duration
	maxAttempts    int
	temperature    float64
	maxTokens      uint32
	initialBackoff time.Duration
	rules          func(model.Region) RegionRules
}

// New returns a Generator backed by m.
func New(m Model, opts Options) *Generator {
	g := &Generator{
		model:          m,
		timeout:        opts.Timeout,
		maxAttempts:    opts.MaxAttempts,
		temperature:    opts.Temperature,
		maxTokens:      clampTokens(opts.MaxTokens),
		initialBackoff: opts.InitialBackoff,
		rules:          opts.Rules,
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = defaultMaxAttempts
	}
	if g.temperature <= 0 {
		g.temperature = defaultTemperature
	}
	if g.maxTokens == 0 {
		g.maxTokens = defaultMaxTokens
	}
	if g.initialBackoff <= 0 {
		g.initialBackoff = defaultBackoff
	}
	if g.rules == nil {
		g.rules = DefaultRules
	}
	return g
}

// Generate tailors content for job. Invalid input is reported as a
// *model.ValidationError before any model call; every later failure is a
// *GenerationError. The inputs are not modified.
func (g *Generator) Generate(ctx context.Context, profile model.Profile, job model.JobPosting, prefs map[string]string) (content model.TailoredContent, err error) {
	if err := model.ValidateProfile(profile); err != nil {
		return model.TailoredContent{}, err
	}
	if err := model.ValidateJob(job); err != nil {
		return model.TailoredContent{}, err
	}

	region := job.ResolveRegion()
	ctx, span := telemetry.StartSpan(ctx, "generator.generate",
		attribute.String("job_id", job.ID),
		attribute.String("region", string(region)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	prompt, err := buildPrompt(profile, job, g.rules(region), prefs)
	if err != nil {
		return model.TailoredContent{}, &GenerationError{Kind: KindInvalidResponse, Err: fmt.Errorf("build prompt: %w", err)}
	}
	input := g.input(prompt, job)
	companies := profileCompanies(profile)

	attempts := 0
	op := func() (model.TailoredContent, error) {
		attempts++
		out, err := g.once(ctx, input, companies)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil || !isTransient(err) {
			return model.TailoredContent{}, backoff.Permanent(err)
		}
		return model.TailoredContent{}, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.initialBackoff
	policy.MaxInterval = maxBackoff

	content, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(g.maxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.IncGeneratorRetry()
			telemetry.Warn("generator.retry", map[string]any{
				"job_id":  job.ID,
				"attempt": attempts,
				"wait_ms": wait.Milliseconds(),
				"error":   err.Error(),
			})
		}),
	)
	if err == nil {
		return content, nil
	}
	return model.TailoredContent{}, classify(ctx, err, attempts)
}

func classify(ctx context.Context, err error, attempts int) error {
	var invalid *invalidResponseError
	switch {
	case ctx.Err() != nil:
		return &GenerationError{Kind: KindTimeout, Attempts: attempts, Err: err}
	case errors.As(err, &invalid):
		return &GenerationError{Kind: KindInvalidResponse, Attempts: attempts, Err: err}
	default:
		return &GenerationError{Kind: KindUnavailable, Attempts: attempts, Err: err}
	}
}

func (g *Generator) input(prompt string, job model.JobPosting) *llmsdk.LanguageModelInput {
	system := systemPrompt
	desc := "Tailored resume, cover letter and ATS notes for one job posting"
	temperature := g.temperature
	maxTokens := g.maxTokens
	schema := outputSchemaSpec
	return &llmsdk.LanguageModelInput{
		SystemPrompt: &system,
		Messages: []llmsdk.Message{{
			UserMessage: &llmsdk.UserMessage{Content: []llmsdk.Part{{TextPart: &llmsdk.TextPart{Text: prompt}}}},
		}},
		ResponseFormat: &llmsdk.ResponseFormatOption{
			JSON: &llmsdk.ResponseFormatJSON{Name: schemaName, Description: &desc, Schema: &schema},
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Metadata:    map[string]string{"job_id": job.ID},
	}
}

// clampTokens fits a configured budget into the SDK's uint32 field.
func clampTokens(n int64) uint32 {
	switch {
	case n <= 0:
		return 0
	case n > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(n)
	}
}

// once performs a single bounded model call and checks the result.
func (g *Generator) once(ctx context.Context, input *llmsdk.LanguageModelInput, companies map[string]struct{}) (model.TailoredContent, error) {
	if g.model == nil {
		return model.TailoredContent{}, ErrNoProvider
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.Generate(callCtx, input)
	if err != nil {
		return model.TailoredContent{}, err
	}
	if resp.Usage != nil {
		telemetry.Info("generator.usage", map[string]any{
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
		})
	}

	payload, err := extractJSONObject(responseText(resp))
	if err != nil {
		return model.TailoredContent{}, err
	}
	problems, err := validateShape([]byte(payload))
	if err != nil {
		return model.TailoredContent{}, fmt.Errorf("%w: %v", errNoJSON, err)
	}
	if len(problems) > 0 {
		return model.TailoredContent{}, &invalidResponseError{problems: problems}
	}

	var content model.TailoredContent
	if err := json.Unmarshal([]byte(payload), &content); err != nil {
		return model.TailoredContent{}, &invalidResponseError{err: fmt.Errorf("decode response: %w", err)}
	}
	if err := checkCompanies(content, companies); err != nil {
		return model.TailoredContent{}, &invalidResponseError{err: err}
	}
	return content, nil
}

func responseText(resp *llmsdk.ModelResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Content {
		if part.TextPart != nil {
			b.WriteString(part.TextPart.Text)
		}
	}
	return b.String()
}

// extractJSONObject returns the outermost JSON object in raw, tolerating
// prose or code fences around it.
func extractJSONObject(raw string) (string, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return "", fmt.Errorf("%w: empty response", errNoJSON)
	}
	if json.Valid([]byte(payload)) && strings.HasPrefix(payload, "{") {
		return payload, nil
	}
	start := strings.Index(payload, "{")
	end := strings.LastIndex(payload, "}")
	if start == -1 || end <= start {
		return "", errNoJSON
	}
	candidate := payload[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("%w: malformed object", errNoJSON)
	}
	return candidate, nil
}

func profileCompanies(p model.Profile) map[string]struct{} {
	out := make(map[string]struct{}, len(p.Experience))
	for _, e := range p.Experience {
		out[normalizeCompany(e.Company)] = struct{}{}
	}
	return out
}

func normalizeCompany(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func checkCompanies(c model.TailoredContent, companies map[string]struct{}) error {
	for i, e := range c.Resume.Experience {
		name := normalizeCompany(e.Company)
		if name == "" {
			return fmt.Errorf("%w: experience[%d] has no company", ErrUnknownCompany, i)
		}
		if _, ok := companies[name]; !ok {
			return fmt.Errorf("%w: experience[%d] company %q", ErrUnknownCompany, i, e.Company)
		}
	}
	return nil
}
