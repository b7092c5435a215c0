package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/set-night/agentchat/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

const geminiDefaultModel = "gemini-1.5-flash"

var gemini15Price = decimal.RequireFromString("0.003")

// Gemini15Simulation mimics google-gemini-1.5: 20% failures, never rate limited.
func Gemini15Simulation() Simulation {
	return Simulation{
		MinLatency:    150 * time.Millisecond,
		MaxLatency:    400 * time.Millisecond,
		FailureChance: 0.2,
	}
}

// Gemini15 reaches Gemini through its OpenAI-compatible endpoint when a key is configured.
type Gemini15 struct {
	sim *simulator
	llm llms.Model
}

func NewGemini15(opts Options) (*Gemini15, error) {
	a := &Gemini15{sim: newSimulator(opts.simulation(Gemini15Simulation()), opts.Rand)}
	if opts.APIKey == "" {
		return a, nil
	}

	model := opts.Model
	if model == "" {
		model = geminiDefaultModel
	}
	lcOpts := []lcopenai.Option{
		lcopenai.WithToken(opts.APIKey),
		lcopenai.WithModel(model),
	}
	if opts.BaseURL != "" {
		lcOpts = append(lcOpts, lcopenai.WithBaseURL(opts.BaseURL))
	}
	llm, err := lcopenai.New(lcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	a.llm = llm
	return a, nil
}

func (a *Gemini15) ID() domain.ProviderType      { return domain.ProviderGeminiFlash }
func (a *Gemini15) PricePer1K() decimal.Decimal { return gemini15Price }

func (a *Gemini15) Generate(ctx context.Context, prompt, text string) (*Result, error) {
	if a.llm != nil {
		return a.generateLive(ctx, prompt, text)
	}

	latency, err := a.sim.wait(ctx)
	if err != nil {
		return nil, err
	}
	if a.sim.failed() {
		return nil, internalError(a.ID())
	}

	out := a.sim.text()
	return &Result{
		Text:      out,
		TokensIn:  countTokens(prompt, text),
		TokensOut: countTokens(out),
		Latency:   latency,
	}, nil
}

func (a *Gemini15) generateLive(ctx context.Context, prompt, text string) (*Result, error) {
	start := time.Now()
	resp, err := a.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apiError(a.ID(), 0, nil, err)
	}
	if len(resp.Choices) == 0 {
		return nil, apiError(a.ID(), 0, nil, fmt.Errorf("no response choices"))
	}

	choice := resp.Choices[0]
	res := &Result{
		Text:      choice.Content,
		TokensIn:  generationInt(choice.GenerationInfo, "PromptTokens"),
		TokensOut: generationInt(choice.GenerationInfo, "CompletionTokens"),
		Latency:   time.Since(start),
	}
	if res.TokensIn == 0 {
		res.TokensIn = countTokens(prompt, text)
	}
	if res.TokensOut == 0 {
		res.TokensOut = countTokens(res.Text)
	}
	return res, nil
}

func generationInt(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
