package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/shopspring/decimal"
)

const claudeMaxTokens = 1024

var claude35Price = decimal.RequireFromString("0.001")

// Claude35Simulation mimics claude-3.5-sonnet: never fails outright, 15% rate limits.
func Claude35Simulation() Simulation {
	return Simulation{
		MinLatency:      150 * time.Millisecond,
		MaxLatency:      400 * time.Millisecond,
		RateLimitChance: 0.15,
		MinRetryAfter:   500 * time.Millisecond,
		MaxRetryAfter:   2000 * time.Millisecond,
	}
}

type Claude35 struct {
	sim    *simulator
	client *anthropic.Client
	model  anthropic.Model
}

func NewClaude35(opts Options) *Claude35 {
	a := &Claude35{
		sim:   newSimulator(opts.simulation(Claude35Simulation()), opts.Rand),
		model: anthropic.ModelClaude3_5Sonnet20241022,
	}
	if opts.Model != "" {
		a.model = anthropic.Model(opts.Model)
	}
	if opts.APIKey != "" {
		reqOpts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(opts.APIKey),
			anthropicoption.WithMaxRetries(0),
		}
		if opts.BaseURL != "" {
			reqOpts = append(reqOpts, anthropicoption.WithBaseURL(opts.BaseURL))
		}
		client := anthropic.NewClient(reqOpts...)
		a.client = &client
	}
	return a
}

func (a *Claude35) ID() domain.ProviderType      { return domain.ProviderClaude35 }
func (a *Claude35) PricePer1K() decimal.Decimal { return claude35Price }

// Generate returns two candidate completions joined by a space.
func (a *Claude35) Generate(ctx context.Context, prompt, text string) (*Result, error) {
	if a.client != nil {
		return a.generateLive(ctx, prompt, text)
	}

	latency, err := a.sim.wait(ctx)
	if err != nil {
		return nil, err
	}
	if delay, ok := a.sim.rateLimited(); ok {
		return nil, rateLimited(a.ID(), delay)
	}

	first, second := a.sim.text(), a.sim.text()
	return &Result{
		Text:      first + " " + second,
		TokensIn:  countTokens(prompt, text),
		TokensOut: countTokens(first, second),
		Latency:   latency,
	}, nil
}

func (a *Claude35) generateLive(ctx context.Context, prompt, text string) (*Result, error) {
	start := time.Now()
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: claudeMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	}
	if prompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			var header map[string][]string
			if apiErr.Response != nil {
				header = apiErr.Response.Header
			}
			return nil, apiError(a.ID(), apiErr.StatusCode, header, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apiError(a.ID(), 0, nil, err)
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			if t := block.AsText().Text; t != "" {
				parts = append(parts, t)
			}
		}
	}
	return &Result{
		Text:      strings.Join(parts, " "),
		TokensIn:  int(resp.Usage.InputTokens),
		TokensOut: int(resp.Usage.OutputTokens),
		Latency:   time.Since(start),
	}, nil
}
