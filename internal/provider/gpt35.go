package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/shopspring/decimal"
)

var gpt35Price = decimal.RequireFromString("0.002")

// GPT35Simulation mimics gpt-3.5-turbo: occasional slow responses, 10% failures, 15% rate limits.
func GPT35Simulation() Simulation {
	return Simulation{
		MinLatency:      100 * time.Millisecond,
		MaxLatency:      300 * time.Millisecond,
		SlowChance:      0.3,
		SlowMinLatency:  800 * time.Millisecond,
		SlowMaxLatency:  1500 * time.Millisecond,
		FailureChance:   0.1,
		RateLimitChance: 0.15,
		MinRetryAfter:   500 * time.Millisecond,
		MaxRetryAfter:   2000 * time.Millisecond,
	}
}

type GPT35 struct {
	sim    *simulator
	client *openai.Client
	model  string
}

func NewGPT35(opts Options) *GPT35 {
	a := &GPT35{
		sim:   newSimulator(opts.simulation(GPT35Simulation()), opts.Rand),
		model: opts.Model,
	}
	if a.model == "" {
		a.model = openai.ChatModelGPT3_5Turbo
	}
	if opts.APIKey != "" {
		reqOpts := []openaioption.RequestOption{
			openaioption.WithAPIKey(opts.APIKey),
			openaioption.WithMaxRetries(0),
		}
		if opts.BaseURL != "" {
			reqOpts = append(reqOpts, openaioption.WithBaseURL(opts.BaseURL))
		}
		client := openai.NewClient(reqOpts...)
		a.client = &client
	}
	return a
}

func (a *GPT35) ID() domain.ProviderType      { return domain.ProviderGPT35 }
func (a *GPT35) PricePer1K() decimal.Decimal { return gpt35Price }

func (a *GPT35) Generate(ctx context.Context, prompt, text string) (*Result, error) {
	if a.client != nil {
		return a.generateLive(ctx, prompt, text)
	}

	latency, err := a.sim.wait(ctx)
	if err != nil {
		return nil, err
	}
	if a.sim.failed() {
		return nil, internalError(a.ID())
	}
	if delay, ok := a.sim.rateLimited(); ok {
		return nil, rateLimited(a.ID(), delay)
	}

	out := a.sim.text()
	return &Result{
		Text:      out,
		TokensIn:  countTokens(prompt, text),
		TokensOut: countTokens(out),
		Latency:   latency,
	}, nil
}

func (a *GPT35) generateLive(ctx context.Context, prompt, text string) (*Result, error) {
	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		var apiErr *openai.Error
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
	if len(resp.Choices) == 0 {
		return nil, apiError(a.ID(), 0, nil, fmt.Errorf("no choices returned"))
	}

	out := resp.Choices[0].Message.Content
	return &Result{
		Text:      out,
		TokensIn:  int(resp.Usage.PromptTokens),
		TokensOut: int(resp.Usage.CompletionTokens),
		Latency:   time.Since(start),
	}, nil
}
