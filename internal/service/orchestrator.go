package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/provider"
	"github.com/set-night/agentchat/internal/repository"
	"github.com/set-night/agentchat/internal/reqctx"
	"github.com/set-night/agentchat/internal/retry"
	"github.com/set-night/agentchat/internal/worker"
)

// GenerativeService drives a reply placeholder to its final content.
type GenerativeService struct {
	router      *repository.Router
	registry    *provider.Registry
	usage       *UsageService
	maxAttempts int
}

func NewGenerativeService(router *repository.Router, registry *provider.Registry, usage *UsageService, maxAttempts int) *GenerativeService {
	if maxAttempts <= 0 {
		maxAttempts = retry.DefaultMaxAttempts
	}
	return &GenerativeService{router: router, registry: registry, usage: usage, maxAttempts: maxAttempts}
}

// HandleJob is the worker entry point. The context must already carry the job's tenant.
func (s *GenerativeService) HandleJob(ctx context.Context, job worker.Job) {
	logger := reqctx.Logger(ctx).With("job_id", job.ID, "message_id", job.MessageID)

	h, err := s.router.FromContext(ctx)
	if err != nil {
		logger.Error("resolve tenant for job", "error", err)
		return
	}
	sessions, err := h.Sessions(ctx)
	if err != nil {
		logger.Error("prepare sessions", "error", err)
		return
	}
	sess, err := sessions.Get(ctx, job.SessionID)
	if err != nil {
		logger.Error("load session for job", "session_id", job.SessionID, "error", err)
		return
	}

	content, err := s.Converse(ctx, sess, job.Content, job.MessageID)
	if err != nil {
		logger.Error("converse", "error", err)
		return
	}
	logger.Info("reply completed", "session_id", sess.ID, "length", len(content))
}

// Converse generates the reply with the agent's primary provider, falling back
// to the secondary provider on a provider failure. When neither succeeds the
// reply is finalized with GenerationFailedMessage, which is also returned.
// Only a failure to load the agent or to write the final content is returned as an error.
func (s *GenerativeService) Converse(ctx context.Context, sess *domain.Session, content string, replyID uuid.UUID) (string, error) {
	logger := reqctx.Logger(ctx).With("session_id", sess.ID, "message_id", replyID)

	h, err := s.router.FromContext(ctx)
	if err != nil {
		return "", err
	}
	agents, err := h.Agents(ctx)
	if err != nil {
		return "", err
	}
	agent, err := agents.Get(ctx, sess.AgentID)
	if err != nil {
		return "", fmt.Errorf("load agent: %w", err)
	}

	text, err := s.generateResponse(ctx, h, agent.PrimaryProvider, agent, sess, content, replyID)
	if err == nil {
		return text, nil
	}
	logger.Warn("primary provider failed", "provider", agent.PrimaryProvider, "error", err)

	if provider.IsProviderError(err) && agent.FallbackProvider != nil {
		text, err = s.generateResponse(ctx, h, *agent.FallbackProvider, agent, sess, content, replyID)
		if err == nil {
			return text, nil
		}
		logger.Warn("fallback provider failed", "provider", *agent.FallbackProvider, "error", err)
	}

	return s.fail(ctx, h, replyID)
}

func (s *GenerativeService) generateResponse(ctx context.Context, h *repository.Handle, p domain.ProviderType, agent *domain.Agent, sess *domain.Session, content string, replyID uuid.UUID) (string, error) {
	adapter, err := s.registry.Get(p)
	if err != nil {
		return "", err
	}

	res, err := retry.Do(ctx, s.maxAttempts, func(ctx context.Context) (*provider.Result, error) {
		return adapter.Generate(ctx, agent.Prompt, content)
	})
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf("Response from %s: %s", adapter.ID(), res.Text)
	msgs, err := h.Messages(ctx)
	if err != nil {
		return "", err
	}
	record := &domain.UsageRecord{
		ID:                   uuid.New(),
		AgentID:              agent.ID,
		Provider:             adapter.ID(),
		SessionID:            sess.ID,
		GenerativeResponseID: replyID,
		TokensIn:             res.TokensIn,
		TokensOut:            res.TokensOut,
		TotalTokens:          res.TokensIn + res.TokensOut,
		Cost:                 domain.UsageCost(res.TokensIn, res.TokensOut, adapter.PricePer1K()),
	}

	done, err := msgs.Complete(ctx, replyID, text)
	if err != nil {
		return "", fmt.Errorf("complete reply: %w", err)
	}
	if !done {
		// Someone else finalized the reply first; their content stands and nothing is billed.
		reqctx.Logger(ctx).Warn("reply already finalized", "message_id", replyID, "provider", adapter.ID())
		stored, err := msgs.Get(ctx, replyID)
		if err != nil {
			return "", fmt.Errorf("load finalized reply: %w", err)
		}
		return stored.Content, nil
	}

	if err := s.usage.Track(ctx, h, record); err != nil {
		reqctx.Logger(ctx).Error("track usage", "message_id", replyID, "error", err)
	}
	return text, nil
}

func (s *GenerativeService) fail(ctx context.Context, h *repository.Handle, replyID uuid.UUID) (string, error) {
	msgs, err := h.Messages(ctx)
	if err != nil {
		return "", err
	}
	if _, err := msgs.Complete(ctx, replyID, config.GenerationFailedMessage); err != nil {
		return "", fmt.Errorf("write failure reply: %w", errors.Join(err, ctx.Err()))
	}
	return config.GenerationFailedMessage, nil
}
