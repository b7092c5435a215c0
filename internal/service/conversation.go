package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/repository"
	"github.com/set-night/agentchat/internal/reqctx"
	"github.com/set-night/agentchat/internal/worker"
)

// Dispatcher accepts generation jobs for asynchronous processing.
type Dispatcher interface {
	Submit(job worker.Job) error
}

type ConversationService struct {
	router     *repository.Router
	dispatcher Dispatcher
	usage      *UsageService
}

func NewConversationService(router *repository.Router, dispatcher Dispatcher, usage *UsageService) *ConversationService {
	return &ConversationService{router: router, dispatcher: dispatcher, usage: usage}
}

// CreateConversation stores the user's message together with a generating
// placeholder reply and hands the reply off for generation. Repeating a call
// with the same uniqKey in the same session returns the original pair.
func (s *ConversationService) CreateConversation(ctx context.Context, sessionID uuid.UUID, uniqKey, content string) (*domain.Exchange, error) {
	if uniqKey == "" {
		return nil, domain.ErrMissingUniqKey
	}
	if content == "" {
		return nil, domain.ErrEmptyContent
	}
	userID, err := reqctx.UserID(ctx)
	if err != nil {
		return nil, err
	}

	h, err := s.router.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := loadOwnedSession(ctx, h, sessionID)
	if err != nil {
		return nil, err
	}
	msgs, err := h.Messages(ctx)
	if err != nil {
		return nil, err
	}

	ex, err := existingExchange(ctx, msgs, sessionID, uniqKey)
	if err == nil {
		return ex, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	key := uniqKey
	userMsg := &domain.Message{
		ID:         uuid.New(),
		SessionID:  sess.ID,
		SenderID:   userID,
		SenderType: domain.SenderUser,
		Content:    content,
		UniqKey:    &key,
	}
	agentMsg := &domain.Message{
		ID:               uuid.New(),
		SessionID:        sess.ID,
		SenderID:         sess.AgentID,
		SenderType:       domain.SenderAgent,
		Content:          config.GeneratingPlaceholder,
		IsGenerating:     true,
		ReplyToMessageID: &userMsg.ID,
	}

	err = h.InTx(ctx, []repository.Entity{repository.EntityMessage}, func(tx repository.Conn) error {
		if err := tx.Messages().Create(ctx, userMsg); err != nil {
			return err
		}
		return tx.Messages().Create(ctx, agentMsg)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		// A concurrent call with the same key won the insert.
		return existingExchange(ctx, msgs, sessionID, uniqKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	logger := reqctx.Logger(ctx)
	job := worker.Job{
		ID:        uuid.New(),
		TenantID:  tenantOf(ctx),
		UserID:    userID,
		SessionID: sess.ID,
		MessageID: agentMsg.ID,
		Content:   content,
	}
	if r := reqctx.From(ctx); r != nil {
		job.RequestID = r.RequestID
	}
	if err := s.dispatcher.Submit(job); err != nil {
		// The placeholder stays generating until the stale sweep finalizes it.
		logger.Error("dispatch generation", "message_id", agentMsg.ID, "error", err)
	} else {
		logger.Debug("generation dispatched", "message_id", agentMsg.ID, "job_id", job.ID)
	}

	return &domain.Exchange{UserMessage: userMsg, AgentMessage: agentMsg}, nil
}

// GetMessage returns a message, with usage attached when it is a completed reply.
func (s *ConversationService) GetMessage(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	h, err := s.router.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := h.Messages(ctx)
	if err != nil {
		return nil, err
	}
	m, err := msgs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := loadOwnedSession(ctx, h, m.SessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}

	one := []domain.Message{*m}
	if err := s.usage.attach(ctx, h, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// GetTranscript lists a session's messages oldest first.
func (s *ConversationService) GetTranscript(ctx context.Context, sessionID uuid.UUID) ([]domain.Message, error) {
	h, err := s.router.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := loadOwnedSession(ctx, h, sessionID); err != nil {
		return nil, err
	}
	msgs, err := h.Messages(ctx)
	if err != nil {
		return nil, err
	}
	list, err := msgs.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if err := s.usage.attach(ctx, h, list); err != nil {
		return nil, err
	}
	return list, nil
}

// AwaitReply polls a reply until it is no longer generating. On timeout it
// returns the last observed message together with context.DeadlineExceeded.
func (s *ConversationService) AwaitReply(ctx context.Context, messageID uuid.UUID, interval, timeout time.Duration) (*domain.Message, error) {
	if interval <= 0 {
		interval = config.ReplyPollInterval
	}
	if timeout <= 0 {
		timeout = config.ReplyPollTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *domain.Message
	for {
		m, err := s.GetMessage(ctx, messageID)
		switch {
		case err == nil:
			if !m.IsGenerating {
				return m, nil
			}
			last = m
		case ctx.Err() != nil:
			return last, ctx.Err()
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

func existingExchange(ctx context.Context, msgs domain.MessageStore, sessionID uuid.UUID, uniqKey string) (*domain.Exchange, error) {
	userMsg, err := msgs.GetByUniqKey(ctx, sessionID, uniqKey)
	if err != nil {
		return nil, err
	}
	reply, err := msgs.GetReply(ctx, userMsg.ID)
	if err != nil {
		return nil, fmt.Errorf("load reply for %s: %w", userMsg.ID, err)
	}
	return &domain.Exchange{UserMessage: userMsg, AgentMessage: reply}, nil
}

func tenantOf(ctx context.Context) uuid.UUID {
	id, _ := reqctx.TenantID(ctx)
	return id
}
