package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *Conn {
	t.Helper()
	c, err := NewBackend().Connect(context.Background(), "tenant_test")
	require.NoError(t, err)
	return c.(*Conn)
}

func userMessage(session uuid.UUID, key string) *domain.Message {
	return &domain.Message{
		ID:         uuid.New(),
		SessionID:  session,
		SenderID:   uuid.New(),
		SenderType: domain.SenderUser,
		Content:    "hello",
		UniqKey:    &key,
	}
}

func TestMessageUniqKeyIsUniquePerSession(t *testing.T) {
	ctx := context.Background()
	msgs := connect(t).Messages()
	session := uuid.New()

	require.NoError(t, msgs.Create(ctx, userMessage(session, "k1")))
	err := msgs.Create(ctx, userMessage(session, "k1"))
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	require.NoError(t, msgs.Create(ctx, userMessage(uuid.New(), "k1")))
}

func TestCompleteFlipsOnce(t *testing.T) {
	ctx := context.Background()
	msgs := connect(t).Messages()
	m := &domain.Message{ID: uuid.New(), SessionID: uuid.New(), SenderType: domain.SenderAgent, Content: "...", IsGenerating: true}
	require.NoError(t, msgs.Create(ctx, m))

	done, err := msgs.Complete(ctx, m.ID, "first")
	require.NoError(t, err)
	assert.True(t, done)

	done, err = msgs.Complete(ctx, m.ID, "second")
	require.NoError(t, err)
	assert.False(t, done)

	got, err := msgs.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Content)
	assert.False(t, got.IsGenerating)

	_, err = msgs.Complete(ctx, uuid.New(), "x")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	c := connect(t)
	session := uuid.New()
	failure := errors.New("abort")

	err := c.InTx(ctx, func(tx repository.Conn) error {
		require.NoError(t, tx.Messages().Create(ctx, userMessage(session, "k")))
		return failure
	})
	assert.ErrorIs(t, err, failure)

	_, err = c.Messages().GetByUniqKey(ctx, session, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = c.InTx(ctx, func(tx repository.Conn) error {
		return tx.Messages().Create(ctx, userMessage(session, "k"))
	})
	require.NoError(t, err)
	_, err = c.Messages().GetByUniqKey(ctx, session, "k")
	assert.NoError(t, err)
}

func TestUsageOnePerResponse(t *testing.T) {
	ctx := context.Background()
	usage := connect(t).Usage()
	resp := uuid.New()
	rec := func() *domain.UsageRecord {
		return &domain.UsageRecord{ID: uuid.New(), GenerativeResponseID: resp, Provider: domain.ProviderGPT35, Cost: decimal.Zero}
	}

	require.NoError(t, usage.Create(ctx, rec()))
	assert.ErrorIs(t, usage.Create(ctx, rec()), domain.ErrDuplicate)

	found, err := usage.ListByResponseIDs(ctx, []uuid.UUID{resp, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestListBySessionKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	msgs := connect(t).Messages()
	session := uuid.New()
	at := time.Now().UTC()

	first := userMessage(session, "a")
	first.CreatedAt = at
	second := &domain.Message{ID: uuid.New(), SessionID: session, SenderType: domain.SenderAgent, IsGenerating: true, CreatedAt: at, ReplyToMessageID: &first.ID}
	require.NoError(t, msgs.Create(ctx, first))
	require.NoError(t, msgs.Create(ctx, second))

	list, err := msgs.ListBySession(ctx, session)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	reply, err := msgs.GetReply(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, reply.ID)
}

func TestTenantsOnlyInGlobalNamespace(t *testing.T) {
	b := NewBackend()
	ctx := context.Background()
	c, err := b.Connect(ctx, "tenant_x")
	require.NoError(t, err)
	assert.Error(t, b.Prepare(ctx, c, "tenant_x", repository.EntityTenant))

	g, err := b.Connect(ctx, repository.GlobalNamespace)
	require.NoError(t, err)
	assert.NoError(t, b.Prepare(ctx, g, repository.GlobalNamespace, repository.EntityTenant))
}
