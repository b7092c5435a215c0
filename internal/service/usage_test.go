package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsage(t *testing.T, fx *fixture, ctx context.Context, recs ...domain.UsageRecord) {
	t.Helper()
	h, err := fx.router.FromContext(ctx)
	require.NoError(t, err)
	for _, r := range recs {
		r.ID = uuid.New()
		r.GenerativeResponseID = uuid.New()
		r.TotalTokens = r.TokensIn + r.TokensOut
		require.NoError(t, fx.usage.Track(ctx, h, &r))
	}
}

func TestAnalyticsRequiresDashboardScope(t *testing.T) {
	fx := newFixture(t)
	ctx := fx.userCtx(t, "alice@acme.test")

	_, err := fx.usage.Analytics(ctx, domain.UsageQuery{Metrics: []domain.Metric{domain.MetricTotalTokens}})
	assert.ErrorIs(t, err, domain.ErrMissingScope)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Scope is checked before the query is validated.
	_, err = fx.usage.Analytics(ctx, domain.UsageQuery{})
	assert.ErrorIs(t, err, domain.ErrMissingScope)
}

func TestAnalyticsValidatesQuery(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.usage.Analytics(fx.adminCtx, domain.UsageQuery{})
	assert.ErrorIs(t, err, domain.ErrInvalidMetric)

	_, err = fx.usage.Analytics(fx.adminCtx, domain.UsageQuery{
		Metrics:   []domain.Metric{domain.MetricTotalCost},
		Dimension: "region",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDimension)
}

func TestAnalyticsByAgentResolvesNames(t *testing.T) {
	fx := newFixture(t)
	writer := fx.agent(t, domain.ProviderGPT35, nil)
	coder := fx.agent(t, domain.ProviderClaude35, nil)
	ghost := uuid.New()
	sessA, sessB := uuid.New(), uuid.New()

	seedUsage(t, fx, fx.adminCtx,
		domain.UsageRecord{AgentID: writer.ID, Provider: domain.ProviderGPT35, SessionID: sessA, TokensIn: 10, TokensOut: 10, Cost: dec("0.00004")},
		domain.UsageRecord{AgentID: writer.ID, Provider: domain.ProviderGPT35, SessionID: sessA, TokensIn: 5, TokensOut: 5, Cost: dec("0.00002")},
		domain.UsageRecord{AgentID: coder.ID, Provider: domain.ProviderClaude35, SessionID: sessB, TokensIn: 50, TokensOut: 50, Cost: dec("0.0001")},
		domain.UsageRecord{AgentID: ghost, Provider: domain.ProviderGeminiFlash, SessionID: sessB, TokensIn: 1, TokensOut: 1, Cost: dec("0.000006")},
	)

	rows, err := fx.usage.Analytics(fx.adminCtx, domain.UsageQuery{
		Metrics:   []domain.Metric{domain.MetricTotalTokens, domain.MetricTotalSessions},
		Dimension: domain.DimensionAgent,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byName := make(map[string]domain.UsageRow, len(rows))
	for _, r := range rows {
		byName[r.Key] = r
	}
	require.Contains(t, byName, writer.Name)
	require.Contains(t, byName, coder.Name)
	require.Contains(t, byName, UnknownAgentName)

	assert.Equal(t, int64(30), *byName[writer.Name].TotalTokens)
	assert.Equal(t, int64(1), *byName[writer.Name].TotalSessions)
	assert.Equal(t, int64(100), *byName[coder.Name].TotalTokens)
	assert.Nil(t, byName[coder.Name].TotalCost, "unrequested metrics stay empty")
	require.NotNil(t, byName[UnknownAgentName].AgentID)
	assert.Equal(t, ghost, *byName[UnknownAgentName].AgentID)
}

func TestAnalyticsTopNByProvider(t *testing.T) {
	fx := newFixture(t)
	agent := fx.agent(t, domain.ProviderGPT35, nil)
	seedUsage(t, fx, fx.adminCtx,
		domain.UsageRecord{AgentID: agent.ID, Provider: domain.ProviderGPT35, SessionID: uuid.New(), TokensIn: 1, TokensOut: 1, Cost: dec("0.1")},
		domain.UsageRecord{AgentID: agent.ID, Provider: domain.ProviderClaude35, SessionID: uuid.New(), TokensIn: 1, TokensOut: 1, Cost: dec("0.5")},
		domain.UsageRecord{AgentID: agent.ID, Provider: domain.ProviderGeminiFlash, SessionID: uuid.New(), TokensIn: 1, TokensOut: 1, Cost: dec("0.3")},
	)

	rows, err := fx.usage.Analytics(fx.adminCtx, domain.UsageQuery{
		Metrics:   []domain.Metric{domain.MetricTotalCost},
		Dimension: domain.DimensionProvider,
		TopN:      &domain.TopN{Metric: domain.MetricTotalCost, Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, string(domain.ProviderClaude35), rows[0].Key)
	assert.Equal(t, string(domain.ProviderGeminiFlash), rows[1].Key)
}

func TestAnalyticsDateWindow(t *testing.T) {
	fx := newFixture(t)
	agent := fx.agent(t, domain.ProviderGPT35, nil)
	seedUsage(t, fx, fx.adminCtx,
		domain.UsageRecord{AgentID: agent.ID, Provider: domain.ProviderGPT35, SessionID: uuid.New(), TokensIn: 3, TokensOut: 4, Cost: dec("0.1")},
	)

	past := time.Now().Add(-48 * time.Hour)
	yesterday := time.Now().Add(-24 * time.Hour)
	rows, err := fx.usage.Analytics(fx.adminCtx, domain.UsageQuery{
		StartDate: &past,
		EndDate:   &yesterday,
		Metrics:   []domain.Metric{domain.MetricTotalTokens},
	})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = fx.usage.Analytics(fx.adminCtx, domain.UsageQuery{
		StartDate: &past,
		Metrics:   []domain.Metric{domain.MetricTotalTokens},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(7), *rows[0].TotalTokens)
}

func TestTrackIgnoresSecondRecordForResponse(t *testing.T) {
	fx := newFixture(t)
	h, err := fx.router.FromContext(fx.adminCtx)
	require.NoError(t, err)

	responseID := uuid.New()
	rec := domain.UsageRecord{ID: uuid.New(), GenerativeResponseID: responseID, Provider: domain.ProviderGPT35, TokensIn: 1, TokensOut: 1, TotalTokens: 2}
	require.NoError(t, fx.usage.Track(fx.adminCtx, h, &rec))

	dup := rec
	dup.ID = uuid.New()
	require.NoError(t, fx.usage.Track(fx.adminCtx, h, &dup))

	usage, err := h.Usage(fx.adminCtx)
	require.NoError(t, err)
	got, err := usage.ListByResponseIDs(fx.adminCtx, []uuid.UUID{responseID})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got[responseID].ID)
}
