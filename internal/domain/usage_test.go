package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageCost(t *testing.T) {
	cost := UsageCost(5, 10, decimal.RequireFromString("0.002"))
	assert.True(t, cost.Equal(decimal.RequireFromString("0.00003")), "got %s", cost)
}

func usageRecord(provider ProviderType, session uuid.UUID, tokens int, cost string, at time.Time) UsageRecord {
	return UsageRecord{
		ID:                   uuid.New(),
		AgentID:              uuid.New(),
		Provider:             provider,
		SessionID:            session,
		GenerativeResponseID: uuid.New(),
		TotalTokens:          tokens,
		Cost:                 decimal.RequireFromString(cost),
		CreatedAt:            at,
	}
}

func TestAggregateUsageCountsDistinctSessions(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s1, s2 := uuid.New(), uuid.New()
	records := []UsageRecord{
		usageRecord(ProviderGPT35, s1, 10, "0.00002", now),
		usageRecord(ProviderGPT35, s1, 20, "0.00004", now),
		usageRecord(ProviderGPT35, s2, 30, "0.00006", now),
	}

	rows := AggregateUsage(records, UsageQuery{
		Metrics: []Metric{MetricTotalTokens, MetricTotalCost, MetricTotalSessions},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Key)
	assert.EqualValues(t, 60, *rows[0].TotalTokens)
	assert.True(t, rows[0].TotalCost.Equal(decimal.RequireFromString("0.00012")))
	assert.EqualValues(t, 2, *rows[0].TotalSessions)
}

func TestAggregateUsageByProviderWithTopN(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []UsageRecord{
		usageRecord(ProviderGPT35, uuid.New(), 10, "0.1", now),
		usageRecord(ProviderClaude35, uuid.New(), 50, "0.05", now),
		usageRecord(ProviderClaude35, uuid.New(), 5, "0.005", now),
		usageRecord(ProviderGeminiFlash, uuid.New(), 30, "0.09", now),
	}

	rows := AggregateUsage(records, UsageQuery{
		Metrics:   []Metric{MetricTotalTokens},
		Dimension: DimensionProvider,
		TopN:      &TopN{Metric: MetricTotalTokens, Limit: 2},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, string(ProviderClaude35), rows[0].Key)
	assert.EqualValues(t, 55, *rows[0].TotalTokens)
	assert.Equal(t, string(ProviderGeminiFlash), rows[1].Key)
	assert.Nil(t, rows[0].TotalCost)
	assert.Nil(t, rows[0].TotalSessions)
}

func TestAggregateUsageDateWindowIsInclusive(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	records := []UsageRecord{
		usageRecord(ProviderGPT35, uuid.New(), 1, "0", start),
		usageRecord(ProviderGPT35, uuid.New(), 2, "0", end),
		usageRecord(ProviderGPT35, uuid.New(), 4, "0", end.Add(time.Second)),
		usageRecord(ProviderGPT35, uuid.New(), 8, "0", start.Add(-time.Second)),
	}

	rows := AggregateUsage(records, UsageQuery{
		StartDate: &start,
		EndDate:   &end,
		Metrics:   []Metric{MetricTotalTokens},
		Dimension: DimensionDay,
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "2024-05-01", rows[0].Key)
	assert.EqualValues(t, 1, *rows[0].TotalTokens)
	assert.Equal(t, "2024-05-02", rows[1].Key)
	assert.EqualValues(t, 2, *rows[1].TotalTokens)
}

func TestAggregateUsageAgentDimensionSetsAgentID(t *testing.T) {
	r := usageRecord(ProviderGPT35, uuid.New(), 3, "0", time.Now())
	rows := AggregateUsage([]UsageRecord{r}, UsageQuery{
		Metrics:   []Metric{MetricTotalSessions},
		Dimension: DimensionAgent,
	})
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].AgentID)
	assert.Equal(t, r.AgentID, *rows[0].AgentID)
}

func TestUsageQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   UsageQuery
		wantErr error
	}{
		{"no metrics", UsageQuery{}, ErrInvalidMetric},
		{"unknown metric", UsageQuery{Metrics: []Metric{"latency"}}, ErrInvalidMetric},
		{"unknown dimension", UsageQuery{Metrics: []Metric{MetricTotalCost}, Dimension: "country"}, ErrInvalidDimension},
		{"zero limit", UsageQuery{Metrics: []Metric{MetricTotalCost}, TopN: &TopN{Metric: MetricTotalCost}}, ErrValidation},
		{"ok", UsageQuery{Metrics: []Metric{MetricTotalCost}, Dimension: DimensionAgent}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
