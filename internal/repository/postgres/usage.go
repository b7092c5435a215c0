package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
)

type UsageStore struct{ db DBTX }

func (s *UsageStore) Create(ctx context.Context, u *domain.UsageRecord) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO usages (id, agent_id, provider, session_id, generative_response_id,
			tokens_in, tokens_out, total_tokens, cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		u.ID, u.AgentID, string(u.Provider), u.SessionID, u.GenerativeResponseID,
		u.TokensIn, u.TokensOut, u.TotalTokens, u.Cost,
	)
	if err := row.Scan(&u.CreatedAt); err != nil {
		return fmt.Errorf("insert usage: %w", mapErr(err, nil))
	}
	return nil
}

func (s *UsageStore) ListByResponseIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.UsageRecord, error) {
	out := make(map[uuid.UUID]domain.UsageRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, agent_id, provider, session_id, generative_response_id,
			tokens_in, tokens_out, total_tokens, cost, created_at
		FROM usages WHERE generative_response_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			u        domain.UsageRecord
			provider string
		)
		if err := rows.Scan(&u.ID, &u.AgentID, &provider, &u.SessionID, &u.GenerativeResponseID,
			&u.TokensIn, &u.TokensOut, &u.TotalTokens, &u.Cost, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		u.Provider = domain.ProviderType(provider)
		out[u.GenerativeResponseID] = u
	}
	return out, rows.Err()
}

var dimensionKeys = map[domain.Dimension]string{
	domain.DimensionNone:     "''",
	domain.DimensionProvider: "provider",
	domain.DimensionAgent:    "agent_id::text",
	domain.DimensionDay:      "to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')",
}

var metricColumns = map[domain.Metric]string{
	domain.MetricTotalTokens:   "total_tokens",
	domain.MetricTotalCost:     "total_cost",
	domain.MetricTotalSessions: "total_sessions",
}

// Aggregate groups in SQL and applies top-N ordering in the database.
func (s *UsageStore) Aggregate(ctx context.Context, q domain.UsageQuery) ([]domain.UsageRow, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + dimensionKeys[q.Dimension] + ` AS group_key,
			COALESCE(SUM(total_tokens), 0)::bigint AS total_tokens,
			COALESCE(SUM(cost), 0) AS total_cost,
			COUNT(DISTINCT session_id) AS total_sessions
		FROM usages
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)`
	if q.Dimension == domain.DimensionNone {
		query += " HAVING COUNT(*) > 0"
	} else {
		query += " GROUP BY group_key"
	}
	args := []any{q.StartDate, q.EndDate}
	if q.TopN != nil {
		query += " ORDER BY " + metricColumns[q.TopN.Metric] + " DESC, group_key LIMIT $3"
		args = append(args, q.TopN.Limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate usage: %w", err)
	}
	defer rows.Close()

	var totals []domain.UsageTotals
	for rows.Next() {
		var t domain.UsageTotals
		if err := rows.Scan(&t.Key, &t.Tokens, &t.Cost, &t.Sessions); err != nil {
			return nil, fmt.Errorf("scan usage group: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.ShapeUsageRows(totals, q), nil
}
