package domain

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageRecord is written once per completed generation.
type UsageRecord struct {
	ID                   uuid.UUID
	AgentID              uuid.UUID
	Provider             ProviderType
	SessionID            uuid.UUID
	GenerativeResponseID uuid.UUID
	TokensIn             int
	TokensOut            int
	TotalTokens          int
	Cost                 decimal.Decimal
	CreatedAt            time.Time
}

var thousand = decimal.NewFromInt(1000)

// UsageCost prices a generation: (tokensIn + tokensOut) / 1000 * pricePer1K.
func UsageCost(tokensIn, tokensOut int, pricePer1K decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(tokensIn + tokensOut)).Div(thousand).Mul(pricePer1K)
}

type Metric string

const (
	MetricTotalTokens   Metric = "total_tokens"
	MetricTotalCost     Metric = "total_cost"
	MetricTotalSessions Metric = "total_sessions"
)

func (m Metric) Valid() bool {
	return m == MetricTotalTokens || m == MetricTotalCost || m == MetricTotalSessions
}

type Dimension string

const (
	DimensionNone     Dimension = ""
	DimensionProvider Dimension = "provider"
	DimensionAgent    Dimension = "agent"
	DimensionDay      Dimension = "day"
)

func (d Dimension) Valid() bool {
	switch d {
	case DimensionNone, DimensionProvider, DimensionAgent, DimensionDay:
		return true
	}
	return false
}

type TopN struct {
	Metric Metric
	Limit  int
}

// UsageQuery selects and groups usage records. StartDate and EndDate are inclusive.
type UsageQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Metrics   []Metric
	Dimension Dimension
	TopN      *TopN
}

func (q UsageQuery) Validate() error {
	if len(q.Metrics) == 0 {
		return fmt.Errorf("%w: at least one metric is required", ErrInvalidMetric)
	}
	for _, m := range q.Metrics {
		if !m.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidMetric, m)
		}
	}
	if !q.Dimension.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDimension, q.Dimension)
	}
	if q.TopN != nil {
		if !q.TopN.Metric.Valid() {
			return fmt.Errorf("%w: top-n %q", ErrInvalidMetric, q.TopN.Metric)
		}
		if q.TopN.Limit <= 0 {
			return fmt.Errorf("%w: top-n limit must be positive", ErrValidation)
		}
	}
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrValidation)
	}
	return nil
}

func (q UsageQuery) Wants(m Metric) bool {
	return slices.Contains(q.Metrics, m)
}

// InRange reports whether t falls inside the inclusive date window.
func (q UsageQuery) InRange(t time.Time) bool {
	if q.StartDate != nil && t.Before(*q.StartDate) {
		return false
	}
	if q.EndDate != nil && t.After(*q.EndDate) {
		return false
	}
	return true
}

// UsageRow is one aggregated group. Metrics that were not requested stay nil.
// Key holds the dimension value; for the agent dimension AgentID is set and
// Key is replaced by the agent name once resolved.
type UsageRow struct {
	Key           string
	AgentID       *uuid.UUID
	TotalTokens   *int64
	TotalCost     *decimal.Decimal
	TotalSessions *int64
}

// UsageTotals are the raw group sums before metric selection.
type UsageTotals struct {
	Key      string
	Tokens   int64
	Cost     decimal.Decimal
	Sessions int64
}

func (t UsageTotals) value(m Metric) decimal.Decimal {
	switch m {
	case MetricTotalTokens:
		return decimal.NewFromInt(t.Tokens)
	case MetricTotalCost:
		return t.Cost
	default:
		return decimal.NewFromInt(t.Sessions)
	}
}

// DimensionKey returns the grouping key of a record for the given dimension.
func DimensionKey(d Dimension, r UsageRecord) string {
	switch d {
	case DimensionProvider:
		return string(r.Provider)
	case DimensionAgent:
		return r.AgentID.String()
	case DimensionDay:
		return r.CreatedAt.UTC().Format(time.DateOnly)
	}
	return ""
}

// AggregateUsage groups records in memory. Storage backends that can push the
// aggregation down produce the same totals and finish with ShapeUsageRows.
func AggregateUsage(records []UsageRecord, q UsageQuery) []UsageRow {
	groups := make(map[string]*UsageTotals)
	sessions := make(map[string]map[uuid.UUID]struct{})
	var order []string

	for _, r := range records {
		if !q.InRange(r.CreatedAt) {
			continue
		}
		key := DimensionKey(q.Dimension, r)
		g, ok := groups[key]
		if !ok {
			g = &UsageTotals{Key: key, Cost: decimal.Zero}
			groups[key] = g
			sessions[key] = make(map[uuid.UUID]struct{})
			order = append(order, key)
		}
		g.Tokens += int64(r.TotalTokens)
		g.Cost = g.Cost.Add(r.Cost)
		sessions[key][r.SessionID] = struct{}{}
	}

	totals := make([]UsageTotals, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.Sessions = int64(len(sessions[key]))
		totals = append(totals, *g)
	}
	return ShapeUsageRows(totals, q)
}

// ShapeUsageRows orders and truncates group totals and keeps only the requested metrics.
func ShapeUsageRows(totals []UsageTotals, q UsageQuery) []UsageRow {
	if q.TopN != nil {
		m := q.TopN.Metric
		sort.SliceStable(totals, func(i, j int) bool {
			c := totals[i].value(m).Cmp(totals[j].value(m))
			if c != 0 {
				return c > 0
			}
			return strings.Compare(totals[i].Key, totals[j].Key) < 0
		})
		if len(totals) > q.TopN.Limit {
			totals = totals[:q.TopN.Limit]
		}
	} else {
		sort.SliceStable(totals, func(i, j int) bool {
			return totals[i].Key < totals[j].Key
		})
	}

	rows := make([]UsageRow, 0, len(totals))
	for _, t := range totals {
		row := UsageRow{Key: t.Key}
		if q.Dimension == DimensionAgent {
			if id, err := uuid.Parse(t.Key); err == nil {
				row.AgentID = &id
			}
		}
		if q.Wants(MetricTotalTokens) {
			v := t.Tokens
			row.TotalTokens = &v
		}
		if q.Wants(MetricTotalCost) {
			v := t.Cost
			row.TotalCost = &v
		}
		if q.Wants(MetricTotalSessions) {
			v := t.Sessions
			row.TotalSessions = &v
		}
		rows = append(rows, row)
	}
	return rows
}
