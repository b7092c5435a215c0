package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/set-night/agentchat/internal/domain"
	"github.com/spf13/cobra"
)

var (
	usageMetrics   []string
	usageDimension string
	usageTopMetric string
	usageTop       int
	usageSince     string
	usageUntil     string
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show token and cost analytics for --tenant",
	Long: `Aggregate usage records by provider, agent or day. Requires an admin --user
or the tenant system context.

Examples:
  agentchat --tenant acme.example usage
  agentchat --tenant acme.example usage --dimension agent --top 5 --top-metric total_cost
  agentchat --tenant acme.example usage --dimension day --since 2026-01-01 --until 2026-01-31`,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().StringSliceVar(&usageMetrics, "metric",
		[]string{string(domain.MetricTotalTokens), string(domain.MetricTotalCost), string(domain.MetricTotalSessions)},
		"metrics (total_tokens, total_cost, total_sessions)")
	usageCmd.Flags().StringVar(&usageDimension, "dimension", "", "group by provider, agent or day")
	usageCmd.Flags().StringVar(&usageTopMetric, "top-metric", string(domain.MetricTotalTokens), "metric ranking --top")
	usageCmd.Flags().IntVar(&usageTop, "top", 0, "keep only the top N groups")
	usageCmd.Flags().StringVar(&usageSince, "since", "", "start date, YYYY-MM-DD or RFC3339")
	usageCmd.Flags().StringVar(&usageUntil, "until", "", "end date, YYYY-MM-DD or RFC3339; a bare date includes the whole day")
}

func runUsage(cmd *cobra.Command, args []string) error {
	ctx, err := tenantContext(cmd.Context())
	if err != nil {
		return err
	}

	q := domain.UsageQuery{Dimension: domain.Dimension(usageDimension)}
	for _, m := range usageMetrics {
		q.Metrics = append(q.Metrics, domain.Metric(m))
	}
	if usageTop > 0 {
		q.TopN = &domain.TopN{Metric: domain.Metric(usageTopMetric), Limit: usageTop}
	}
	if q.StartDate, err = parseDate(usageSince, false); err != nil {
		return fmt.Errorf("invalid --since: %w", err)
	}
	if q.EndDate, err = parseDate(usageUntil, true); err != nil {
		return fmt.Errorf("invalid --until: %w", err)
	}

	rows, err := application.usage.Analytics(ctx, q)
	if err != nil {
		return err
	}
	printUsage(q, rows)
	return nil
}

func printUsage(q domain.UsageQuery, rows []domain.UsageRow) {
	if len(rows) == 0 {
		fmt.Println("No usage recorded.")
		return
	}
	dim := string(q.Dimension)
	if dim == "" {
		dim = "total"
	}
	fmt.Printf("Usage by %s\n", dim)
	fmt.Printf("═══════════════════════════════════════\n")
	for _, r := range rows {
		key := r.Key
		if key == "" {
			key = "all"
		}
		var parts []string
		if r.TotalTokens != nil {
			parts = append(parts, fmt.Sprintf("tokens=%d", *r.TotalTokens))
		}
		if r.TotalCost != nil {
			parts = append(parts, fmt.Sprintf("cost=$%s", r.TotalCost.String()))
		}
		if r.TotalSessions != nil {
			parts = append(parts, fmt.Sprintf("sessions=%d", *r.TotalSessions))
		}
		fmt.Printf("%-24s %s\n", key, strings.Join(parts, "  "))
	}
}

// parseDate accepts a date or an RFC3339 timestamp. A bare end date is
// extended to the last instant of that day so the range stays inclusive.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
