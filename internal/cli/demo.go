package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/service"
	"github.com/spf13/cobra"
)

var demoMessages int

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a full conversation against a throwaway tenant",
	Long: `Create a tenant, a user, an agent with a fallback provider and a session,
send a few messages, then print the transcript and the tenant's usage.

Works with any storage backend; STORAGE_BACKEND=memory needs no database.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().IntVar(&demoMessages, "messages", 3, "number of messages to send")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	created, err := application.tenants.Create(ctx, service.CreateTenantInput{
		Name:       "Demo " + suffix,
		Domain:     "demo-" + suffix + ".local",
		AdminEmail: "admin@demo-" + suffix + ".local",
	})
	if err != nil {
		return err
	}
	adminCtx, _, err := application.users.Authenticate(ctx, created.Tenant.ID, created.Admin.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Tenant %s (%s)\n", created.Tenant.Domain, created.Tenant.ID)

	fallback := domain.ProviderClaude35
	agent, err := application.agents.Register(adminCtx, service.RegisterAgentInput{
		Name:             "demo-assistant",
		PrimaryProvider:  domain.ProviderGPT35,
		FallbackProvider: &fallback,
		Prompt:           "You are a concise assistant.",
	})
	if err != nil {
		return err
	}
	printAgent(agent)

	user, err := application.users.Create(adminCtx, "user@demo-"+suffix+".local", "Demo User", nil)
	if err != nil {
		return err
	}
	userCtx, _, err := application.users.Authenticate(ctx, created.Tenant.ID, user.ID)
	if err != nil {
		return err
	}
	sess, err := application.sessions.Create(userCtx, agent.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Session %s\n\n", sess.ID)

	for i := range demoMessages {
		if err := demoExchange(userCtx, sess.ID, fmt.Sprintf("demo-%d", i), fmt.Sprintf("Question number %d", i+1)); err != nil {
			return err
		}
	}

	fmt.Println()
	msgs, err := application.conv.GetTranscript(userCtx, sess.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Transcript (%d messages)\n", len(msgs))
	for i := range msgs {
		printMessage(&msgs[i])
	}

	fmt.Println()
	q := domain.UsageQuery{
		Metrics:   []domain.Metric{domain.MetricTotalTokens, domain.MetricTotalCost, domain.MetricTotalSessions},
		Dimension: domain.DimensionProvider,
	}
	rows, err := application.usage.Analytics(adminCtx, q)
	if err != nil {
		return err
	}
	printUsage(q, rows)
	return nil
}

func demoExchange(ctx context.Context, sessionID uuid.UUID, key, content string) error {
	ex, err := application.conv.CreateConversation(ctx, sessionID, key, content)
	if err != nil {
		return err
	}
	reply, err := application.conv.AwaitReply(ctx, ex.AgentMessage.ID, config.ReplyPollInterval/5, config.ReplyPollTimeout)
	if err != nil {
		return fmt.Errorf("await reply to %q: %w", content, err)
	}
	printMessage(ex.UserMessage)
	printMessage(reply)
	return nil
}
