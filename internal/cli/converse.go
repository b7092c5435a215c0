package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/spf13/cobra"
)

var (
	converseSession string
	converseKey     string
	converseWait    bool
	converseTimeout time.Duration
)

var converseCmd = &cobra.Command{
	Use:   "converse <message>",
	Short: "Send a message to a session's agent",
	Long: `Send a message and, with --wait, wait for the agent's reply.

Repeating a command with the same --key returns the original exchange
instead of sending the message again.

Examples:
  agentchat --tenant acme.example --user <id> converse --session <id> "What's new?"
  agentchat --tenant acme.example --user <id> converse --session <id> --key q1 --wait "Hi"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConverse,
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Print a session's messages",
	RunE:  runTranscript,
}

func init() {
	converseCmd.Flags().StringVar(&converseSession, "session", "", "session id")
	converseCmd.Flags().StringVar(&converseKey, "key", "", "idempotency key; generated when empty")
	converseCmd.Flags().BoolVar(&converseWait, "wait", true, "wait for the reply")
	converseCmd.Flags().DurationVar(&converseTimeout, "timeout", config.ReplyPollTimeout, "how long to wait for the reply")
	_ = converseCmd.MarkFlagRequired("session")

	transcriptCmd.Flags().StringVar(&converseSession, "session", "", "session id")
	_ = transcriptCmd.MarkFlagRequired("session")
}

func runConverse(cmd *cobra.Command, args []string) error {
	ctx, err := tenantContext(cmd.Context())
	if err != nil {
		return err
	}
	sessionID, err := uuid.Parse(converseSession)
	if err != nil {
		return fmt.Errorf("invalid --session: %w", err)
	}
	key := converseKey
	if key == "" {
		key = uuid.NewString()
	}

	ex, err := application.conv.CreateConversation(ctx, sessionID, key, strings.Join(args, " "))
	if err != nil {
		return err
	}
	printMessage(ex.UserMessage)
	if !converseWait {
		printMessage(ex.AgentMessage)
		return nil
	}

	reply, err := application.conv.AwaitReply(ctx, ex.AgentMessage.ID, config.ReplyPollInterval, converseTimeout)
	if errors.Is(err, context.DeadlineExceeded) && reply != nil {
		printMessage(reply)
		return fmt.Errorf("reply still generating after %s", converseTimeout)
	}
	if err != nil {
		return err
	}
	printMessage(reply)
	return nil
}

func runTranscript(cmd *cobra.Command, args []string) error {
	ctx, err := tenantContext(cmd.Context())
	if err != nil {
		return err
	}
	sessionID, err := uuid.Parse(converseSession)
	if err != nil {
		return fmt.Errorf("invalid --session: %w", err)
	}
	msgs, err := application.conv.GetTranscript(ctx, sessionID)
	if err != nil {
		return err
	}
	for i := range msgs {
		printMessage(&msgs[i])
	}
	return nil
}

func printMessage(m *domain.Message) {
	who := "agent"
	if m.SenderType == domain.SenderUser {
		who = "user "
	}
	status := ""
	if m.IsGenerating {
		status = " [generating]"
	}
	fmt.Printf("[%s] %s%s: %s\n", m.CreatedAt.Format("15:04:05"), who, status, m.Content)
	if m.Usage != nil {
		fmt.Printf("         %s  tokens=%d (in %d, out %d)  cost=$%s\n",
			m.Usage.Provider, m.Usage.TotalTokens, m.Usage.TokensIn, m.Usage.TokensOut, m.Usage.Cost.String())
	}
}
