package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sessionAgent string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage chat sessions of --user",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a session with an agent",
	RunE:  runSessionCreate,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the sessions of --user",
	RunE:  runSessionList,
}

func init() {
	sessionCreateCmd.Flags().StringVar(&sessionAgent, "agent", "", "agent id")
	_ = sessionCreateCmd.MarkFlagRequired("agent")

	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionListCmd)
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	ctx, err := tenantContext(cmd.Context())
	if err != nil {
		return err
	}
	agentID, err := uuid.Parse(sessionAgent)
	if err != nil {
		return fmt.Errorf("invalid --agent: %w", err)
	}
	sess, err := application.sessions.Create(ctx, agentID)
	if err != nil {
		return err
	}
	fmt.Printf("Session: %s\n", sess.ID)
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	ctx, err := tenantContext(cmd.Context())
	if err != nil {
		return err
	}
	sessions, err := application.sessions.ListByUser(ctx, nil, 0, 0)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Printf("%s  agent=%s  %s\n", s.ID, s.AgentID, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
