package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/service"
	"github.com/spf13/cobra"
)

var (
	agentName     string
	agentPrimary  string
	agentFallback string
	agentPrompt   string
	agentClearFb  bool
	agentID       string
	agentLimit    int
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agents of --tenant",
}

var agentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register an agent",
	Long: `Register an agent with a primary and optional fallback provider.

Providers: gpt-3.5-turbo, claude-3.5-sonnet, google-gemini-1.5

Examples:
  agentchat --tenant acme.example agent create --name helper --primary gpt-3.5-turbo --fallback claude-3.5-sonnet`,
	RunE: runAgentCreate,
}

var agentUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an agent; only the flags given are changed",
	RunE:  runAgentUpdate,
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents",
	RunE:  runAgentList,
}

func init() {
	agentCreateCmd.Flags().StringVar(&agentName, "name", "", "agent name")
	agentCreateCmd.Flags().StringVar(&agentPrimary, "primary", "", "primary provider")
	agentCreateCmd.Flags().StringVar(&agentFallback, "fallback", "", "fallback provider")
	agentCreateCmd.Flags().StringVar(&agentPrompt, "prompt", "", "system prompt")
	_ = agentCreateCmd.MarkFlagRequired("name")
	_ = agentCreateCmd.MarkFlagRequired("primary")

	agentUpdateCmd.Flags().StringVar(&agentID, "id", "", "agent id")
	agentUpdateCmd.Flags().StringVar(&agentName, "name", "", "new name")
	agentUpdateCmd.Flags().StringVar(&agentPrimary, "primary", "", "new primary provider")
	agentUpdateCmd.Flags().StringVar(&agentFallback, "fallback", "", "new fallback provider")
	agentUpdateCmd.Flags().BoolVar(&agentClearFb, "clear-fallback", false, "remove the fallback provider")
	agentUpdateCmd.Flags().StringVar(&agentPrompt, "prompt", "", "new system prompt")
	_ = agentUpdateCmd.MarkFlagRequired("id")

	agentListCmd.Flags().StringVar(&agentName, "name", "", "filter by name substring")
	agentListCmd.Flags().IntVar(&agentLimit, "limit", 0, "maximum number of agents")

	agentCmd.AddCommand(agentCreateCmd)
	agentCmd.AddCommand(agentUpdateCmd)
	agentCmd.AddCommand(agentListCmd)
}

func runAgentCreate(cmd *cobra.Command, args []string) error {
	ctx, err := tenantContext(cmd.Context())
	if err != nil {
		return err
	}
	in := service.RegisterAgentInput{
		Name:            agentName,
		PrimaryProvider: domain.ProviderType(agentPrimary),
		Prompt:          agentPrompt,
	}
	if agentFallback != "" {
		fb := domain.ProviderType(agentFallback)
		in.FallbackProvider = &fb
	}
	a, err := application.agents.Register(ctx, in)
	if err != nil {
		return err
	}
	printAgent(a)
	return nil
}

func runAgentUpdate(cmd *cobra.Command, args []string) error {
	ctx, err := tenantContext(cmd.Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(agentID)
	if err != nil {
		return fmt.Errorf("invalid --id: %w", err)
	}

	var upd domain.AgentUpdate
	flags := cmd.Flags()
	if flags.Changed("name") {
		upd.Name = &agentName
	}
	if flags.Changed("primary") {
		p := domain.ProviderType(agentPrimary)
		upd.PrimaryProvider = &p
	}
	if flags.Changed("fallback") {
		fb := domain.ProviderType(agentFallback)
		upd.FallbackProvider = &fb
	}
	if flags.Changed("prompt") {
		upd.Prompt = &agentPrompt
	}
	upd.ClearFallback = agentClearFb

	a, err := application.agents.Update(ctx, id, upd)
	if err != nil {
		return err
	}
	printAgent(a)
	return nil
}

func runAgentList(cmd *cobra.Command, args []string) error {
	ctx, err := tenantContext(cmd.Context())
	if err != nil {
		return err
	}
	agents, err := application.agents.List(ctx, domain.AgentFilter{Name: agentName, Limit: agentLimit})
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Println("No agents.")
		return nil
	}
	for i := range agents {
		printAgent(&agents[i])
	}
	return nil
}

func printAgent(a *domain.Agent) {
	fallback := "-"
	if a.FallbackProvider != nil {
		fallback = string(*a.FallbackProvider)
	}
	fmt.Printf("%s  %-20s primary=%s fallback=%s\n", a.ID, a.Name, a.PrimaryProvider, fallback)
}
