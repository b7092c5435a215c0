// Package cli provides the command-line interface for agentchat.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/service"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	tenantFlag string
	userFlag   string
	apiKeyFlag string

	cfg          *config.Config
	application  *app
	closeLogFile func() error
)

var rootCmd = &cobra.Command{
	Use:   "agentchat",
	Short: "Multi-tenant conversational agent orchestration",
	Long: `agentchat stores conversations between users and AI agents, generates
agent replies through primary and fallback providers, and reports usage.

Each tenant's data lives in its own storage namespace. Commands that act on
tenant data take --tenant (the tenant's domain) and, for user actions, --user.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		logger, closer := config.SetupLogger(os.Stderr, cfg.LogFile, cfg.SlogLevel())
		closeLogFile = closer
		slog.SetDefault(logger)

		application, err = newApp(cfg)
		if err != nil {
			return err
		}
		application.start(cmd.Context())
		return nil
	},
}

// Execute runs the root command. Queued generations are drained and storage
// is closed afterwards, including when the command fails.
func Execute(ctx context.Context) error {
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

func shutdown() {
	if application != nil {
		application.close()
	}
	if closeLogFile != nil {
		if err := closeLogFile(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "", "tenant domain")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "acting user id; omit to act as the tenant system")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "tenant API key, verified when set")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(tenantCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(converseCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(demoCmd)
}

// tenantContext scopes ctx to --tenant, authenticating --user when given.
func tenantContext(ctx context.Context) (context.Context, error) {
	if tenantFlag == "" {
		return nil, fmt.Errorf("--tenant is required")
	}
	t, err := application.tenants.GetByDomain(ctx, tenantFlag)
	if err != nil {
		return nil, fmt.Errorf("tenant %q: %w", tenantFlag, err)
	}
	if apiKeyFlag != "" {
		if err := application.tenants.VerifyAPIKey(ctx, t.ID, apiKeyFlag); err != nil {
			return nil, err
		}
	}
	if userFlag == "" {
		return service.SystemContext(ctx, t.ID), nil
	}

	userID, err := uuid.Parse(userFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid --user: %w", err)
	}
	ctx, _, err = application.users.Authenticate(ctx, t.ID, userID)
	return ctx, err
}
