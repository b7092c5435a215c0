package cli

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/set-night/agentchat/internal/config"
	"github.com/spf13/cobra"
)

var sweepOnce bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Finalize replies stuck generating longer than STALE_GENERATION_TIMEOUT",
	Long: `Runs the stale generation sweeper until interrupted, or a single pass with --once.

Replies still generating after STALE_GENERATION_TIMEOUT receive the generation
failure message. The sweeper is disabled while the timeout is zero.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepOnce, "once", false, "run a single pass and exit")
}

func runSweep(cmd *cobra.Command, args []string) error {
	if cfg.StaleGenerationTimeout <= 0 {
		return fmt.Errorf("STALE_GENERATION_TIMEOUT must be positive to sweep")
	}
	sweeper := application.sweeper

	if sweepOnce {
		n, err := sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("finalized %d stale replies\n", n)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("sweeper started", "timeout", cfg.StaleGenerationTimeout, "interval", config.StaleSweepInterval)
	sweeper.Run(ctx, config.StaleSweepInterval)
	slog.Info("sweeper stopped gracefully")
	return nil
}
