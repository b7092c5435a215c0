package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations to the global and every tenant namespace",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	global, err := application.router.Global(ctx)
	if err != nil {
		return fmt.Errorf("migrate global namespace: %w", err)
	}
	if _, err := global.Tenants(ctx); err != nil {
		return err
	}

	tenants, err := application.tenants.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range tenants {
		h, err := application.router.Resolve(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("migrate tenant %s: %w", t.Domain, err)
		}
		if _, err := h.Usage(ctx); err != nil {
			return fmt.Errorf("migrate tenant %s: %w", t.Domain, err)
		}
		fmt.Printf("migrated %s (%s)\n", t.Domain, h.Namespace())
	}
	fmt.Printf("%d namespaces up to date\n", len(tenants)+1)
	return nil
}
