package cli

import (
	"fmt"

	"github.com/set-night/agentchat/internal/reqctx"
	"github.com/set-night/agentchat/internal/service"
	"github.com/spf13/cobra"
)

var (
	tenantName       string
	tenantDomain     string
	tenantAdminEmail string
	tenantAdminName  string
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenants",
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a tenant with its admin user",
	Long: `Create a tenant, provision its storage namespace and add an admin user.

The API key is printed once and cannot be recovered later.

Examples:
  agentchat tenant create --name Acme --domain acme.example --admin-email ops@acme.example`,
	RunE: runTenantCreate,
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE:  runTenantList,
}

var tenantRotateKeyCmd = &cobra.Command{
	Use:   "rotate-key",
	Short: "Replace the API key of --tenant",
	RunE:  runTenantRotateKey,
}

func init() {
	tenantCreateCmd.Flags().StringVar(&tenantName, "name", "", "tenant name")
	tenantCreateCmd.Flags().StringVar(&tenantDomain, "domain", "", "tenant domain, unique across tenants")
	tenantCreateCmd.Flags().StringVar(&tenantAdminEmail, "admin-email", "", "email of the admin user")
	tenantCreateCmd.Flags().StringVar(&tenantAdminName, "admin-name", "", "name of the admin user")
	_ = tenantCreateCmd.MarkFlagRequired("name")
	_ = tenantCreateCmd.MarkFlagRequired("domain")
	_ = tenantCreateCmd.MarkFlagRequired("admin-email")

	tenantCmd.AddCommand(tenantCreateCmd)
	tenantCmd.AddCommand(tenantListCmd)
	tenantCmd.AddCommand(tenantRotateKeyCmd)
}

func runTenantCreate(cmd *cobra.Command, args []string) error {
	created, err := application.tenants.Create(cmd.Context(), service.CreateTenantInput{
		Name:       tenantName,
		Domain:     tenantDomain,
		AdminEmail: tenantAdminEmail,
		AdminName:  tenantAdminName,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Tenant:   %s (%s)\n", created.Tenant.Domain, created.Tenant.ID)
	fmt.Printf("Admin:    %s\n", created.Admin.ID)
	fmt.Printf("API key:  %s\n", created.APIKey)
	return nil
}

func runTenantList(cmd *cobra.Command, args []string) error {
	tenants, err := application.tenants.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(tenants) == 0 {
		fmt.Println("No tenants.")
		return nil
	}
	for _, t := range tenants {
		fmt.Printf("%s  %-30s %s\n", t.ID, t.Domain, t.Name)
	}
	return nil
}

func runTenantRotateKey(cmd *cobra.Command, args []string) error {
	ctx, err := tenantContext(cmd.Context())
	if err != nil {
		return err
	}
	id, err := reqctx.TenantID(ctx)
	if err != nil {
		return err
	}
	key, err := application.tenants.RegenerateAPIKey(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("API key:  %s\n", key)
	return nil
}
