package cli

import (
	"fmt"

	"github.com/set-night/agentchat/internal/domain"
	"github.com/spf13/cobra"
)

var (
	userEmail string
	userName  string
	userRoles []string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users of --tenant",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Long: `Create a user in --tenant.

Examples:
  agentchat --tenant acme.example user create --email ana@acme.example
  agentchat --tenant acme.example user create --email bo@acme.example --role admin`,
	RunE: runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email, unique within the tenant")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCreateCmd.Flags().StringSliceVar(&userRoles, "role", []string{string(domain.RoleUser)}, "roles (admin, user)")
	_ = userCreateCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	ctx, err := tenantContext(cmd.Context())
	if err != nil {
		return err
	}
	roles := make([]domain.Role, 0, len(userRoles))
	for _, r := range userRoles {
		roles = append(roles, domain.Role(r))
	}
	u, err := application.users.Create(ctx, userEmail, userName, roles)
	if err != nil {
		return err
	}
	fmt.Printf("User:  %s (%s)\n", u.ID, u.Email)
	fmt.Printf("Scopes: %v\n", u.Scopes())
	return nil
}
