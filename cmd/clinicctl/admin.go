package main

import (
	"fmt"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/authpw"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/rbac"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	adminUsername    string
	adminEmail       string
	adminPassword    string
	adminDisplayName string
	adminRole        string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin or editor account",
	Long: `Create a CMS account. The role defaults to admin.

Examples:
  clinicctl create-admin --username director --email director@clinic.example --password 's3cret-pass'
  clinicctl create-admin --username nurse --email nurse@clinic.example --password 's3cret-pass' --role editor`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if rbac.Normalize(adminRole) == rbac.RoleNone {
			return fmt.Errorf("unknown role %q, want admin or editor", adminRole)
		}
		ctx := cmd.Context()
		_, db, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		displayName := adminDisplayName
		if displayName == "" {
			displayName = adminUsername
		}
		users := authpw.NewService(store.NewPostgresStore(db), logger)
		user, err := users.CreateAdmin(ctx, authpw.CreateAdminRequest{
			Username:    adminUsername,
			Email:       adminEmail,
			DisplayName: displayName,
			Password:    adminPassword,
			Role:        adminRole,
		})
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		logger.Info("admin created", zap.String("user_id", user.ID), zap.String("role", user.Role))
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with role %s\n", user.Username, user.ID, user.Role)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "Login name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Email address for password resets")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Initial password")
	createAdminCmd.Flags().StringVar(&adminDisplayName, "display-name", "", "Name shown in the audit log (default: username)")
	createAdminCmd.Flags().StringVar(&adminRole, "role", string(rbac.RoleAdmin), "Role: admin or editor")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createAdminCmd)
}
