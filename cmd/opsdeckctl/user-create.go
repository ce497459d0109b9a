package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/pkg/identity"
	"github.com/opsdeck/opsdeck/pkg/model"
	gormstore "github.com/opsdeck/opsdeck/pkg/server/store/gorm"
)

// userCreateCmd represents the user create command
var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a panel user account",
	Long: `Create a panel user account.

The password is taken from --password, then from the OPSDECK_USER_PASSWORD
environment variable, and is prompted for when neither is set. Use the admin
role for the bootstrap account; it is the only role that can manage users and
reveal stored credentials.

Example:
  opsdeckctl user create admin --role admin
  opsdeckctl user create jdoe --role operator --display-name "J. Doe" --email jdoe@example.com`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]
		role, _ := cmd.Flags().GetString("role")
		displayName, _ := cmd.Flags().GetString("display-name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if err := createUser(username, role, displayName, email, password); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create user: %v\n", err)
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "Created user '%s' with role '%s'\n", username, role)
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCreateCmd.Flags().StringP("role", "r", identity.RoleViewer, "Role: admin, operator or viewer")
	userCreateCmd.Flags().String("display-name", "", "Display name")
	userCreateCmd.Flags().String("email", "", "Email address")
	userCreateCmd.Flags().String("password", "", "Password (prompted for when empty)")
}

func createUser(username, role, displayName, email, password string) error {
	if !identity.ValidRole(role) {
		return fmt.Errorf("invalid role %q (valid roles: %s, %s, %s)",
			role, identity.RoleAdmin, identity.RoleOperator, identity.RoleViewer)
	}

	password, err := resolvePassword(password)
	if err != nil {
		return err
	}

	database, _, err := openDatabase()
	if err != nil {
		return err
	}

	user := &model.User{
		Username:    username,
		DisplayName: displayName,
		Email:       email,
		Role:        role,
		Active:      true,
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return gormstore.NewUsersStore(database).CreateUser(user)
}
