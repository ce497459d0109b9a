package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	gormstore "github.com/opsdeck/opsdeck/pkg/server/store/gorm"
)

// userResetPasswordCmd represents the user reset-password command
var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <username>",
	Short: "Reset a user's password",
	Long: `Reset the password for an existing user.

The new password is taken from --password, then from the OPSDECK_USER_PASSWORD
environment variable, and is prompted for when neither is set.

Example:
  opsdeckctl user reset-password admin`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]
		password, _ := cmd.Flags().GetString("password")

		if err := resetUserPassword(username, password); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to reset password for %s: %v\n", username, err)
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "Password updated for user '%s'\n", username)
	},
}

func init() {
	userCmd.AddCommand(userResetPasswordCmd)
	userResetPasswordCmd.Flags().String("password", "", "New password (prompted for when empty)")
}

func resetUserPassword(username, password string) error {
	password, err := resolvePassword(password)
	if err != nil {
		return err
	}

	database, _, err := openDatabase()
	if err != nil {
		return err
	}

	users := gormstore.NewUsersStore(database)
	user, err := users.GetUserByUsername(username)
	if err != nil {
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return users.UpdateUser(user)
}
