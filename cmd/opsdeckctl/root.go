package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "opsdeckctl",
	Short: "Run and manage the opsdeck admin panel",
	Long: `opsdeckctl runs the opsdeck server and provides management commands
for the database schema, panel users, the data encryption key and the
fleet inventory.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
