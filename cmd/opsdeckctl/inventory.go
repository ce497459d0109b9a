package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// inventoryCmd represents the inventory command
var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Manage the fleet inventory",
	Long:  `Load and watch YAML fleet inventory files.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'inventory' requires a subcommand (load, watch)")
		fmt.Println()
		cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(inventoryCmd)
}
