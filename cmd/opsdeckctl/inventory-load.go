package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/pkg/inventory"
)

// inventoryLoadCmd represents the inventory load command
var inventoryLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load a fleet inventory file",
	Long: `Load a YAML fleet inventory file into the panel database.

This command parses the inventory document and creates or updates the
credentials, servers, network devices, databases, site groups, sites and
applications it names. Rows are matched by name; fields the document leaves
empty keep their stored values. The whole document applies in a single
transaction.

New credentials read their secret from the environment variable named by
secret_env, so the secret itself never lands in the inventory file.

Example:
  opsdeckctl inventory load fleet.yml
  opsdeckctl inventory load --dry-run fleet.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		result, err := loadInventoryFile(filename, dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load inventory: %v\n", err)
			os.Exit(1)
		}

		// Output result as JSON
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	},
}

func init() {
	inventoryCmd.AddCommand(inventoryLoadCmd)
	inventoryLoadCmd.Flags().Bool("dry-run", false, "Validate and resolve the document, then roll back")
}

func loadInventoryFile(filename string, dryRun bool) (*inventory.Result, error) {
	database, _, err := openDatabase()
	if err != nil {
		return nil, err
	}

	loader := inventory.NewLoader(inventory.NewGormStore(database)).WithDryRun(dryRun)
	result, err := loader.LoadFile(filename)
	if err != nil {
		return nil, err
	}

	if dryRun {
		fmt.Println("Dry run: all changes rolled back")
	}
	return result, nil
}
