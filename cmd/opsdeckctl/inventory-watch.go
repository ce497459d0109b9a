package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/inventory"
)

// inventoryWatchCmd represents the inventory watch command
var inventoryWatchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Watch an inventory file and reload it when it changes",
	Long: `Watch a YAML fleet inventory file and reload it when it changes.

Each write to the file applies the whole document again. Loads are
idempotent, so a reload with no changes leaves the database as it was.

Example:
  opsdeckctl inventory watch /etc/opsdeck/fleet.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		if err := watchInventory(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to watch inventory: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	inventoryCmd.AddCommand(inventoryWatchCmd)
}

func watchInventory(filename string) error {
	database, _, err := openDatabase()
	if err != nil {
		return err
	}

	// Create file watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Add file to watcher
	if err := watcher.Add(filename); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", filename, err)
	}

	fmt.Printf("Watching %s for inventory changes\n", filename)

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				fmt.Printf("[%s] File modified, reloading inventory...\n", time.Now().Format(time.RFC3339))

				if err := reloadInventory(database, filename); err != nil {
					fmt.Fprintf(os.Stderr, "Error loading inventory: %v\n", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		}
	}
}

func reloadInventory(database *gorm.DB, filename string) error {
	loader := inventory.NewLoader(inventory.NewGormStore(database))
	result, err := loader.LoadFile(filename)
	if err != nil {
		return err
	}

	created, updated := 0, 0
	for _, n := range result.Created {
		created += n
	}
	for _, n := range result.Updated {
		updated += n
	}
	fmt.Printf("Inventory loaded successfully: %d created, %d updated\n", created, updated)
	return nil
}
