package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Work with the opsdeck CHANGELOG.md",
	Long: `Parse, validate and extract release notes from CHANGELOG.md, which
follows the Keep a Changelog format. Used by the release workflow to
check the file before tagging and to pull the notes for a tag.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
