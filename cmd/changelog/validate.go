package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// ValidationError represents a single validation issue
type ValidationError struct {
	Line    int
	Message string
}

// ValidationResult holds all validation errors
type ValidationResult struct {
	Errors []ValidationError
}

func (r *ValidationResult) AddError(line int, message string) {
	r.Errors = append(r.Errors, ValidationError{Line: line, Message: message})
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a changelog follows Keep a Changelog spec",
	Long: `Validate that a changelog file follows the Keep a Changelog specification.

Checks include:
- File has a title (# Changelog)
- Has an [Unreleased] section, and it comes first
- Version entries use correct format: ## [X.Y.Z] - YYYY-MM-DD
- Dates are in ISO 8601 format (YYYY-MM-DD)
- Versions appear newest-first with no duplicates, dates never increase
- Change types are valid (Added, Changed, Deprecated, Removed, Fixed, Security)
- Link definitions exist for all versions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		result := Validate(content)

		if result.IsValid() {
			fmt.Println("✓ Changelog is valid")
			return nil
		}

		fmt.Printf("Found %d issue(s):\n\n", len(result.Errors))
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Printf("  Line %d: %s\n", e.Line, e.Message)
			} else {
				fmt.Printf("  %s\n", e.Message)
			}
		}

		os.Exit(1)
		return nil
	},
}

var (
	dateRegex    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	validTypes   = map[string]bool{
		"Added":      true,
		"Changed":    true,
		"Deprecated": true,
		"Removed":    true,
		"Fixed":      true,
		"Security":   true,
	}
)

// Validate checks a changelog against Keep a Changelog spec. The version
// headings are checked off the parsed entries; only findings that live
// inside section bodies fall back to a raw line scan.
func Validate(source []byte) *ValidationResult {
	result := &ValidationResult{}
	changelog, _ := Parse(source)

	checkProse(source, result)
	checkEntries(changelog, result)
	checkOrdering(changelog, result)
	checkLinks(changelog, result)

	return result
}

// checkProse scans the raw lines for the title and the change type
// headings, which sit inside section bodies where the parsed entries
// cannot place them.
func checkProse(source []byte, result *ValidationResult) {
	hasTitle := false
	for i, line := range strings.Split(string(source), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "# ") {
			hasTitle = true
			if !strings.Contains(strings.ToLower(trimmed), "changelog") {
				result.AddError(i+1, "Title should contain 'Changelog'")
			}
		}

		if strings.HasPrefix(trimmed, "### ") {
			changeType := strings.TrimPrefix(trimmed, "### ")
			if !validTypes[changeType] {
				result.AddError(i+1, fmt.Sprintf("Invalid change type '%s'. Valid types: Added, Changed, Deprecated, Removed, Fixed, Security", changeType))
			}
		}
	}

	if !hasTitle {
		result.AddError(0, "Missing changelog title (# Changelog)")
	}
}

// checkEntries validates each version heading: semver format, presence
// and format of the release date, and no duplicates.
func checkEntries(changelog *Changelog, result *ValidationResult) {
	if changelog == nil {
		return
	}

	hasUnreleased := false
	seen := make(map[string]bool)
	for i := range changelog.Entries {
		entry := &changelog.Entries[i]
		if entry.IsUnreleased() {
			hasUnreleased = true
			continue
		}

		if seen[entry.Version] {
			result.AddError(entry.Line, fmt.Sprintf("Duplicate version [%s]", entry.Version))
		}
		seen[entry.Version] = true

		if !versionRegex.MatchString(entry.Version) {
			result.AddError(entry.Line, fmt.Sprintf("Version '%s' should follow semantic versioning (X.Y.Z)", entry.Version))
		}

		switch {
		case entry.Date == "":
			result.AddError(entry.Line, fmt.Sprintf("Version '%s' is missing a release date", entry.Version))
		case !dateRegex.MatchString(entry.Date):
			result.AddError(entry.Line, fmt.Sprintf("Date '%s' should be in ISO 8601 format (YYYY-MM-DD)", entry.Date))
		}
	}

	if !hasUnreleased {
		result.AddError(0, "Missing [Unreleased] section")
	}
}

// checkOrdering flags sections that break the newest-first layout.
func checkOrdering(changelog *Changelog, result *ValidationResult) {
	if changelog == nil {
		return
	}

	for i := range changelog.Entries {
		entry := &changelog.Entries[i]
		if entry.IsUnreleased() && i != 0 {
			result.AddError(entry.Line, "[Unreleased] should be the first section")
		}
	}

	var prev *ChangelogEntry
	releases := changelog.Releases()
	for i := range releases {
		entry := &releases[i]
		if !versionRegex.MatchString(entry.Version) {
			continue
		}
		if prev != nil {
			// Equal versions are already reported as duplicates.
			if compareVersions(entry.Version, prev.Version) > 0 {
				result.AddError(entry.Line, fmt.Sprintf("Version %s should come before %s; releases are ordered newest-first", entry.Version, prev.Version))
			}
			if dateRegex.MatchString(entry.Date) && dateRegex.MatchString(prev.Date) && entry.Date > prev.Date {
				result.AddError(entry.Line, fmt.Sprintf("Date %s is newer than %s above it", entry.Date, prev.Date))
			}
		}
		prev = entry
	}
}

// checkLinks verifies every section heading has a matching link
// definition at the bottom of the file.
func checkLinks(changelog *Changelog, result *ValidationResult) {
	if changelog == nil {
		return
	}

	reported := make(map[string]bool)
	for i := range changelog.Entries {
		entry := &changelog.Entries[i]
		if reported[entry.Version] {
			continue
		}
		reported[entry.Version] = true

		if _, ok := changelog.Links[entry.Version]; ok {
			continue
		}
		if entry.IsUnreleased() {
			result.AddError(0, fmt.Sprintf("Missing link definition for [%s]", entry.Version))
		} else {
			result.AddError(0, fmt.Sprintf("Missing link definition for version [%s]", entry.Version))
		}
	}
}

// compareVersions orders two X.Y.Z versions. Callers ensure both match
// versionRegex.
func compareVersions(a, b string) int {
	as := strings.SplitN(a, ".", 3)
	bs := strings.SplitN(b, ".", 3)
	for i := 0; i < 3; i++ {
		an, _ := strconv.Atoi(as[i])
		bn, _ := strconv.Atoi(bs[i])
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}
	return 0
}

func init() {
	validateCmd.Flags().StringP("file", "f", "CHANGELOG.md", "Path to the changelog file")
	rootCmd.AddCommand(validateCmd)
}
