package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/inventory"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/vault"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the panel data for migration",
	Long: `Export the panel data necessary to migrate to another opsdeck instance.

This command exports:
- Database dump (pg_dump)
- Data encryption key
- Fleet inventory snapshot (YAML)

The export is encrypted with a generated key file. Credential secrets are not
written into the inventory snapshot; they live only inside the database dump,
which stores them encrypted under the data key.

Example:
  opsdeckctl export
  opsdeckctl export --out-dir /backup --label nightly`,
	Run: func(cmd *cobra.Command, args []string) {
		outDir, _ := cmd.Flags().GetString("out-dir")
		label, _ := cmd.Flags().GetString("label")

		if label == "" {
			label = time.Now().Format("2006-01-02T15-04-05Z")
		}

		if err := runExport(outDir, label); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("out-dir", "o", ".", "Output directory")
	exportCmd.Flags().StringP("label", "l", "", "Label for archive filename (default: timestamp)")
}

func runExport(outDir, label string) error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	dataKey := os.Getenv(vault.DataKeyEnv)
	if dataKey == "" {
		return fmt.Errorf("%s environment variable is required", vault.DataKeyEnv)
	}

	fmt.Printf("Exporting to '%s'...\n", outDir)

	// Create output directory
	if err := os.MkdirAll(outDir, 0770); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Ensure export key exists
	keyFile := filepath.Join(outDir, "key")
	if _, err := os.Stat(keyFile); os.IsNotExist(err) {
		fmt.Printf("Generating key file %s\n", keyFile)
		keyBytes := make([]byte, 64)
		if _, err := rand.Read(keyBytes); err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		if err := os.WriteFile(keyFile, []byte(base64.StdEncoding.EncodeToString(keyBytes)), 0600); err != nil {
			return fmt.Errorf("failed to write key file: %w", err)
		}
	} else {
		fmt.Printf("Using key from %s\n", keyFile)
	}

	// Create backup directory
	backupDir := filepath.Join(outDir, "backup")
	if err := os.MkdirAll(backupDir, 0770); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	// Create etc directory
	etcDir := filepath.Join(outDir, "etc")
	if err := os.MkdirAll(etcDir, 0770); err != nil {
		return fmt.Errorf("failed to create etc directory: %w", err)
	}

	// Export database
	dbDump := filepath.Join(backupDir, "opsdeck.db")
	fmt.Println("Exporting database...")
	pgDump := exec.Command("pg_dump", "-Fc", "-f", dbDump, dbURL)
	pgDump.Stderr = os.Stderr
	if err := pgDump.Run(); err != nil {
		return fmt.Errorf("pg_dump failed: %w", err)
	}

	// Export data key
	dataKeyFile := filepath.Join(etcDir, "opsdeck.key")
	if err := os.WriteFile(dataKeyFile, []byte(vault.DataKeyEnv+"="+dataKey+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write data key file: %w", err)
	}

	// Export fleet inventory snapshot
	inventoryFile := filepath.Join(backupDir, "inventory.yml")
	fmt.Println("Exporting inventory...")
	database, _, err := openDatabase()
	if err != nil {
		return err
	}
	doc, err := snapshotInventory(database)
	if err != nil {
		return fmt.Errorf("failed to snapshot inventory: %w", err)
	}
	inventoryYAML, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory: %w", err)
	}
	if err := os.WriteFile(inventoryFile, inventoryYAML, 0600); err != nil {
		return fmt.Errorf("failed to write inventory file: %w", err)
	}

	// Create archive
	archiveFile := filepath.Join(outDir, label+".tar.gz")
	fmt.Println("Creating archive...")
	tar := exec.Command("tar", "czf", archiveFile, "-C", outDir,
		"--transform=s|^|/opt/opsdeck/|",
		"backup", "etc")
	tar.Stderr = os.Stderr
	if err := tar.Run(); err != nil {
		return fmt.Errorf("tar failed: %w", err)
	}

	// Encrypt archive with GPG
	fmt.Println("Encrypting archive...")
	gpg := exec.Command("gpg", "-c", "--cipher-algo", "AES256", "--batch",
		"--passphrase-file", keyFile, "--no-use-agent", archiveFile)
	gpg.Stderr = os.Stderr
	if err := gpg.Run(); err != nil {
		return fmt.Errorf("gpg encryption failed: %w", err)
	}

	// Cleanup temporary files
	_ = os.RemoveAll(backupDir)
	_ = os.RemoveAll(etcDir)
	_ = os.Remove(archiveFile)

	fmt.Println()
	fmt.Printf("Export placed in %s.gpg\n", archiveFile)
	fmt.Printf("It's encrypted with key in %s.\n", keyFile)
	fmt.Println("If you're going to store the export, make")
	fmt.Println("sure to store the key file separately.")

	return nil
}

// snapshotInventory reads the fleet back out of the database as an
// inventory document. Secrets are left out; re-importing the snapshot keeps
// existing credential rows untouched, and a fresh database needs the
// secrets supplied through secret_env.
func snapshotInventory(database *gorm.DB) (*inventory.Document, error) {
	doc := &inventory.Document{}

	var credentials []model.Credential
	if err := database.Select("id", "name", "kind", "username", "description").Order("name").Find(&credentials).Error; err != nil {
		return nil, err
	}
	credentialNames := make(map[uint]string, len(credentials))
	for _, c := range credentials {
		credentialNames[c.ID] = c.Name
		doc.Credentials = append(doc.Credentials, inventory.CredentialSpec{
			Name:        c.Name,
			Kind:        c.Kind,
			Username:    c.Username,
			Description: c.Description,
		})
	}

	var servers []model.Server
	if err := database.Order("name").Find(&servers).Error; err != nil {
		return nil, err
	}
	serverNames := make(map[uint]string, len(servers))
	for _, s := range servers {
		serverNames[s.ID] = s.Name
	}
	for _, s := range servers {
		doc.Servers = append(doc.Servers, inventory.ServerSpec{
			Name:       s.Name,
			Host:       s.Host,
			Port:       s.Port,
			SSHUser:    s.SSHUser,
			Credential: nameOf(credentialNames, s.CredentialID),
			JumpHost:   nameOf(serverNames, s.JumpHostID),
			OS:         s.OS,
			Arch:       s.Arch,
			Tags:       s.Tags,
			Notes:      s.Notes,
		})
	}

	var devices []model.NetworkDevice
	if err := database.Order("name").Find(&devices).Error; err != nil {
		return nil, err
	}
	for _, d := range devices {
		doc.Devices = append(doc.Devices, inventory.DeviceSpec{
			Name:          d.Name,
			Address:       d.Address,
			Vendor:        d.Vendor,
			Model:         d.Model,
			DeviceType:    d.DeviceType,
			ProbePort:     d.ProbePort,
			SNMPCommunity: d.SNMPCommunity,
			Credential:    nameOf(credentialNames, d.CredentialID),
			Notes:         d.Notes,
		})
	}

	var databases []model.Database
	if err := database.Order("name").Find(&databases).Error; err != nil {
		return nil, err
	}
	for _, d := range databases {
		doc.Databases = append(doc.Databases, inventory.DatabaseSpec{
			Name:       d.Name,
			Engine:     d.Engine,
			Host:       d.Host,
			Port:       d.Port,
			DBName:     d.DBName,
			Username:   d.Username,
			Credential: nameOf(credentialNames, d.CredentialID),
			Server:     nameOf(serverNames, d.ServerID),
			Notes:      d.Notes,
		})
	}

	var groups []model.SiteGroup
	if err := database.Order("name").Find(&groups).Error; err != nil {
		return nil, err
	}
	groupNames := make(map[uint]string, len(groups))
	for _, g := range groups {
		groupNames[g.ID] = g.Name
		doc.SiteGroups = append(doc.SiteGroups, inventory.SiteGroupSpec{
			Name:        g.Name,
			Description: g.Description,
		})
	}

	var sites []model.BusinessSite
	if err := database.Order("name").Find(&sites).Error; err != nil {
		return nil, err
	}
	siteNames := make(map[uint]string, len(sites))
	for _, s := range sites {
		siteNames[s.ID] = s.Name
		enabled := s.Enabled
		doc.Sites = append(doc.Sites, inventory.SiteSpec{
			Name:                 s.Name,
			URL:                  s.URL,
			Group:                nameOf(groupNames, s.GroupID),
			CheckIntervalSeconds: s.CheckIntervalSeconds,
			TimeoutSeconds:       s.TimeoutSeconds,
			ExpectedStatus:       s.ExpectedStatus,
			Keyword:              s.Keyword,
			Enabled:              &enabled,
		})
	}

	var applications []model.Application
	if err := database.Order("name").Find(&applications).Error; err != nil {
		return nil, err
	}
	for _, a := range applications {
		doc.Applications = append(doc.Applications, inventory.ApplicationSpec{
			Name:       a.Name,
			Site:       nameOf(siteNames, a.SiteID),
			Server:     nameOf(serverNames, a.ServerID),
			Kind:       a.Kind,
			Version:    a.Version,
			Port:       a.Port,
			HealthPath: a.HealthPath,
			Notes:      a.Notes,
		})
	}

	return doc, nil
}

func nameOf(names map[uint]string, id *uint) string {
	if id == nil {
		return ""
	}
	return names[*id]
}
