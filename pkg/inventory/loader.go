package inventory

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// errDryRun rolls the transaction back after a dry run has applied the whole
// document. It never escapes Load.
var errDryRun = errors.New("dry run rollback")

// Result summarizes an applied inventory document.
type Result struct {
	Created map[string]int `json:"created"`
	Updated map[string]int `json:"updated"`
	DryRun  bool           `json:"dry_run"`
}

// Loader applies inventory documents to the database.
type Loader struct {
	store     Store
	dryRun    bool
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a new inventory loader.
func NewLoader(store Store) *Loader {
	return &Loader{store: store, lookupEnv: os.LookupEnv}
}

// WithDryRun sets whether to validate and resolve only, rolling back every change.
func (l *Loader) WithDryRun(dryRun bool) *Loader {
	l.dryRun = dryRun
	return l
}

// LoadFile parses and applies the inventory file at path.
func (l *Loader) LoadFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.LoadFromReader(f)
}

// LoadFromReader parses and applies an inventory document read from r.
func (l *Loader) LoadFromReader(r io.Reader) (*Result, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return l.Load(doc)
}

// Load validates doc and applies it in a single transaction. Sections are
// applied in dependency order: credentials first, then servers, devices,
// databases, site groups, sites and applications, so later sections can
// reference entries defined earlier in the same document.
func (l *Loader) Load(doc *Document) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		Created: make(map[string]int),
		Updated: make(map[string]int),
		DryRun:  l.dryRun,
	}

	err := l.store.Transaction(func(tx Store) error {
		ctx := &applyContext{store: tx, lookupEnv: l.lookupEnv, result: result}

		if err := ctx.applyCredentials(doc.Credentials); err != nil {
			return err
		}
		if err := ctx.applyServers(doc.Servers); err != nil {
			return err
		}
		if err := ctx.applyDevices(doc.Devices); err != nil {
			return err
		}
		if err := ctx.applyDatabases(doc.Databases); err != nil {
			return err
		}
		if err := ctx.applySiteGroups(doc.SiteGroups); err != nil {
			return err
		}
		if err := ctx.applySites(doc.Sites); err != nil {
			return err
		}
		if err := ctx.applyApplications(doc.Applications); err != nil {
			return err
		}

		if l.dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyContext holds state while a document is applied inside a transaction.
type applyContext struct {
	store     Store
	lookupEnv func(string) (string, bool)
	result    *Result
}

func (ctx *applyContext) created(section string) { ctx.result.Created[section]++ }
func (ctx *applyContext) updated(section string) { ctx.result.Updated[section]++ }

func (ctx *applyContext) applyCredentials(specs []CredentialSpec) error {
	for _, spec := range specs {
		existing, err := ctx.store.CredentialByName(spec.Name)
		if err != nil {
			return err
		}

		if existing == nil {
			if spec.SecretEnv == "" {
				return fmt.Errorf("credential %q: secret_env is required for new credentials", spec.Name)
			}
			secret, err := ctx.secretFromEnv(spec)
			if err != nil {
				return err
			}
			cred := &model.Credential{
				UID:         uuid.New().String(),
				Name:        spec.Name,
				Kind:        spec.Kind,
				Username:    spec.Username,
				Secret:      secret,
				Description: spec.Description,
			}
			if err := ctx.store.SaveCredential(cred); err != nil {
				return err
			}
			ctx.created("credentials")
			continue
		}

		existing.Kind = spec.Kind
		if spec.Username != "" {
			existing.Username = spec.Username
		}
		if spec.Description != "" {
			existing.Description = spec.Description
		}
		if spec.SecretEnv != "" {
			secret, err := ctx.secretFromEnv(spec)
			if err != nil {
				return err
			}
			existing.Secret = secret
		}
		// The fetched secret was decrypted on read; saving re-encrypts it.
		if err := ctx.store.SaveCredential(existing); err != nil {
			return err
		}
		ctx.updated("credentials")
	}
	return nil
}

func (ctx *applyContext) secretFromEnv(spec CredentialSpec) ([]byte, error) {
	value, ok := ctx.lookupEnv(spec.SecretEnv)
	if !ok {
		return nil, fmt.Errorf("credential %q: environment variable %s is not set", spec.Name, spec.SecretEnv)
	}
	return []byte(value), nil
}

// applyServers runs two passes. The first creates or updates every server;
// jump hosts resolve in the second so a server may name one defined later in
// the document.
func (ctx *applyContext) applyServers(specs []ServerSpec) error {
	byName := make(map[string]*model.Server, len(specs))

	for _, spec := range specs {
		srv, err := ctx.store.ServerByName(spec.Name)
		if err != nil {
			return err
		}

		isNew := srv == nil
		if isNew {
			srv = &model.Server{Name: spec.Name}
		}
		srv.Host = spec.Host
		if spec.Port != 0 {
			srv.Port = spec.Port
		}
		if spec.SSHUser != "" {
			srv.SSHUser = spec.SSHUser
		}
		if spec.OS != "" {
			srv.OS = spec.OS
		}
		if spec.Arch != "" {
			srv.Arch = spec.Arch
		}
		if spec.Tags != "" {
			srv.Tags = spec.Tags
		}
		if spec.Notes != "" {
			srv.Notes = spec.Notes
		}
		if spec.Credential != "" {
			id, err := ctx.credentialRef(spec.Credential)
			if err != nil {
				return fmt.Errorf("server %q: %w", spec.Name, err)
			}
			srv.CredentialID = id
		}

		if err := ctx.store.SaveServer(srv); err != nil {
			return err
		}
		byName[spec.Name] = srv
		if isNew {
			ctx.created("servers")
		} else {
			ctx.updated("servers")
		}
	}

	for _, spec := range specs {
		if spec.JumpHost == "" {
			continue
		}
		if spec.JumpHost == spec.Name {
			return fmt.Errorf("server %q: jump_host refers to itself", spec.Name)
		}
		jump := byName[spec.JumpHost]
		if jump == nil {
			var err error
			jump, err = ctx.store.ServerByName(spec.JumpHost)
			if err != nil {
				return err
			}
			if jump == nil {
				return fmt.Errorf("server %q: jump_host %q not found", spec.Name, spec.JumpHost)
			}
		}
		srv := byName[spec.Name]
		srv.JumpHostID = &jump.ID
		if err := ctx.store.SaveServer(srv); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *applyContext) applyDevices(specs []DeviceSpec) error {
	for _, spec := range specs {
		dev, err := ctx.store.DeviceByName(spec.Name)
		if err != nil {
			return err
		}

		isNew := dev == nil
		if isNew {
			dev = &model.NetworkDevice{Name: spec.Name}
		}
		dev.Address = spec.Address
		if spec.DeviceType != "" {
			dev.DeviceType = spec.DeviceType
		}
		if spec.ProbePort != 0 {
			dev.ProbePort = spec.ProbePort
		}
		if spec.Vendor != "" {
			dev.Vendor = spec.Vendor
		}
		if spec.Model != "" {
			dev.Model = spec.Model
		}
		if spec.SNMPCommunity != "" {
			dev.SNMPCommunity = spec.SNMPCommunity
		}
		if spec.Notes != "" {
			dev.Notes = spec.Notes
		}
		if spec.Credential != "" {
			id, err := ctx.credentialRef(spec.Credential)
			if err != nil {
				return fmt.Errorf("device %q: %w", spec.Name, err)
			}
			dev.CredentialID = id
		}

		if err := ctx.store.SaveDevice(dev); err != nil {
			return err
		}
		if isNew {
			ctx.created("devices")
		} else {
			ctx.updated("devices")
		}
	}
	return nil
}

func (ctx *applyContext) applyDatabases(specs []DatabaseSpec) error {
	for _, spec := range specs {
		db, err := ctx.store.DatabaseByName(spec.Name)
		if err != nil {
			return err
		}

		isNew := db == nil
		if isNew {
			db = &model.Database{Name: spec.Name}
		}
		db.Engine = spec.Engine
		db.Host = spec.Host
		if spec.Port != 0 {
			db.Port = spec.Port
		}
		if spec.DBName != "" {
			db.DBName = spec.DBName
		}
		if spec.Username != "" {
			db.Username = spec.Username
		}
		if spec.Notes != "" {
			db.Notes = spec.Notes
		}
		if spec.Credential != "" {
			id, err := ctx.credentialRef(spec.Credential)
			if err != nil {
				return fmt.Errorf("database %q: %w", spec.Name, err)
			}
			db.CredentialID = id
		}
		if spec.Server != "" {
			id, err := ctx.serverRef(spec.Server)
			if err != nil {
				return fmt.Errorf("database %q: %w", spec.Name, err)
			}
			db.ServerID = id
		}

		if err := ctx.store.SaveDatabase(db); err != nil {
			return err
		}
		if isNew {
			ctx.created("databases")
		} else {
			ctx.updated("databases")
		}
	}
	return nil
}

func (ctx *applyContext) applySiteGroups(specs []SiteGroupSpec) error {
	for _, spec := range specs {
		group, err := ctx.store.SiteGroupByName(spec.Name)
		if err != nil {
			return err
		}

		isNew := group == nil
		if isNew {
			group = &model.SiteGroup{Name: spec.Name}
		}
		if spec.Description != "" {
			group.Description = spec.Description
		}

		if err := ctx.store.SaveSiteGroup(group); err != nil {
			return err
		}
		if isNew {
			ctx.created("site_groups")
		} else {
			ctx.updated("site_groups")
		}
	}
	return nil
}

func (ctx *applyContext) applySites(specs []SiteSpec) error {
	for _, spec := range specs {
		site, err := ctx.store.SiteByName(spec.Name)
		if err != nil {
			return err
		}

		isNew := site == nil
		if isNew {
			site = &model.BusinessSite{Name: spec.Name, Enabled: true}
		}
		site.URL = spec.URL
		if spec.CheckIntervalSeconds != 0 {
			site.CheckIntervalSeconds = spec.CheckIntervalSeconds
		}
		if spec.TimeoutSeconds != 0 {
			site.TimeoutSeconds = spec.TimeoutSeconds
		}
		if spec.ExpectedStatus != 0 {
			site.ExpectedStatus = spec.ExpectedStatus
		}
		if spec.Keyword != "" {
			site.Keyword = spec.Keyword
		}
		if spec.Enabled != nil {
			site.Enabled = *spec.Enabled
		}
		if spec.Group != "" {
			id, err := ctx.siteGroupRef(spec.Group)
			if err != nil {
				return fmt.Errorf("site %q: %w", spec.Name, err)
			}
			site.GroupID = id
		}

		if err := ctx.store.SaveSite(site); err != nil {
			return err
		}
		if isNew {
			ctx.created("sites")
		} else {
			ctx.updated("sites")
		}
	}
	return nil
}

func (ctx *applyContext) applyApplications(specs []ApplicationSpec) error {
	for _, spec := range specs {
		app, err := ctx.store.ApplicationByName(spec.Name)
		if err != nil {
			return err
		}

		isNew := app == nil
		if isNew {
			app = &model.Application{Name: spec.Name}
		}
		if spec.Kind != "" {
			app.Kind = spec.Kind
		}
		if spec.Version != "" {
			app.Version = spec.Version
		}
		if spec.Port != 0 {
			app.Port = spec.Port
		}
		if spec.HealthPath != "" {
			app.HealthPath = spec.HealthPath
		}
		if spec.Notes != "" {
			app.Notes = spec.Notes
		}
		if spec.Site != "" {
			id, err := ctx.siteRef(spec.Site)
			if err != nil {
				return fmt.Errorf("application %q: %w", spec.Name, err)
			}
			app.SiteID = id
		}
		if spec.Server != "" {
			id, err := ctx.serverRef(spec.Server)
			if err != nil {
				return fmt.Errorf("application %q: %w", spec.Name, err)
			}
			app.ServerID = id
		}

		if err := ctx.store.SaveApplication(app); err != nil {
			return err
		}
		if isNew {
			ctx.created("applications")
		} else {
			ctx.updated("applications")
		}
	}
	return nil
}

func (ctx *applyContext) credentialRef(name string) (*uint, error) {
	cred, err := ctx.store.CredentialByName(name)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, fmt.Errorf("credential %q not found", name)
	}
	return &cred.ID, nil
}

func (ctx *applyContext) serverRef(name string) (*uint, error) {
	srv, err := ctx.store.ServerByName(name)
	if err != nil {
		return nil, err
	}
	if srv == nil {
		return nil, fmt.Errorf("server %q not found", name)
	}
	return &srv.ID, nil
}

func (ctx *applyContext) siteGroupRef(name string) (*uint, error) {
	group, err := ctx.store.SiteGroupByName(name)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("site group %q not found", name)
	}
	return &group.ID, nil
}

func (ctx *applyContext) siteRef(name string) (*uint, error) {
	site, err := ctx.store.SiteByName(name)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, fmt.Errorf("site %q not found", name)
	}
	return &site.ID, nil
}
