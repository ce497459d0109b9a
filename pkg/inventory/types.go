package inventory

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Document is one fleet inventory file.
type Document struct {
	Credentials  []CredentialSpec  `yaml:"credentials"`
	Servers      []ServerSpec      `yaml:"servers"`
	Devices      []DeviceSpec      `yaml:"devices"`
	Databases    []DatabaseSpec    `yaml:"databases"`
	SiteGroups   []SiteGroupSpec   `yaml:"site_groups"`
	Sites        []SiteSpec        `yaml:"sites"`
	Applications []ApplicationSpec `yaml:"applications"`
}

// CredentialSpec declares a credential. The secret value is read from
// the environment variable named by secret_env, never from the file.
type CredentialSpec struct {
	Name        string `yaml:"name" validate:"required"`
	Kind        string `yaml:"kind" validate:"required,oneof=password ssh_key"`
	Username    string `yaml:"username"`
	SecretEnv   string `yaml:"secret_env"`
	Description string `yaml:"description"`
}

type ServerSpec struct {
	Name       string `yaml:"name" validate:"required"`
	Host       string `yaml:"host" validate:"required"`
	Port       int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	SSHUser    string `yaml:"ssh_user"`
	Credential string `yaml:"credential"`
	JumpHost   string `yaml:"jump_host"`
	OS         string `yaml:"os"`
	Arch       string `yaml:"arch"`
	Tags       string `yaml:"tags"`
	Notes      string `yaml:"notes"`
}

type DeviceSpec struct {
	Name          string `yaml:"name" validate:"required"`
	Address       string `yaml:"address" validate:"required"`
	Vendor        string `yaml:"vendor"`
	Model         string `yaml:"model"`
	DeviceType    string `yaml:"device_type" validate:"omitempty,oneof=switch router firewall ap other"`
	ProbePort     int    `yaml:"probe_port" validate:"omitempty,min=1,max=65535"`
	SNMPCommunity string `yaml:"snmp_community"`
	Credential    string `yaml:"credential"`
	Notes         string `yaml:"notes"`
}

type DatabaseSpec struct {
	Name       string `yaml:"name" validate:"required"`
	Engine     string `yaml:"engine" validate:"required,oneof=postgres mysql redis"`
	Host       string `yaml:"host" validate:"required"`
	Port       int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	DBName     string `yaml:"db_name"`
	Username   string `yaml:"username"`
	Credential string `yaml:"credential"`
	Server     string `yaml:"server"`
	Notes      string `yaml:"notes"`
}

type SiteGroupSpec struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
}

type SiteSpec struct {
	Name                 string `yaml:"name" validate:"required"`
	URL                  string `yaml:"url" validate:"required,url"`
	Group                string `yaml:"group"`
	CheckIntervalSeconds int    `yaml:"check_interval_seconds" validate:"omitempty,min=10"`
	TimeoutSeconds       int    `yaml:"timeout_seconds" validate:"omitempty,min=1,max=120"`
	ExpectedStatus       int    `yaml:"expected_status" validate:"omitempty,min=100,max=599"`
	Keyword              string `yaml:"keyword"`
	Enabled              *bool  `yaml:"enabled"`
}

type ApplicationSpec struct {
	Name       string `yaml:"name" validate:"required"`
	Site       string `yaml:"site"`
	Server     string `yaml:"server"`
	Kind       string `yaml:"kind"`
	Version    string `yaml:"version"`
	Port       int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	HealthPath string `yaml:"health_path"`
	Notes      string `yaml:"notes"`
}

// Parse decodes and validates an inventory document. Unknown fields are
// rejected so typos surface at load time instead of being silently
// ignored.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// namedSpec lets the section validator report entries by name.
type namedSpec interface {
	specName() string
}

func (s CredentialSpec) specName() string  { return s.Name }
func (s ServerSpec) specName() string      { return s.Name }
func (s DeviceSpec) specName() string      { return s.Name }
func (s DatabaseSpec) specName() string    { return s.Name }
func (s SiteGroupSpec) specName() string   { return s.Name }
func (s SiteSpec) specName() string        { return s.Name }
func (s ApplicationSpec) specName() string { return s.Name }

// Validate checks every entry and rejects duplicate names per section.
func (d *Document) Validate() error {
	if err := validateSection("credentials", d.Credentials); err != nil {
		return err
	}
	if err := validateSection("servers", d.Servers); err != nil {
		return err
	}
	if err := validateSection("devices", d.Devices); err != nil {
		return err
	}
	if err := validateSection("databases", d.Databases); err != nil {
		return err
	}
	if err := validateSection("site_groups", d.SiteGroups); err != nil {
		return err
	}
	if err := validateSection("sites", d.Sites); err != nil {
		return err
	}
	return validateSection("applications", d.Applications)
}

func validateSection[T namedSpec](kind string, specs []T) error {
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		if err := validate.Struct(spec); err != nil {
			return fmt.Errorf("%s[%d] (%s): %w", kind, i, spec.specName(), err)
		}
		if seen[spec.specName()] {
			return fmt.Errorf("%s: duplicate name %q", kind, spec.specName())
		}
		seen[spec.specName()] = true
	}
	return nil
}
