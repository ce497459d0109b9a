package inventory

import "github.com/opsdeck/opsdeck/pkg/model"

// Store abstracts the storage operations for inventory loading.
// This allows the loader to work with different backends (e.g., database, mock for testing).
//
// The ByName lookups return (nil, nil) when no record exists so the loader
// can distinguish "create" from "update" without sentinel errors.
type Store interface {
	// Transaction wraps operations in a database transaction.
	// The provided function receives a transactional Store.
	// If the function returns an error, the transaction is rolled back.
	Transaction(fn func(Store) error) error

	CredentialByName(name string) (*model.Credential, error)
	SaveCredential(c *model.Credential) error

	ServerByName(name string) (*model.Server, error)
	SaveServer(s *model.Server) error

	DeviceByName(name string) (*model.NetworkDevice, error)
	SaveDevice(d *model.NetworkDevice) error

	DatabaseByName(name string) (*model.Database, error)
	SaveDatabase(d *model.Database) error

	SiteGroupByName(name string) (*model.SiteGroup, error)
	SaveSiteGroup(g *model.SiteGroup) error

	SiteByName(name string) (*model.BusinessSite, error)
	SaveSite(s *model.BusinessSite) error

	ApplicationByName(name string) (*model.Application, error)
	SaveApplication(a *model.Application) error
}
