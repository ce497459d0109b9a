package store

import (
	"errors"
	"time"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// ErrSiteNotFound is returned when a business site doesn't exist
var ErrSiteNotFound = errors.New("site not found")

// ErrSiteNameTaken is returned when a site name is already in use
var ErrSiteNameTaken = errors.New("site name already taken")

// ErrSiteGroupNotFound is returned when a site group doesn't exist
var ErrSiteGroupNotFound = errors.New("site group not found")

// ErrSiteGroupNameTaken is returned when a group name is already in use
var ErrSiteGroupNameTaken = errors.New("site group name already taken")

// SitesStore abstracts business site and site group storage operations
type SitesStore interface {
	// ListGroups returns all site groups ordered by name.
	ListGroups() ([]model.SiteGroup, error)

	// GetGroup retrieves a group by id.
	// Returns ErrSiteGroupNotFound if the group doesn't exist.
	GetGroup(id uint) (*model.SiteGroup, error)

	// CreateGroup creates a new group.
	// Returns ErrSiteGroupNameTaken when the name is already in use.
	CreateGroup(group *model.SiteGroup) error

	// UpdateGroup persists changes to an existing group.
	UpdateGroup(group *model.SiteGroup) error

	// DeleteGroup removes a group by id. Member sites keep existing with
	// their group cleared.
	DeleteGroup(id uint) error

	// ListSites returns sites matching search and, when groupID is
	// non-zero, belonging to that group. Ordered by name.
	ListSites(search string, groupID uint, limit, offset int) ([]model.BusinessSite, error)

	// CountSites returns the count of sites matching the criteria.
	CountSites(search string, groupID uint) (int64, error)

	// GetSite retrieves a site by id.
	// Returns ErrSiteNotFound if the site doesn't exist.
	GetSite(id uint) (*model.BusinessSite, error)

	// CreateSite creates a new site.
	// Returns ErrSiteNameTaken when the name is already in use.
	CreateSite(site *model.BusinessSite) error

	// UpdateSite persists changes to an existing site.
	UpdateSite(site *model.BusinessSite) error

	// DeleteSite removes a site by id.
	DeleteSite(id uint) error

	// EnabledSites returns sites with checking enabled, for the checker.
	EnabledSites() ([]model.BusinessSite, error)

	// SetSiteCheckState records the outcome of an availability evaluation.
	SetSiteCheckState(id uint, status string, score float64, checkedAt time.Time) error
}
