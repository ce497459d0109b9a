package store

import (
	"errors"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// ErrCredentialNotFound is returned when a credential doesn't exist
var ErrCredentialNotFound = errors.New("credential not found")

// ErrCredentialNameTaken is returned when a credential name is already in use
var ErrCredentialNameTaken = errors.New("credential name already taken")

// ErrCredentialInUse is returned when deleting a credential that servers,
// devices or databases still reference
var ErrCredentialInUse = errors.New("credential still referenced")

// CredentialsStore abstracts credential storage operations.
//
// Secrets come back decrypted; whether the value leaves the process is the
// caller's decision.
type CredentialsStore interface {
	// ListCredentials returns credentials matching search (name or
	// username), ordered by name.
	ListCredentials(search string, limit, offset int) ([]model.Credential, error)

	// CountCredentials returns the count of credentials matching search.
	CountCredentials(search string) (int64, error)

	// GetCredential retrieves a credential by id.
	// Returns ErrCredentialNotFound if the credential doesn't exist.
	GetCredential(id uint) (*model.Credential, error)

	// CreateCredential creates a new credential.
	// Returns ErrCredentialNameTaken when the name is already in use.
	CreateCredential(cred *model.Credential) error

	// UpdateCredential persists changes to an existing credential. An
	// empty Secret keeps the stored value.
	UpdateCredential(cred *model.Credential) error

	// DeleteCredential removes a credential by id.
	// Returns ErrCredentialInUse when other resources still reference it.
	DeleteCredential(id uint) error
}
