package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Credential kinds.
const (
	CredentialPassword = "password"
	CredentialSSHKey   = "ssh_key"
)

// Credential is a reusable secret: a password or an SSH private key.
// Servers, network devices and databases reference credentials by id.
//
// Secret is encrypted at rest. The stable UID is the encryption AAD, so a
// ciphertext copied onto another credential row fails to decrypt. The
// secret value is never serialized into API responses.
type Credential struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	UID         string    `gorm:"column:uid;not null" json:"uid"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Kind        string    `gorm:"column:kind;not null" json:"kind"`
	Username    string    `gorm:"column:username" json:"username"`
	Secret      []byte    `gorm:"column:secret;type:bytea" json:"-"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Credential) TableName() string {
	return "credentials"
}

// HasSecret reports whether a secret value is stored.
func (c *Credential) HasSecret() bool {
	return len(c.Secret) > 0
}

// ValidCredentialKind reports whether kind is a supported credential kind.
func ValidCredentialKind(kind string) bool {
	switch kind {
	case CredentialPassword, CredentialSSHKey:
		return true
	}
	return false
}

func (c *Credential) BeforeSave(tx *gorm.DB) error {
	if len(c.Secret) == 0 {
		return nil
	}
	if c.UID == "" {
		return fmt.Errorf("credential %q has no uid to bind encryption to", c.Name)
	}

	encrypt := cipherForDB(tx).Encrypt

	var err error
	c.Secret, err = encrypt([]byte(c.UID), c.Secret)
	if err != nil {
		err = fmt.Errorf("secret encryption failed for credential uid=%q", c.UID)
	}
	return err
}

func (c *Credential) AfterFind(tx *gorm.DB) (err error) {
	if len(c.Secret) == 0 {
		return nil
	}

	decrypt := cipherForDB(tx).Decrypt

	c.Secret, err = decrypt([]byte(c.UID), c.Secret)
	if err != nil {
		err = fmt.Errorf("secret decryption failed for credential uid=%q", c.UID)
	}
	return
}
