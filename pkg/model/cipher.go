package model

import (
	"errors"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/vault"
)

// noCipher surfaces a usable error when a session without a cipher touches
// an encrypted column, instead of a nil dereference inside a hook.
type noCipher struct{}

func (noCipher) Encrypt(aad, plainText []byte) ([]byte, error) {
	return nil, errors.New("no cipher in gorm session context")
}

func (noCipher) Decrypt(aad, packedText []byte) ([]byte, error) {
	return nil, errors.New("no cipher in gorm session context")
}

// cipherForDB pulls the vault cipher out of the gorm session context.
// db.Connect attaches it when a cipher is configured.
func cipherForDB(tx *gorm.DB) vault.SymmetricCipher {
	if cipher, ok := vault.FromContext(tx.Statement.Context); ok {
		return cipher
	}
	return noCipher{}
}
