package main

import (
	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/db"
	"github.com/opsdeck/opsdeck/pkg/vault"
)

// openDatabase connects to the database with the data-key cipher attached,
// so credential secret hooks work. Used by the one-shot commands; the
// server command wires this up itself.
func openDatabase() (*gorm.DB, vault.SymmetricCipher, error) {
	dataKey, err := vault.LoadDataKey()
	if err != nil {
		return nil, nil, err
	}

	cipher, err := vault.NewSymmetric(dataKey)
	if err != nil {
		return nil, nil, err
	}

	database, err := db.Connect(db.Config{Cipher: cipher})
	if err != nil {
		return nil, nil, err
	}

	return database, cipher, nil
}
