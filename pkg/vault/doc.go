// Package vault provides the at-rest encryption used for stored credentials.
//
// Credential secrets are encrypted with AES-256-GCM under a single server
// data key before they reach the database. The associated data (AAD) is the
// owning credential's UID, so a ciphertext copied onto another row fails to
// decrypt.
//
// # Data Key
//
// The data key is a base64-encoded 32-byte value carried in the
// OPSDECK_DATA_KEY environment variable:
//
//	key, err := vault.LoadDataKey()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cipher, err := vault.NewSymmetric(key)
//
// Generate a fresh one with `opsdeckctl data-key generate`.
//
// # Stored Format
//
// Encrypted values are packed as a single byte slice:
//
//	version magic | GCM tag | iv | ciphertext
//
// # Usage
//
//	ciphertext, err := cipher.Encrypt([]byte(credential.UID), secret)
//	plaintext, err := cipher.Decrypt([]byte(credential.UID), ciphertext)
//
// The db package places the cipher in the gorm session context; model hooks
// fetch it with vault.FromContext to encrypt on save and decrypt on find.
package vault
