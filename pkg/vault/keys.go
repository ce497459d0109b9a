package vault

import (
	"encoding/base64"
	"fmt"
	"os"
)

// DataKeyEnv is the environment variable holding the base64-encoded 32-byte
// data key used to encrypt credential secrets at rest.
const DataKeyEnv = "OPSDECK_DATA_KEY"

const dataKeySize = 32

// LoadDataKey reads and decodes the data key from the environment.
func LoadDataKey() ([]byte, error) {
	encoded := os.Getenv(DataKeyEnv)
	if encoded == "" {
		return nil, fmt.Errorf("%s environment variable is required", DataKeyEnv)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", DataKeyEnv, err)
	}
	if len(key) != dataKeySize {
		return nil, fmt.Errorf("%s must decode to %d bytes, got %d", DataKeyEnv, dataKeySize, len(key))
	}

	return key, nil
}

// GenerateDataKey produces a new base64-encoded data key suitable for
// DataKeyEnv.
func GenerateDataKey() (string, error) {
	key, err := RandomBytes(dataKeySize)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(key), nil
}
