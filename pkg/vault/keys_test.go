package vault

import (
	"encoding/base64"
	"testing"
)

func TestGenerateDataKey(t *testing.T) {
	encoded, err := GenerateDataKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("generated key is not valid base64: %v", err)
	}
	if len(key) != dataKeySize {
		t.Errorf("key length = %d, want %d", len(key), dataKeySize)
	}

	// A generated key must be directly usable as a data key
	t.Setenv(DataKeyEnv, encoded)
	loaded, err := LoadDataKey()
	if err != nil {
		t.Fatalf("LoadDataKey: %v", err)
	}
	if _, err := NewSymmetric(loaded); err != nil {
		t.Errorf("NewSymmetric with generated key: %v", err)
	}
}

func TestLoadDataKeyErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		t.Setenv(DataKeyEnv, "")
		if _, err := LoadDataKey(); err == nil {
			t.Error("expected error when data key is unset")
		}
	})

	t.Run("not base64", func(t *testing.T) {
		t.Setenv(DataKeyEnv, "not-base-64!!!")
		if _, err := LoadDataKey(); err == nil {
			t.Error("expected error for invalid base64")
		}
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Setenv(DataKeyEnv, base64.StdEncoding.EncodeToString([]byte("short")))
		if _, err := LoadDataKey(); err == nil {
			t.Error("expected error for short key")
		}
	})
}
