package endpoints

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/vault"
)

func TestMockDB(t *testing.T) {
	mockDB, err := NewMockDB()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer mockDB.Close()

	if mockDB.DB == nil || mockDB.Mock == nil || mockDB.GormDB == nil {
		t.Fatal("mock db came up with nil handles")
	}
}

func TestMockUserQuery(t *testing.T) {
	mockDB, err := NewMockDB()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer mockDB.Close()

	mockDB.ExpectUserQuery("alice", "$2a$12$fakehash", "admin")

	var result struct {
		Username string `gorm:"column:username"`
		Role     string `gorm:"column:role"`
	}
	err = mockDB.GormDB.Table("users").
		Select("username, role").
		Where("username = ?", "alice").
		First(&result).Error

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result.Username != "alice" {
		t.Errorf("expected username %q, got %q", "alice", result.Username)
	}
	if result.Role != "admin" {
		t.Errorf("expected role %q, got %q", "admin", result.Role)
	}

	if err := mockDB.VerifyExpectations(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMockUserNotFound(t *testing.T) {
	mockDB, err := NewMockDB()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer mockDB.Close()

	mockDB.ExpectUserNotFound("nobody")

	var result struct {
		Username string `gorm:"column:username"`
	}
	err = mockDB.GormDB.Table("users").
		Select("username").
		Where("username = ?", "nobody").
		First(&result).Error

	if err == nil {
		t.Error("expected error for non-existent user")
	}

	if err := mockDB.VerifyExpectations(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMockServerLookup(t *testing.T) {
	mockDB, err := NewMockDB()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer mockDB.Close()

	agentKey := "3b9f8b60-8c5e-4a2f-9d11-64c6a2f0a001"
	mockDB.ExpectServerQuery(4, "web-01", agentKey)

	var result struct {
		Name     string `gorm:"column:name"`
		AgentKey string `gorm:"column:agent_key"`
	}
	err = mockDB.GormDB.Table("servers").
		Select("name, agent_key").
		Where("id = ?", 4).
		First(&result).Error

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result.Name != "web-01" {
		t.Errorf("expected name %q, got %q", "web-01", result.Name)
	}
	if result.AgentKey != agentKey {
		t.Errorf("expected agent key %q, got %q", agentKey, result.AgentKey)
	}

	if err := mockDB.VerifyExpectations(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMockCredentialRoundtrip(t *testing.T) {
	dataKey := make([]byte, 32)
	for i := range dataKey {
		dataKey[i] = byte(i)
	}

	cipher, _ := vault.NewSymmetric(dataKey)

	t.Run("secret encryption roundtrip", func(t *testing.T) {
		mockDB, err := NewMockDB()
		if err != nil {
			t.Fatalf("failed to create mock db: %v", err)
		}
		defer mockDB.Close()

		uid := "8f14e45f-ceea-4673-9a2f-b1b716a90a55"
		secretValue := "super-secret-password"

		// Encrypt the secret as it would be stored, with the credential
		// UID as the AAD
		encryptedValue, _ := cipher.Encrypt([]byte(uid), []byte(secretValue))

		mockDB.ExpectCredentialQuery(1, uid, "db-root", encryptedValue)

		var cred struct {
			UID    string `gorm:"column:uid"`
			Secret []byte `gorm:"column:secret"`
		}
		err = mockDB.GormDB.Table("credentials").
			Select("uid, secret").
			First(&cred).Error

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		// Decrypt and verify
		decrypted, err := cipher.Decrypt([]byte(cred.UID), cred.Secret)
		if err != nil {
			t.Errorf("failed to decrypt: %v", err)
		}
		if string(decrypted) != secretValue {
			t.Errorf("expected secret %q, got %q", secretValue, decrypted)
		}

		if err := mockDB.VerifyExpectations(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("ciphertext bound to its credential", func(t *testing.T) {
		uid := "8f14e45f-ceea-4673-9a2f-b1b716a90a55"
		encryptedValue, _ := cipher.Encrypt([]byte(uid), []byte("value"))

		// A ciphertext copied onto another credential row must not decrypt
		_, err := cipher.Decrypt([]byte("some-other-uid"), encryptedValue)
		if err == nil {
			t.Error("expected decryption to fail under a different AAD")
		}
	})
}

func TestMockCredentialNotFound(t *testing.T) {
	mockDB, err := NewMockDB()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer mockDB.Close()

	mockDB.ExpectCredentialNotFound()

	var result struct {
		Secret []byte `gorm:"column:secret"`
	}
	err = mockDB.GormDB.Table("credentials").
		Select("secret").
		First(&result).Error

	if err == nil {
		t.Error("expected error for non-existent credential")
	}

	if err := mockDB.VerifyExpectations(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMockMetricInsert(t *testing.T) {
	mockDB, err := NewMockDB()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer mockDB.Close()

	mockDB.ExpectMetricInsert()

	sample := model.ServerMetric{
		ServerID: 4,
		Time:     time.Now().UTC(),
		CPUUsage: 41.5,
	}
	if err := mockDB.GormDB.Create(&sample).Error; err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mockDB.VerifyExpectations(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMockConnectivityCheck(t *testing.T) {
	mockDB, err := NewMockDB()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer mockDB.Close()

	mockDB.ExpectConnectivityCheck()

	if err := mockDB.GormDB.Exec("SELECT 1").Error; err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mockDB.VerifyExpectations(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMockTransactions(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		mockDB, err := NewMockDB()
		if err != nil {
			t.Fatalf("failed to create mock db: %v", err)
		}
		defer mockDB.Close()

		mockDB.ExpectBeginCommit()

		err = mockDB.GormDB.Transaction(func(tx *gorm.DB) error {
			return nil
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		if err := mockDB.VerifyExpectations(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("rollback", func(t *testing.T) {
		mockDB, err := NewMockDB()
		if err != nil {
			t.Fatalf("failed to create mock db: %v", err)
		}
		defer mockDB.Close()

		mockDB.ExpectBeginRollback()

		boom := errors.New("boom")
		err = mockDB.GormDB.Transaction(func(tx *gorm.DB) error {
			return boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected the callback error back, got %v", err)
		}

		if err := mockDB.VerifyExpectations(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestMockTestServer(t *testing.T) {
	dataKey := make([]byte, 32)
	for i := range dataKey {
		dataKey[i] = byte(i)
	}

	server, mock, err := NewMockTestServer(dataKey)
	if err != nil {
		t.Fatalf("failed to create mock test server: %v", err)
	}
	if server == nil || mock == nil {
		t.Fatal("mock test server came up with nil handles")
	}

	RegisterStatusEndpoints(server)

	// The landing page is static, so no mock expectations are needed
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected an html landing page, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Opsdeck") {
		t.Error("landing page should name the panel")
	}
}
