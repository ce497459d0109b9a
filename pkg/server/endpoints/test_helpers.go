package endpoints

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/token"
	"github.com/opsdeck/opsdeck/pkg/vault"
)

// testTokenSecret signs session tokens in test servers. It only ever
// matters that the issuer and the middleware share it.
const testTokenSecret = "opsdeck-endpoints-test-token-secret-0123456789"

// NewTestServer creates a server instance for testing.
// It requires a running PostgreSQL database with migrations applied.
func NewTestServer(dbURL string, dataKey []byte) (*server.Server, error) {
	cipher, err := vault.NewSymmetric(dataKey)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(
		postgres.New(postgres.Config{
			DSN:                  dbURL,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	if err != nil {
		return nil, err
	}

	db = db.WithContext(vault.WithCipher(context.Background(), cipher))

	cfg := &config.OpsdeckConfig{
		APIListLimitMax:         500,
		TokenTTLMinutes:         720,
		HeartbeatOfflineSeconds: 120,
		BackupConcurrency:       2,
	}
	issuer := token.NewIssuer([]byte(testTokenSecret), cfg.TokenTTL())
	s := server.NewServer(cfg, cipher, issuer, db, "127.0.0.1", "0")

	return s, nil
}

// SetupTestUser creates a panel account, replacing any previous run's row.
func SetupTestUser(db *gorm.DB, username, password, role string) (*model.User, error) {
	db.Exec(`DELETE FROM users WHERE username = ?`, username)

	user := &model.User{
		Username: username,
		Role:     role,
		Active:   true,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateTestServerRow creates a managed server fixture. The generated
// agent key is on the returned row.
func CreateTestServerRow(db *gorm.DB, name, host string) (*model.Server, error) {
	db.Exec(`DELETE FROM servers WHERE name = ?`, name)

	srv := &model.Server{Name: name, Host: host}
	if err := db.Create(srv).Error; err != nil {
		return nil, err
	}
	return srv, nil
}

// CreateTestCredential creates a credential fixture. The secret is
// encrypted by the model hooks on the way in.
func CreateTestCredential(db *gorm.DB, uid, name string, secret []byte) (*model.Credential, error) {
	db.Exec(`DELETE FROM credentials WHERE name = ?`, name)

	cred := &model.Credential{
		UID:      uid,
		Name:     name,
		Kind:     model.CredentialPassword,
		Username: "svc",
		Secret:   secret,
	}
	if err := db.Create(cred).Error; err != nil {
		return nil, err
	}
	return cred, nil
}

// CleanupTestData removes fixture rows whose names carry the given prefix.
func CleanupTestData(db *gorm.DB, prefix string) {
	like := prefix + "%"
	db.Exec(`DELETE FROM server_metrics WHERE server_id IN (SELECT id FROM servers WHERE name LIKE ?)`, like)
	db.Exec(`DELETE FROM servers WHERE name LIKE ?`, like)
	db.Exec(`DELETE FROM credentials WHERE name LIKE ?`, like)
	db.Exec(`DELETE FROM users WHERE username LIKE ?`, like)
}

// GenerateTestToken issues a session token the way the login endpoint
// would, signed with the test server's issuer.
func GenerateTestToken(s *server.Server, user *model.User) (string, error) {
	signed, _, err := s.Issuer.Issue(user.ID, user.Username, user.Role)
	return signed, err
}
