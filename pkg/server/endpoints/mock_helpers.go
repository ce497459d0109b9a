package endpoints

import (
	"database/sql"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/token"
	"github.com/opsdeck/opsdeck/pkg/vault"
)

// NewMockTestServer creates a server instance with a mocked database for
// unit testing. Returns the server, sqlmock instance, and any error.
func NewMockTestServer(dataKey []byte) (*server.Server, sqlmock.Sqlmock, error) {
	cipher, err := vault.NewSymmetric(dataKey)
	if err != nil {
		return nil, nil, err
	}

	// Create sqlmock database
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}

	// Wrap with GORM
	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 mockDB,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	if err != nil {
		_ = mockDB.Close()
		return nil, nil, err
	}

	cfg := &config.OpsdeckConfig{
		APIListLimitMax:         500,
		TokenTTLMinutes:         720,
		HeartbeatOfflineSeconds: 120,
		BackupConcurrency:       2,
	}
	issuer := token.NewIssuer([]byte(testTokenSecret), cfg.TokenTTL())
	s := server.NewServer(cfg, cipher, issuer, gormDB, "127.0.0.1", "0")

	return s, mock, nil
}

// MockDB wraps sqlmock for easier test setup
type MockDB struct {
	DB     *sql.DB
	Mock   sqlmock.Sqlmock
	GormDB *gorm.DB
}

// NewMockDB creates a new mock database connection
func NewMockDB() (*MockDB, error) {
	db, mock, err := sqlmock.New()
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 db,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &MockDB{
		DB:     db,
		Mock:   mock,
		GormDB: gormDB,
	}, nil
}

// Close closes the mock database
func (m *MockDB) Close() error {
	return m.DB.Close()
}

// ExpectUserQuery sets up expectation for a user lookup by username
func (m *MockDB) ExpectUserQuery(username, passwordHash, role string) {
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "active"}).
		AddRow(1, username, passwordHash, role, true)
	m.Mock.ExpectQuery(`SELECT .* FROM "users"`).
		WithArgs(username).
		WillReturnRows(rows)
}

// ExpectUserNotFound sets up expectation for user not found
func (m *MockDB) ExpectUserNotFound(username string) {
	m.Mock.ExpectQuery(`SELECT .* FROM "users"`).
		WithArgs(username).
		WillReturnError(sql.ErrNoRows)
}

// ExpectServerQuery sets up expectation for a server lookup by agent key
func (m *MockDB) ExpectServerQuery(id uint, name, agentKey string) {
	rows := sqlmock.NewRows([]string{"id", "name", "host", "port", "agent_key", "status"}).
		AddRow(id, name, "10.0.0.1", 22, agentKey, "unknown")
	m.Mock.ExpectQuery(`SELECT .* FROM "servers"`).
		WillReturnRows(rows)
}

// ExpectServerNotFound sets up expectation for server not found
func (m *MockDB) ExpectServerNotFound() {
	m.Mock.ExpectQuery(`SELECT .* FROM "servers"`).
		WillReturnError(sql.ErrNoRows)
}

// ExpectCredentialQuery sets up expectation for a credential lookup, with
// secret as the stored (encrypted) value
func (m *MockDB) ExpectCredentialQuery(id uint, uid, name string, secret []byte) {
	rows := sqlmock.NewRows([]string{"id", "uid", "name", "kind", "secret"}).
		AddRow(id, uid, name, "password", secret)
	m.Mock.ExpectQuery(`SELECT .* FROM "credentials"`).
		WillReturnRows(rows)
}

// ExpectCredentialNotFound sets up expectation for credential not found
func (m *MockDB) ExpectCredentialNotFound() {
	m.Mock.ExpectQuery(`SELECT .* FROM "credentials"`).
		WillReturnError(sql.ErrNoRows)
}

// ExpectMetricInsert sets up expectation for a heartbeat sample insert,
// including the transaction GORM wraps writes in
func (m *MockDB) ExpectMetricInsert() {
	m.Mock.ExpectBegin()
	m.Mock.ExpectExec(`INSERT INTO "server_metrics"`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	m.Mock.ExpectCommit()
}

// ExpectConnectivityCheck sets up expectation for the health probe
func (m *MockDB) ExpectConnectivityCheck() {
	m.Mock.ExpectExec(`SELECT 1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

// ExpectBeginCommit sets up expectation for transaction begin and commit
func (m *MockDB) ExpectBeginCommit() {
	m.Mock.ExpectBegin()
	m.Mock.ExpectCommit()
}

// ExpectBeginRollback sets up expectation for transaction begin and rollback
func (m *MockDB) ExpectBeginRollback() {
	m.Mock.ExpectBegin()
	m.Mock.ExpectRollback()
}

// VerifyExpectations checks that all expectations were met
func (m *MockDB) VerifyExpectations() error {
	return m.Mock.ExpectationsWereMet()
}
