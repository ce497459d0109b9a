package endpoints

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// MockUsersStore implements store.UsersStore for testing using testify/mock
type MockUsersStore struct {
	mock.Mock
}

func NewMockUsersStore() *MockUsersStore {
	return &MockUsersStore{}
}

func (m *MockUsersStore) ListUsers(search string, limit, offset int) ([]model.User, error) {
	args := m.Called(search, limit, offset)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUsersStore) CountUsers(search string) (int64, error) {
	args := m.Called(search)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsersStore) GetUser(id uint) (*model.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUsersStore) GetUserByUsername(username string) (*model.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUsersStore) CreateUser(user *model.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUsersStore) UpdateUser(user *model.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUsersStore) DeleteUser(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockUsersStore) TouchLastLogin(id uint, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

// MockServersStore implements store.ServersStore for testing using testify/mock
type MockServersStore struct {
	mock.Mock
}

func NewMockServersStore() *MockServersStore {
	return &MockServersStore{}
}

func (m *MockServersStore) ListServers(search string, limit, offset int) ([]model.Server, error) {
	args := m.Called(search, limit, offset)
	return args.Get(0).([]model.Server), args.Error(1)
}

func (m *MockServersStore) CountServers(search string) (int64, error) {
	args := m.Called(search)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockServersStore) GetServer(id uint) (*model.Server, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Server), args.Error(1)
}

func (m *MockServersStore) GetServerByAgentKey(key string) (*model.Server, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Server), args.Error(1)
}

func (m *MockServersStore) CreateServer(server *model.Server) error {
	args := m.Called(server)
	return args.Error(0)
}

func (m *MockServersStore) UpdateServer(server *model.Server) error {
	args := m.Called(server)
	return args.Error(0)
}

func (m *MockServersStore) DeleteServer(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockServersStore) SetServerStatus(id uint, status string, seenAt *time.Time) error {
	args := m.Called(id, status, seenAt)
	return args.Error(0)
}

func (m *MockServersStore) MarkServersOffline(cutoff time.Time) ([]model.Server, error) {
	args := m.Called(cutoff)
	return args.Get(0).([]model.Server), args.Error(1)
}

func (m *MockServersStore) ResetAgentKey(id uint) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

// MockCredentialsStore implements store.CredentialsStore for testing using testify/mock
type MockCredentialsStore struct {
	mock.Mock
}

func NewMockCredentialsStore() *MockCredentialsStore {
	return &MockCredentialsStore{}
}

func (m *MockCredentialsStore) ListCredentials(search string, limit, offset int) ([]model.Credential, error) {
	args := m.Called(search, limit, offset)
	return args.Get(0).([]model.Credential), args.Error(1)
}

func (m *MockCredentialsStore) CountCredentials(search string) (int64, error) {
	args := m.Called(search)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCredentialsStore) GetCredential(id uint) (*model.Credential, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialsStore) CreateCredential(cred *model.Credential) error {
	args := m.Called(cred)
	return args.Error(0)
}

func (m *MockCredentialsStore) UpdateCredential(cred *model.Credential) error {
	args := m.Called(cred)
	return args.Error(0)
}

func (m *MockCredentialsStore) DeleteCredential(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockMetricsStore implements store.MetricsStore for testing using testify/mock
type MockMetricsStore struct {
	mock.Mock
}

func NewMockMetricsStore() *MockMetricsStore {
	return &MockMetricsStore{}
}

func (m *MockMetricsStore) InsertServerMetric(sample *model.ServerMetric) error {
	args := m.Called(sample)
	return args.Error(0)
}

func (m *MockMetricsStore) ServerMetrics(serverID uint, from, to time.Time, limit int) ([]model.ServerMetric, error) {
	args := m.Called(serverID, from, to, limit)
	return args.Get(0).([]model.ServerMetric), args.Error(1)
}

func (m *MockMetricsStore) LatestServerMetric(serverID uint) (*model.ServerMetric, error) {
	args := m.Called(serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServerMetric), args.Error(1)
}

func (m *MockMetricsStore) InsertDeviceMetric(sample *model.DeviceMetric) error {
	args := m.Called(sample)
	return args.Error(0)
}

func (m *MockMetricsStore) DeviceMetrics(deviceID uint, from, to time.Time, limit int) ([]model.DeviceMetric, error) {
	args := m.Called(deviceID, from, to, limit)
	return args.Get(0).([]model.DeviceMetric), args.Error(1)
}

func (m *MockMetricsStore) InsertSiteAvailability(sample *model.SiteAvailability) error {
	args := m.Called(sample)
	return args.Error(0)
}

func (m *MockMetricsStore) SiteAvailability(siteID uint, from, to time.Time, limit int) ([]model.SiteAvailability, error) {
	args := m.Called(siteID, from, to, limit)
	return args.Get(0).([]model.SiteAvailability), args.Error(1)
}

func (m *MockMetricsStore) SiteSuccessRate(siteID uint, window int) (float64, int, error) {
	args := m.Called(siteID, window)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func (m *MockMetricsStore) InsertDatabaseMetric(sample *model.DatabaseMetric) error {
	args := m.Called(sample)
	return args.Error(0)
}

func (m *MockMetricsStore) DatabaseMetrics(databaseID uint, from, to time.Time, limit int) ([]model.DatabaseMetric, error) {
	args := m.Called(databaseID, from, to, limit)
	return args.Get(0).([]model.DatabaseMetric), args.Error(1)
}

// MockHealthStore implements store.HealthStore for testing using testify/mock
type MockHealthStore struct {
	mock.Mock
}

func NewMockHealthStore() *MockHealthStore {
	return &MockHealthStore{}
}

func (m *MockHealthStore) CheckConnectivity() error {
	args := m.Called()
	return args.Error(0)
}

// MockDashboardStore implements store.DashboardStore for testing using testify/mock
type MockDashboardStore struct {
	mock.Mock
}

func NewMockDashboardStore() *MockDashboardStore {
	return &MockDashboardStore{}
}

func (m *MockDashboardStore) Counts() (*store.DashboardCounts, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.DashboardCounts), args.Error(1)
}

func (m *MockDashboardStore) RecentOperations(limit int) ([]model.OperationLog, error) {
	args := m.Called(limit)
	return args.Get(0).([]model.OperationLog), args.Error(1)
}

// MockDatabasesStore implements store.DatabasesStore for testing using testify/mock
type MockDatabasesStore struct {
	mock.Mock
}

func NewMockDatabasesStore() *MockDatabasesStore {
	return &MockDatabasesStore{}
}

func (m *MockDatabasesStore) ListDatabases(search string, limit, offset int) ([]model.Database, error) {
	args := m.Called(search, limit, offset)
	return args.Get(0).([]model.Database), args.Error(1)
}

func (m *MockDatabasesStore) CountDatabases(search string) (int64, error) {
	args := m.Called(search)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDatabasesStore) GetDatabase(id uint) (*model.Database, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Database), args.Error(1)
}

func (m *MockDatabasesStore) CreateDatabase(database *model.Database) error {
	args := m.Called(database)
	return args.Error(0)
}

func (m *MockDatabasesStore) UpdateDatabase(database *model.Database) error {
	args := m.Called(database)
	return args.Error(0)
}

func (m *MockDatabasesStore) DeleteDatabase(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockDatabasesStore) SetDatabaseStatus(id uint, status string, seenAt *time.Time) error {
	args := m.Called(id, status, seenAt)
	return args.Error(0)
}

func (m *MockDatabasesStore) AllDatabases() ([]model.Database, error) {
	args := m.Called()
	return args.Get(0).([]model.Database), args.Error(1)
}

// MockBackupsStore implements store.BackupsStore for testing using testify/mock
type MockBackupsStore struct {
	mock.Mock
}

func NewMockBackupsStore() *MockBackupsStore {
	return &MockBackupsStore{}
}

func (m *MockBackupsStore) ListBackups(databaseID uint, limit, offset int) ([]model.Backup, error) {
	args := m.Called(databaseID, limit, offset)
	return args.Get(0).([]model.Backup), args.Error(1)
}

func (m *MockBackupsStore) CountBackups(databaseID uint) (int64, error) {
	args := m.Called(databaseID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBackupsStore) GetBackup(id uint) (*model.Backup, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Backup), args.Error(1)
}

func (m *MockBackupsStore) CreateBackup(b *model.Backup) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockBackupsStore) UpdateBackup(b *model.Backup) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockBackupsStore) DeleteBackup(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockBackupsStore) CountRunningBackups() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBackupsStore) FailInterrupted() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBackupsStore) ListRestores(backupID uint, limit, offset int) ([]model.Restore, error) {
	args := m.Called(backupID, limit, offset)
	return args.Get(0).([]model.Restore), args.Error(1)
}

func (m *MockBackupsStore) GetRestore(id uint) (*model.Restore, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restore), args.Error(1)
}

func (m *MockBackupsStore) CreateRestore(rst *model.Restore) error {
	args := m.Called(rst)
	return args.Error(0)
}

func (m *MockBackupsStore) UpdateRestore(rst *model.Restore) error {
	args := m.Called(rst)
	return args.Error(0)
}
