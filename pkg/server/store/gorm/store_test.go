package gorm

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// Suite drives the GORM stores against sqlmock, pinning the SQL each store
// method generates.
type Suite struct {
	suite.Suite
	DB   *gorm.DB
	mock sqlmock.Sqlmock

	users      *UsersStore
	servers    *ServersStore
	settings   *SettingsStore
	operations *OperationsStore
	metrics    *MetricsStore
	backups    *BackupsStore
	health     *HealthStore
}

func (s *Suite) SetupSuite() {
	var (
		db  *sql.DB
		err error
	)

	db, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	s.DB, err = gorm.Open(
		postgres.New(postgres.Config{Conn: db}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(s.T(), err)

	s.users = NewUsersStore(s.DB)
	s.servers = NewServersStore(s.DB)
	s.settings = NewSettingsStore(s.DB)
	s.operations = NewOperationsStore(s.DB)
	s.metrics = NewMetricsStore(s.DB)
	s.backups = NewBackupsStore(s.DB)
	s.health = NewHealthStore(s.DB)
}

func (s *Suite) AfterTest(_, _ string) {
	require.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func TestStores(t *testing.T) {
	suite.Run(t, new(Suite))
}

func (s *Suite) TestGetUserByUsername() {
	s.mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "users" WHERE username = $1 ORDER BY "users"."id" LIMIT 1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "role", "active"}).
			AddRow(7, "alice", "admin", true))

	user, err := s.users.GetUserByUsername("alice")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint(7), user.ID)
	assert.Equal(s.T(), "admin", user.Role)
}

func (s *Suite) TestGetUserByUsernameMissing() {
	s.mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "users" WHERE username = $1 ORDER BY "users"."id" LIMIT 1`)).
		WithArgs("mallory").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	_, err := s.users.GetUserByUsername("mallory")
	assert.ErrorIs(s.T(), err, store.ErrUserNotFound)
}

func (s *Suite) TestCreateUserDuplicate() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pq.Error{Code: pgUniqueViolation})
	s.mock.ExpectRollback()

	err := s.users.CreateUser(&model.User{Username: "alice", Role: "admin", Active: true})
	assert.ErrorIs(s.T(), err, store.ErrUsernameTaken)
}

func (s *Suite) TestTouchLastLogin() {
	at := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE "users" SET "last_login_at"=$1,"updated_at"=$2 WHERE id = $3`)).
		WithArgs(at, sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	assert.NoError(s.T(), s.users.TouchLastLogin(7, at))
}

func (s *Suite) TestDeleteUserMissing() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(
		`DELETE FROM "users" WHERE "users"."id" = $1`)).
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	assert.ErrorIs(s.T(), s.users.DeleteUser(99), store.ErrUserNotFound)
}

func (s *Suite) TestMarkServersOffline() {
	cutoff := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	s.mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "servers" WHERE status = $1 AND (last_seen_at IS NULL OR last_seen_at < $2)`)).
		WithArgs(model.StatusOnline, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}).
			AddRow(1, "web-01", model.StatusOnline).
			AddRow(2, "web-02", model.StatusOnline))

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE "servers" SET "status"=$1,"updated_at"=$2 WHERE id IN ($3,$4)`)).
		WithArgs(model.StatusOffline, sqlmock.AnyArg(), 1, 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	s.mock.ExpectCommit()

	stale, err := s.servers.MarkServersOffline(cutoff)
	require.NoError(s.T(), err)
	require.Len(s.T(), stale, 2)
	assert.Equal(s.T(), model.StatusOffline, stale[0].Status)
	assert.Equal(s.T(), model.StatusOffline, stale[1].Status)
}

func (s *Suite) TestMarkServersOfflineNothingStale() {
	cutoff := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	s.mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "servers" WHERE status = $1 AND (last_seen_at IS NULL OR last_seen_at < $2)`)).
		WithArgs(model.StatusOnline, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}))

	stale, err := s.servers.MarkServersOffline(cutoff)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), stale)
}

func (s *Suite) TestResetAgentKey() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE "servers" SET "agent_key"=$1,"updated_at"=$2 WHERE id = $3`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	key, err := s.servers.ResetAgentKey(4)
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), key)
}

func (s *Suite) TestResetAgentKeyMissing() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE "servers" SET "agent_key"=$1,"updated_at"=$2 WHERE id = $3`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	_, err := s.servers.ResetAgentKey(99)
	assert.ErrorIs(s.T(), err, store.ErrServerNotFound)
}

func (s *Suite) TestGetSetting() {
	s.mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "settings" WHERE name = $1 ORDER BY "settings"."name" LIMIT 1`)).
		WithArgs("site_check_interval").
		WillReturnRows(sqlmock.NewRows([]string{"name", "value"}).
			AddRow("site_check_interval", "60"))

	setting, err := s.settings.GetSetting("site_check_interval")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "60", setting.Value)
}

func (s *Suite) TestGetSettingMissing() {
	s.mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "settings" WHERE name = $1 ORDER BY "settings"."name" LIMIT 1`)).
		WithArgs("no_such_setting").
		WillReturnRows(sqlmock.NewRows([]string{"name", "value"}))

	_, err := s.settings.GetSetting("no_such_setting")
	assert.ErrorIs(s.T(), err, store.ErrSettingNotFound)
}

func (s *Suite) TestPutSettingUpsert() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO "settings" ("name","value","updated_at") VALUES ($1,$2,$3) ON CONFLICT ("name") DO UPDATE SET "value"="excluded"."value","updated_at"="excluded"."updated_at"`)).
		WithArgs("heartbeat_offline_seconds", "180", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	s.mock.ExpectCommit()

	setting, err := s.settings.PutSetting("heartbeat_offline_seconds", "180")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "180", setting.Value)
}

func (s *Suite) TestListOperationsFiltered() {
	s.mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "operation_logs" WHERE username = $1 AND resource_kind = $2 ORDER BY time DESC LIMIT 5`)).
		WithArgs("root", "server").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "action", "resource_kind", "success"}).
			AddRow(12, "root", model.ActionDelete, "server", true).
			AddRow(11, "root", model.ActionCreate, "server", true))

	logs, err := s.operations.ListOperations(store.OperationsQuery{
		Username: "root", Kind: "server", Limit: 5,
	})
	require.NoError(s.T(), err)
	require.Len(s.T(), logs, 2)
	assert.Equal(s.T(), uint(12), logs[0].ID)
	assert.Equal(s.T(), model.ActionDelete, logs[0].Action)
}

func (s *Suite) TestCountOperations() {
	s.mock.ExpectQuery(`SELECT count\(.*\) FROM "operation_logs" WHERE username = \$1`).
		WithArgs("root").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := s.operations.CountOperations(store.OperationsQuery{Username: "root"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(7), count)
}

func (s *Suite) TestInsertServerMetric() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO "server_metrics"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.metrics.InsertServerMetric(&model.ServerMetric{
		ServerID: 4, Time: time.Now().UTC(), CPUUsage: 41.5,
	})
	assert.NoError(s.T(), err)
}

func (s *Suite) TestServerMetricsWindow() {
	from := time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	s.mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "server_metrics" WHERE server_id = $1 AND time >= $2 AND time < $3 ORDER BY time DESC LIMIT 500`)).
		WithArgs(4, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"server_id", "time", "cpu_usage"}).
			AddRow(4, from.Add(time.Hour), 41.5))

	samples, err := s.metrics.ServerMetrics(4, from, to, 500)
	require.NoError(s.T(), err)
	require.Len(s.T(), samples, 1)
	assert.Equal(s.T(), 41.5, samples[0].CPUUsage)
}

func (s *Suite) TestLatestServerMetricEmpty() {
	s.mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "server_metrics" WHERE server_id = $1 ORDER BY time DESC LIMIT 1`)).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"server_id", "time"}))

	sample, err := s.metrics.LatestServerMetric(4)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), sample)
}

func (s *Suite) TestSiteSuccessRate() {
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FILTER`).
		WithArgs(6, 100).
		WillReturnRows(sqlmock.NewRows([]string{"ups", "total"}).AddRow(97, 100))

	rate, total, err := s.metrics.SiteSuccessRate(6, 100)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 97.0, rate)
	assert.Equal(s.T(), 100, total)
}

func (s *Suite) TestSiteSuccessRateNoSamples() {
	// A site that has never been checked reports healthy, not down
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FILTER`).
		WithArgs(6, 100).
		WillReturnRows(sqlmock.NewRows([]string{"ups", "total"}).AddRow(0, 0))

	rate, total, err := s.metrics.SiteSuccessRate(6, 100)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 100.0, rate)
	assert.Equal(s.T(), 0, total)
}

func (s *Suite) TestFailInterrupted() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE "backups" SET "error"=$1,"finished_at"=$2,"state"=$3 WHERE state IN ($4,$5)`)).
		WithArgs("interrupted by server restart", sqlmock.AnyArg(), model.BackupStateFailed,
			model.BackupStatePending, model.BackupStateRunning).
		WillReturnResult(sqlmock.NewResult(0, 2))
	s.mock.ExpectCommit()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE "restores" SET "error"=$1,"finished_at"=$2,"state"=$3 WHERE state IN ($4,$5)`)).
		WithArgs("interrupted by server restart", sqlmock.AnyArg(), model.BackupStateFailed,
			model.BackupStatePending, model.BackupStateRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	flipped, err := s.backups.FailInterrupted()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), flipped)
}

func (s *Suite) TestCheckConnectivity() {
	s.mock.ExpectExec(regexp.QuoteMeta(`SELECT 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(s.T(), s.health.CheckConnectivity())
}
