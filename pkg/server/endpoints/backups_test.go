package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/pkg/backup"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/identity"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/monitor"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// testBackupRunner builds a runner whose workers never start, so enqueued
// jobs just sit in the channel.
func testBackupRunner(backupsStore store.BackupsStore, databasesStore store.DatabasesStore) *backup.Runner {
	cfg := &config.OpsdeckConfig{BackupConcurrency: 2}
	return backup.NewRunner(backupsStore, databasesStore, NewMockCredentialsStore(), nil, monitor.NewHub(), cfg)
}

func TestHandleCreateBackup(t *testing.T) {
	t.Run("queues a manual backup", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		databasesStore := NewMockDatabasesStore()
		databasesStore.On("GetDatabase", uint(3)).Return(&model.Database{
			ID: 3, Name: "orders", Engine: model.EnginePostgres,
		}, nil)
		backupsStore.On("CountRunningBackups").Return(int64(0), nil)

		var created *model.Backup
		backupsStore.On("CreateBackup", mock.AnythingOfType("*model.Backup")).
			Run(func(args mock.Arguments) {
				created = args.Get(0).(*model.Backup)
				created.ID = 21
			}).
			Return(nil)

		runner := testBackupRunner(backupsStore, databasesStore)
		handler := handleCreateBackup(runner, backupsStore, databasesStore)

		req := requestWithIdentity("POST", "/api/databases/3/backups", "",
			testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "3"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(3), body["database_id"])
		assert.Equal(t, "pending", body["state"])
		assert.Equal(t, model.BackupManual, body["kind"])
		assert.Equal(t, "opal", body["created_by"])

		require.NotNil(t, created)
		assert.NotEmpty(t, created.UID)
	})

	t.Run("only postgres databases are backed up", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		databasesStore := NewMockDatabasesStore()
		databasesStore.On("GetDatabase", uint(3)).Return(&model.Database{
			ID: 3, Name: "cache", Engine: model.EngineRedis,
		}, nil)

		runner := testBackupRunner(backupsStore, databasesStore)
		handler := handleCreateBackup(runner, backupsStore, databasesStore)

		req := requestWithIdentity("POST", "/api/databases/3/backups", "",
			testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "3"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "only supported for postgres")
		backupsStore.AssertNotCalled(t, "CreateBackup", mock.Anything)
	})

	t.Run("unknown database is not found", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		databasesStore := NewMockDatabasesStore()
		databasesStore.On("GetDatabase", uint(999)).Return(nil, store.ErrDatabaseNotFound)

		runner := testBackupRunner(backupsStore, databasesStore)
		handler := handleCreateBackup(runner, backupsStore, databasesStore)

		req := requestWithIdentity("POST", "/api/databases/999/backups", "",
			testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "999"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Database not found")
	})

	t.Run("in-flight jobs above the queue cap are refused", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		databasesStore := NewMockDatabasesStore()
		databasesStore.On("GetDatabase", uint(3)).Return(&model.Database{
			ID: 3, Name: "orders", Engine: model.EnginePostgres,
		}, nil)

		runner := testBackupRunner(backupsStore, databasesStore)
		backupsStore.On("CountRunningBackups").Return(int64(runner.QueueCap()), nil)

		handler := handleCreateBackup(runner, backupsStore, databasesStore)

		req := requestWithIdentity("POST", "/api/databases/3/backups", "",
			testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "3"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "Too many backup jobs in flight")
		backupsStore.AssertNotCalled(t, "CreateBackup", mock.Anything)
	})

	t.Run("a saturated queue rolls the pending row back", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		databasesStore := NewMockDatabasesStore()
		databasesStore.On("GetDatabase", uint(3)).Return(&model.Database{
			ID: 3, Name: "orders", Engine: model.EnginePostgres,
		}, nil)
		backupsStore.On("CountRunningBackups").Return(int64(0), nil)
		backupsStore.On("CreateBackup", mock.AnythingOfType("*model.Backup")).
			Run(func(args mock.Arguments) {
				args.Get(0).(*model.Backup).ID = 21
			}).
			Return(nil)
		backupsStore.On("DeleteBackup", uint(21)).Return(nil)

		runner := testBackupRunner(backupsStore, databasesStore)
		for i := 0; i < runner.QueueCap(); i++ {
			require.NoError(t, runner.Enqueue(uint(100+i), "10.0.0.1"))
		}

		handler := handleCreateBackup(runner, backupsStore, databasesStore)

		req := requestWithIdentity("POST", "/api/databases/3/backups", "",
			testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "3"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		backupsStore.AssertCalled(t, "DeleteBackup", uint(21))
	})
}

func TestHandleGetBackup(t *testing.T) {
	t.Run("returns the backup", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		backupsStore.On("GetBackup", uint(21)).Return(&model.Backup{
			ID: 21, UID: "5e0d8a3c-dump", DatabaseID: 3, State: model.BackupStateCompleted,
		}, nil)

		handler := handleGetBackup(backupsStore)

		req := requestWithIdentity("GET", "/api/backups/21", "", testIdentity(5, "vera", identity.RoleViewer))
		req = withMuxVars(req, map[string]string{"id": "21"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "completed", body["state"])
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		backupsStore.On("GetBackup", uint(999)).Return(nil, store.ErrBackupNotFound)

		handler := handleGetBackup(backupsStore)

		req := requestWithIdentity("GET", "/api/backups/999", "", testIdentity(5, "vera", identity.RoleViewer))
		req = withMuxVars(req, map[string]string{"id": "999"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Backup not found")
	})
}

func TestHandleDeleteBackup(t *testing.T) {
	t.Run("a running backup cannot be deleted", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		backupsStore.On("GetBackup", uint(21)).Return(&model.Backup{
			ID: 21, State: model.BackupStateRunning,
		}, nil)

		handler := handleDeleteBackup(backupsStore)

		req := requestWithIdentity("DELETE", "/api/backups/21", "", testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "21"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "Backup is still running")
		backupsStore.AssertNotCalled(t, "DeleteBackup", mock.Anything)
	})

	t.Run("deletes a finished backup", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		backupsStore.On("GetBackup", uint(21)).Return(&model.Backup{
			ID: 21, UID: "5e0d8a3c-dump", State: model.BackupStateCompleted,
		}, nil)
		backupsStore.On("DeleteBackup", uint(21)).Return(nil)

		handler := handleDeleteBackup(backupsStore)

		req := requestWithIdentity("DELETE", "/api/backups/21", "", testIdentity(3, "opal", identity.RoleOperator))
		req = withMuxVars(req, map[string]string{"id": "21"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "deleted", body["status"])
	})
}

func TestHandleCreateRestore(t *testing.T) {
	t.Run("only completed backups can be restored", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		backupsStore.On("GetBackup", uint(21)).Return(&model.Backup{
			ID: 21, State: model.BackupStatePending,
		}, nil)

		runner := testBackupRunner(backupsStore, NewMockDatabasesStore())
		handler := handleCreateRestore(runner, backupsStore)

		req := requestWithIdentity("POST", "/api/backups/21/restore", "",
			testIdentity(1, "root", identity.RoleAdmin))
		req = withMuxVars(req, map[string]string{"id": "21"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "Backup has not completed")
		backupsStore.AssertNotCalled(t, "CreateRestore", mock.Anything)
	})

	t.Run("queues a restore for a completed backup", func(t *testing.T) {
		backupsStore := NewMockBackupsStore()
		backupsStore.On("GetBackup", uint(21)).Return(&model.Backup{
			ID: 21, State: model.BackupStateCompleted, FilePath: "/var/backups/orders.dump",
		}, nil)
		backupsStore.On("CreateRestore", mock.AnythingOfType("*model.Restore")).
			Run(func(args mock.Arguments) {
				args.Get(0).(*model.Restore).ID = 31
			}).
			Return(nil)

		runner := testBackupRunner(backupsStore, NewMockDatabasesStore())
		handler := handleCreateRestore(runner, backupsStore)

		req := requestWithIdentity("POST", "/api/backups/21/restore", "",
			testIdentity(1, "root", identity.RoleAdmin))
		req = withMuxVars(req, map[string]string{"id": "21"})
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(21), body["backup_id"])
		assert.Equal(t, "pending", body["state"])
		assert.Equal(t, "root", body["created_by"])
	})
}

func TestHandleListRestores(t *testing.T) {
	backupsStore := NewMockBackupsStore()
	backupsStore.On("ListRestores", uint(21), 500, 0).Return([]model.Restore{
		{ID: 31, BackupID: 21, State: model.BackupStateCompleted},
		{ID: 32, BackupID: 21, State: model.BackupStateFailed},
	}, nil)

	handler := handleListRestores(backupsStore, testListConfig())

	req := requestWithIdentity("GET", "/api/backups/21/restores", "", testIdentity(5, "vera", identity.RoleViewer))
	req = withMuxVars(req, map[string]string{"id": "21"})
	w := httptest.NewRecorder()

	handler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "failed")
}
