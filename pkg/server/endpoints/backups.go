package endpoints

import (
	"errors"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/backup"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// RegisterBackupsEndpoints adds the database backup and restore routes.
func RegisterBackupsEndpoints(s *server.Server) {
	cfg := s.Config
	auth := middleware.NewTokenAuthenticator(s.Issuer, cfg.TrustedProxies)

	api := s.Router.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware)

	api.HandleFunc("/databases/{id:[0-9]+}/backups",
		middleware.RequireOperator(handleCreateBackup(s.Backups, s.BackupsStore, s.DatabasesStore))).Methods("POST")

	api.HandleFunc("/backups", handleListBackups(s.BackupsStore, cfg)).Methods("GET")
	api.HandleFunc("/backups/{id:[0-9]+}", handleGetBackup(s.BackupsStore)).Methods("GET")
	api.HandleFunc("/backups/{id:[0-9]+}",
		middleware.RequireOperator(handleDeleteBackup(s.BackupsStore))).Methods("DELETE")

	api.HandleFunc("/backups/{id:[0-9]+}/restore",
		middleware.RequireAdmin(handleCreateRestore(s.Backups, s.BackupsStore))).Methods("POST")
	api.HandleFunc("/backups/{id:[0-9]+}/restores", handleListRestores(s.BackupsStore, cfg)).Methods("GET")
}

func handleCreateBackup(runner *backup.Runner, backupsStore store.BackupsStore, databasesStore store.DatabasesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid database ID")
			return
		}
		username, clientIP := requestIdentity(r)

		db, err := databasesStore.GetDatabase(id)
		if err != nil {
			if errors.Is(err, store.ErrDatabaseNotFound) {
				respondWithError(w, http.StatusNotFound, "Database not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if db.Engine != model.EnginePostgres {
			respondWithError(w, http.StatusUnprocessableEntity, "Backups are only supported for postgres databases")
			return
		}

		inFlight, err := backupsStore.CountRunningBackups()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if inFlight >= int64(runner.QueueCap()) {
			respondWithError(w, http.StatusTooManyRequests, "Too many backup jobs in flight")
			return
		}

		b := &model.Backup{
			UID:        uuid.New().String(),
			DatabaseID: db.ID,
			Kind:       model.BackupManual,
			State:      model.BackupStatePending,
			CreatedBy:  username,
		}
		if err := backupsStore.CreateBackup(b); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if err := runner.Enqueue(b.ID, clientIP); err != nil {
			_ = backupsStore.DeleteBackup(b.ID)
			respondWithError(w, http.StatusTooManyRequests, "Too many backup jobs in flight")
			return
		}

		// The audit trail entry is written when the job finishes.
		respondWithJSON(w, http.StatusAccepted, b)
	}
}

func handleListBackups(backupsStore store.BackupsStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		databaseID := queryUint(r, "database_id")

		if wantsCount(r) {
			count, err := backupsStore.CountBackups(databaseID)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
			return
		}

		_, limit, offset := listParams(r, cfg)
		backups, err := backupsStore.ListBackups(databaseID, limit, offset)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, backups)
	}
}

func handleGetBackup(backupsStore store.BackupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid backup ID")
			return
		}

		b, err := backupsStore.GetBackup(id)
		if err != nil {
			if errors.Is(err, store.ErrBackupNotFound) {
				respondWithError(w, http.StatusNotFound, "Backup not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, b)
	}
}

func handleDeleteBackup(backupsStore store.BackupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid backup ID")
			return
		}
		username, clientIP := requestIdentity(r)

		b, err := backupsStore.GetBackup(id)
		if err != nil {
			if errors.Is(err, store.ErrBackupNotFound) {
				respondWithError(w, http.StatusNotFound, "Backup not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if b.State == model.BackupStateRunning {
			respondWithError(w, http.StatusConflict, "Backup is still running")
			return
		}

		if err := backupsStore.DeleteBackup(id); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if b.FilePath != "" {
			// Artifact removal is best effort; a missing file is fine.
			_ = os.Remove(b.FilePath)
		}

		audit.Log(audit.ResourceEvent{
			Username:   username,
			ClientIP:   clientIP,
			Operation:  model.ActionDelete,
			Kind:       "backup",
			ResourceID: idString(id),
			Name:       b.UID,
			Success:    true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleCreateRestore(runner *backup.Runner, backupsStore store.BackupsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid backup ID")
			return
		}
		username, clientIP := requestIdentity(r)

		b, err := backupsStore.GetBackup(id)
		if err != nil {
			if errors.Is(err, store.ErrBackupNotFound) {
				respondWithError(w, http.StatusNotFound, "Backup not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if b.State != model.BackupStateCompleted {
			respondWithError(w, http.StatusConflict, "Backup has not completed")
			return
		}

		rst := &model.Restore{
			BackupID:  b.ID,
			State:     model.BackupStatePending,
			CreatedBy: username,
		}
		if err := backupsStore.CreateRestore(rst); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if err := runner.EnqueueRestore(rst.ID, clientIP); err != nil {
			respondWithError(w, http.StatusTooManyRequests, "Too many backup jobs in flight")
			return
		}

		respondWithJSON(w, http.StatusAccepted, rst)
	}
}

func handleListRestores(backupsStore store.BackupsStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid backup ID")
			return
		}

		_, limit, offset := listParams(r, cfg)
		restores, err := backupsStore.ListRestores(id, limit, offset)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, restores)
	}
}
