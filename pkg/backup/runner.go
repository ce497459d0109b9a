package backup

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/monitor"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

const (
	// queueDepth bounds jobs waiting for a worker.
	queueDepth = 16

	// jobTimeout bounds a single dump or restore run.
	jobTimeout = 30 * time.Minute
)

// ErrQueueFull is returned when the job queue cannot take more work.
var ErrQueueFull = errors.New("backup queue is full")

type job struct {
	restore  bool
	id       uint
	clientIP string
}

// Runner drains the backup job queue with a fixed pool of workers
// sized by backup_concurrency.
type Runner struct {
	backups     store.BackupsStore
	databases   store.DatabasesStore
	credentials store.CredentialsStore
	exec        Executor
	hub         *monitor.Hub
	cfg         *config.OpsdeckConfig

	jobs chan job
}

// NewRunner creates a Runner. It does no work until Run is called.
func NewRunner(
	backups store.BackupsStore,
	databases store.DatabasesStore,
	credentials store.CredentialsStore,
	exec Executor,
	hub *monitor.Hub,
	cfg *config.OpsdeckConfig,
) *Runner {
	return &Runner{
		backups:     backups,
		databases:   databases,
		credentials: credentials,
		exec:        exec,
		hub:         hub,
		cfg:         cfg,
		jobs:        make(chan job, queueDepth),
	}
}

// QueueCap returns how many jobs may wait for a worker.
func (r *Runner) QueueCap() int {
	return queueDepth
}

// Enqueue queues a backup job, returning ErrQueueFull when saturated.
func (r *Runner) Enqueue(backupID uint, clientIP string) error {
	select {
	case r.jobs <- job{id: backupID, clientIP: clientIP}:
		return nil
	default:
		return ErrQueueFull
	}
}

// EnqueueRestore queues a restore job, returning ErrQueueFull when
// saturated.
func (r *Runner) EnqueueRestore(restoreID uint, clientIP string) error {
	select {
	case r.jobs <- job{restore: true, id: restoreID, clientIP: clientIP}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes jobs until the context is cancelled. Jobs a previous
// process left in flight are failed first: the queue lives in memory,
// so nothing would ever finish them, and their rows would count
// against the admission cap forever.
func (r *Runner) Run(ctx context.Context) {
	_, _ = r.backups.FailInterrupted()

	workers := r.cfg.BackupConcurrency
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-r.jobs:
					if j.restore {
						r.runRestore(ctx, j)
					} else {
						r.runBackup(ctx, j)
					}
				}
			}
		}()
	}
	wg.Wait()
}

func (r *Runner) runBackup(ctx context.Context, j job) {
	b, err := r.backups.GetBackup(j.id)
	if err != nil {
		// Record deleted before a worker got to it.
		return
	}
	db, err := r.databases.GetDatabase(b.DatabaseID)
	if err != nil {
		r.finishBackup(b, nil, j.clientIP, 0, err)
		return
	}

	started := time.Now().UTC()
	b.State = model.BackupStateRunning
	b.StartedAt = &started
	_ = r.backups.UpdateBackup(b)
	r.publishBackup(b, db)

	size, err := r.dump(ctx, db, b)
	r.finishBackup(b, db, j.clientIP, size, err)
}

// dump streams pg_dump output through gzip into the artifact file and
// returns its size. A failed run leaves no partial artifact behind.
func (r *Runner) dump(ctx context.Context, db *model.Database, b *model.Backup) (int64, error) {
	password, err := r.passwordFor(db)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(r.cfg.BackupDir, 0o750); err != nil {
		return 0, err
	}
	path := filepath.Join(r.cfg.BackupDir, b.UID+".sql.gz")

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	gz := gzip.NewWriter(f)

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	runErr := r.exec.Run(ctx, db, dumpCommand(db, password), nil, gz)
	if cerr := gz.Close(); runErr == nil {
		runErr = cerr
	}
	if cerr := f.Close(); runErr == nil {
		runErr = cerr
	}
	if runErr != nil {
		_ = os.Remove(path)
		return 0, runErr
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	b.FilePath = path
	return info.Size(), nil
}

func (r *Runner) finishBackup(b *model.Backup, db *model.Database, clientIP string, size int64, err error) {
	finished := time.Now().UTC()
	b.FinishedAt = &finished
	if err != nil {
		b.State = model.BackupStateFailed
		b.Error = err.Error()
	} else {
		b.State = model.BackupStateCompleted
		b.SizeBytes = size
	}
	_ = r.backups.UpdateBackup(b)
	r.publishBackup(b, db)
	monitor.BackupRuns.WithLabelValues("backup", result(err)).Inc()

	event := audit.BackupEvent{
		Username:   b.CreatedBy,
		ClientIP:   clientIP,
		DatabaseID: strconv.FormatUint(uint64(b.DatabaseID), 10),
		BackupID:   strconv.FormatUint(uint64(b.ID), 10),
		Success:    err == nil,
	}
	if db != nil {
		event.DatabaseName = db.Name
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
}

func (r *Runner) runRestore(ctx context.Context, j job) {
	rst, err := r.backups.GetRestore(j.id)
	if err != nil {
		return
	}
	b, err := r.backups.GetBackup(rst.BackupID)
	if err != nil {
		r.finishRestore(rst, nil, nil, j.clientIP, err)
		return
	}
	db, err := r.databases.GetDatabase(b.DatabaseID)
	if err != nil {
		r.finishRestore(rst, b, nil, j.clientIP, err)
		return
	}

	started := time.Now().UTC()
	rst.State = model.BackupStateRunning
	rst.StartedAt = &started
	_ = r.backups.UpdateRestore(rst)
	r.publishRestore(rst, db)

	err = r.replay(ctx, db, b)
	r.finishRestore(rst, b, db, j.clientIP, err)
}

// replay feeds the decompressed artifact to psql on the target.
func (r *Runner) replay(ctx context.Context, db *model.Database, b *model.Backup) error {
	password, err := r.passwordFor(db)
	if err != nil {
		return err
	}

	f, err := os.Open(b.FilePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	return r.exec.Run(ctx, db, restoreCommand(db, password), gz, io.Discard)
}

func (r *Runner) finishRestore(rst *model.Restore, b *model.Backup, db *model.Database, clientIP string, err error) {
	finished := time.Now().UTC()
	rst.FinishedAt = &finished
	if err != nil {
		rst.State = model.BackupStateFailed
		rst.Error = err.Error()
	} else {
		rst.State = model.BackupStateCompleted
	}
	_ = r.backups.UpdateRestore(rst)
	r.publishRestore(rst, db)
	monitor.BackupRuns.WithLabelValues("restore", result(err)).Inc()

	event := audit.BackupEvent{
		Username: rst.CreatedBy,
		ClientIP: clientIP,
		BackupID: strconv.FormatUint(uint64(rst.BackupID), 10),
		Restore:  true,
		Success:  err == nil,
	}
	if b != nil {
		event.DatabaseID = strconv.FormatUint(uint64(b.DatabaseID), 10)
	}
	if db != nil {
		event.DatabaseName = db.Name
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
}

func (r *Runner) passwordFor(db *model.Database) (string, error) {
	if db.CredentialID == nil {
		return "", nil
	}
	cred, err := r.credentials.GetCredential(*db.CredentialID)
	if err != nil {
		return "", err
	}
	return string(cred.Secret), nil
}

func (r *Runner) publishBackup(b *model.Backup, db *model.Database) {
	payload := map[string]interface{}{
		"kind":      "backup",
		"backup_id": b.ID,
		"state":     b.State.String(),
	}
	if db != nil {
		payload["database_id"] = db.ID
		payload["database_name"] = db.Name
	}
	if b.Error != "" {
		payload["error"] = b.Error
	}
	r.hub.Broadcast(monitor.Event{Type: monitor.EventBackupState, Payload: payload})
}

func (r *Runner) publishRestore(rst *model.Restore, db *model.Database) {
	payload := map[string]interface{}{
		"kind":       "restore",
		"restore_id": rst.ID,
		"backup_id":  rst.BackupID,
		"state":      rst.State.String(),
	}
	if db != nil {
		payload["database_id"] = db.ID
		payload["database_name"] = db.Name
	}
	if rst.Error != "" {
		payload["error"] = rst.Error
	}
	r.hub.Broadcast(monitor.Event{Type: monitor.EventBackupState, Payload: payload})
}

func result(err error) string {
	if err == nil {
		return "success"
	}
	return "failure"
}
