package audit

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := ResourceEvent{
		Username:   "admin",
		ClientIP:   "10.0.0.1",
		Operation:  "create",
		Kind:       "server",
		ResourceID: "17",
		Name:       "web-01",
		Success:    true,
	}

	mock.ExpectExec(`INSERT INTO operation_logs`).
		WithArgs(
			sqlmock.AnyArg(), // time
			"admin",          // username
			"10.0.0.1",       // client_ip
			"create",         // action
			"server",         // resource_kind
			"17",             // resource_id
			true,             // success
			sqlmock.AnyArg(), // message
			sqlmock.AnyArg(), // details (JSON)
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveLoginEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := LoginEvent{
		Username: "admin",
		ClientIP: "192.168.1.1",
		Success:  true,
	}

	mock.ExpectExec(`INSERT INTO operation_logs`).
		WithArgs(
			sqlmock.AnyArg(),
			"admin",
			"192.168.1.1",
			"login",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			true,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveFailedEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := RevealEvent{
		Username:     "viewer",
		ClientIP:     "10.0.0.1",
		CredentialID: "9",
		Success:      false,
		ErrorMessage: "forbidden",
	}

	mock.ExpectExec(`INSERT INTO operation_logs`).
		WithArgs(
			sqlmock.AnyArg(),
			"viewer",
			"10.0.0.1",
			"reveal",
			"credential",
			"9",
			false, // failed events persist success=false
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveBackupEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := BackupEvent{
		Username:     "admin",
		ClientIP:     "10.0.0.1",
		DatabaseID:   "2",
		DatabaseName: "orders",
		BackupID:     "15",
		Success:      true,
	}

	mock.ExpectExec(`INSERT INTO operation_logs`).
		WithArgs(
			sqlmock.AnyArg(),
			"admin",
			"10.0.0.1",
			"backup",
			"database",
			"2",
			true,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveSiteStatusEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := SiteStatusEvent{
		SiteID:    "5",
		SiteName:  "www",
		OldStatus: "up",
		NewStatus: "down",
		Score:     12.5,
	}

	mock.ExpectExec(`INSERT INTO operation_logs`).
		WithArgs(
			sqlmock.AnyArg(),
			"monitor", // checker events carry the monitor pseudo-user
			sqlmock.AnyArg(),
			"site_status",
			"site",
			"5",
			true,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreNilDB(t *testing.T) {
	store := &Store{db: nil}

	event := LoginEvent{
		Username: "admin",
		ClientIP: "10.0.0.1",
		Success:  true,
	}

	// Should not error when db is nil
	err := store.Save(event)
	if err != nil {
		t.Errorf("Save() with nil db should not error, got: %v", err)
	}
}

func TestStoreClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	store := NewStoreWithDB(db)

	mock.ExpectClose()

	err = store.Close()
	if err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreCloseNilDB(t *testing.T) {
	store := &Store{db: nil}

	err := store.Close()
	if err != nil {
		t.Errorf("Close() with nil db should not error, got: %v", err)
	}
}
