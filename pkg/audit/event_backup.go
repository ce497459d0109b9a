package audit

import "fmt"

// BackupEvent records a database backup or restore run, emitted when
// the job finishes rather than when it is queued.
type BackupEvent struct {
	Username     string
	ClientIP     string
	DatabaseID   string
	DatabaseName string
	BackupID     string
	Restore      bool
	Success      bool
	ErrorMessage string
}

func (e BackupEvent) MessageID() string {
	if e.Restore {
		return "restore"
	}
	return "backup"
}

func (e BackupEvent) Message() string {
	subject := fmt.Sprintf("database %s", e.DatabaseID)
	if e.DatabaseName != "" {
		subject = fmt.Sprintf("database %s (%s)", e.DatabaseName, e.DatabaseID)
	}
	verb := "backed up"
	if e.Restore {
		verb = "restored"
	}
	if e.Success {
		return fmt.Sprintf("%s %s %s", e.Username, verb, subject)
	}
	msg := fmt.Sprintf("%s of %s requested by %s failed", e.MessageID(), subject, e.Username)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e BackupEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e BackupEvent) Facility() int {
	return FacilityDaemon
}

func (e BackupEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.Username,
		},
		SDIDSubject: {
			"kind": "database",
			"id":   e.DatabaseID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.MessageID(),
			"result":    result,
		},
		SDIDJob: {
			"backup": e.BackupID,
		},
	}
	if e.DatabaseName != "" {
		sd[SDIDSubject]["name"] = e.DatabaseName
	}
	return sd
}
