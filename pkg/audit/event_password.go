package audit

import "fmt"

// PasswordEvent records a password change or reset.
type PasswordEvent struct {
	Username       string // acting user
	TargetUsername string // account whose password changed
	ClientIP       string
	Success        bool
	ErrorMessage   string
}

func (e PasswordEvent) MessageID() string {
	return "password"
}

func (e PasswordEvent) Message() string {
	if e.Username == e.TargetUsername {
		if e.Success {
			return fmt.Sprintf("%s changed their own password", e.Username)
		}
		msg := fmt.Sprintf("%s failed to change their own password", e.Username)
		if e.ErrorMessage != "" {
			msg += ": " + e.ErrorMessage
		}
		return msg
	}
	if e.Success {
		return fmt.Sprintf("%s reset the password for %s", e.Username, e.TargetUsername)
	}
	msg := fmt.Sprintf("%s failed to reset the password for %s", e.Username, e.TargetUsername)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e PasswordEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e PasswordEvent) Facility() int {
	return FacilityAuthPriv
}

func (e PasswordEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.Username,
		},
		SDIDSubject: {
			"kind": "user",
			"id":   e.TargetUsername,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "password",
			"result":    result,
		},
	}
}
