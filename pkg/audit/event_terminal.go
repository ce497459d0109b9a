package audit

import (
	"fmt"
	"time"
)

// TerminalEvent records the opening or closing of an interactive SSH
// terminal session against a managed server.
type TerminalEvent struct {
	Username     string
	ClientIP     string
	ServerID     string
	ServerName   string
	SessionID    string
	Closed       bool
	Duration     time.Duration
	Success      bool
	ErrorMessage string
}

func (e TerminalEvent) MessageID() string {
	if e.Closed {
		return "terminal_end"
	}
	return "terminal_open"
}

func (e TerminalEvent) Message() string {
	subject := fmt.Sprintf("server %s", e.ServerID)
	if e.ServerName != "" {
		subject = fmt.Sprintf("server %s (%s)", e.ServerName, e.ServerID)
	}
	if e.Closed {
		return fmt.Sprintf("%s closed terminal on %s after %s", e.Username, subject, e.Duration.Round(time.Second))
	}
	if e.Success {
		return fmt.Sprintf("%s opened terminal on %s", e.Username, subject)
	}
	msg := fmt.Sprintf("%s failed to open terminal on %s", e.Username, subject)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e TerminalEvent) Severity() Severity {
	if e.Closed || e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e TerminalEvent) Facility() int {
	return FacilityAuthPriv
}

func (e TerminalEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Closed && !e.Success {
		result = "failure"
	}
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.Username,
		},
		SDIDSubject: {
			"kind": "server",
			"id":   e.ServerID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.MessageID(),
			"result":    result,
		},
	}
	if e.ServerName != "" {
		sd[SDIDSubject]["name"] = e.ServerName
	}
	if e.SessionID != "" {
		sd[SDIDAction]["session"] = e.SessionID
	}
	if e.Closed {
		sd[SDIDAction]["duration"] = e.Duration.Round(time.Second).String()
	}
	return sd
}
