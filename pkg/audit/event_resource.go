package audit

import "fmt"

// ResourceEvent records a create, update or delete of an inventory
// resource (server, device, database, site, application, credential,
// user, setting).
type ResourceEvent struct {
	Username     string
	ClientIP     string
	Operation    string // "create", "update", "delete"
	Kind         string // resource kind, e.g. "server"
	ResourceID   string
	Name         string
	Success      bool
	ErrorMessage string
}

func (e ResourceEvent) MessageID() string {
	return e.Operation
}

func (e ResourceEvent) Message() string {
	subject := fmt.Sprintf("%s %s", e.Kind, e.ResourceID)
	if e.Name != "" {
		subject = fmt.Sprintf("%s %s (%s)", e.Kind, e.Name, e.ResourceID)
	}
	if e.Success {
		return fmt.Sprintf("%s %sd %s", e.Username, e.Operation, subject)
	}
	msg := fmt.Sprintf("%s tried to %s %s", e.Username, e.Operation, subject)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e ResourceEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e ResourceEvent) Facility() int {
	return FacilityAuthPriv
}

func (e ResourceEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.Username,
		},
		SDIDSubject: {
			"kind": e.Kind,
			"id":   e.ResourceID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result,
		},
	}
	if e.Name != "" {
		sd[SDIDSubject]["name"] = e.Name
	}
	return sd
}
