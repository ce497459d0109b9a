package audit

import "fmt"

// RevealEvent records a request to read a credential secret in the
// clear. Reveals are logged whether or not they succeed.
type RevealEvent struct {
	Username     string
	ClientIP     string
	CredentialID string
	Name         string
	Success      bool
	ErrorMessage string
}

func (e RevealEvent) MessageID() string {
	return "reveal"
}

func (e RevealEvent) Message() string {
	subject := fmt.Sprintf("credential %s", e.CredentialID)
	if e.Name != "" {
		subject = fmt.Sprintf("credential %s (%s)", e.Name, e.CredentialID)
	}
	if e.Success {
		return fmt.Sprintf("%s revealed %s", e.Username, subject)
	}
	msg := fmt.Sprintf("%s tried to reveal %s", e.Username, subject)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e RevealEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e RevealEvent) Facility() int {
	return FacilityAuthPriv
}

func (e RevealEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.Username,
		},
		SDIDSubject: {
			"kind": "credential",
			"id":   e.CredentialID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "reveal",
			"result":    result,
		},
	}
	if e.Name != "" {
		sd[SDIDSubject]["name"] = e.Name
	}
	return sd
}
