package events

import "time"

// AccessDecided se emite por cada decisión del gate de autorización.
type AccessDecided struct {
	PrincipalID string    `json:"principalId,omitempty"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Permission  string    `json:"permission"`
	Allowed     bool      `json:"allowed"`
	Reason      string    `json:"reason,omitempty"`
	DecidedAt   time.Time `json:"decidedAt"`
}

func (e AccessDecided) PartitionKey() string { return e.PrincipalID }
