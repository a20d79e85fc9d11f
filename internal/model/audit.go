package model

import "time"

// AuditChange is one field-level before/after pair inside an audit entry.
type AuditChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// AuditEntry is an append-only structured record of an administrative
// action: user created/edited/deleted/status-changed, office
// created/edited/deleted, office-change approved/rejected.  Changes are
// stored as a JSON array in a single column.
type AuditEntry struct {
	ID           uint64
	Action       string
	Description  string
	ActorID      uint64
	ActorEmail   string
	AffectedID   *uint64
	AffectedName string
	Changes      []AuditChange
	CreatedAt    time.Time
}

// Notification is a per-user activity entry with a read flag, surfaced to
// the affected user (e.g. "your office change was approved").
type Notification struct {
	ID        uint64
	UserID    uint64
	Kind      string
	Message   string
	Read      bool
	CreatedAt time.Time
}
