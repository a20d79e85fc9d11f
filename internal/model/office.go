package model

import "time"

// Office is a physical site equipment belongs to.  Users and guards are
// assigned to one or more offices; permits reference the office whose
// equipment they authorize to leave.
type Office struct {
	ID          uint64
	Name        string
	Description string
	CreatedBy   uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Office-change request states.  Requests start PENDING and only an admin
// decision moves them to a terminal state.
const (
	OfficeChangePending  = "PENDING"
	OfficeChangeApproved = "APPROVED"
	OfficeChangeRejected = "REJECTED"
)

// OfficeChangeRequest is a user-initiated request to be reassigned from the
// current office to another one, subject to admin approval.  Approval also
// rewrites the requesting user's office assignment.
type OfficeChangeRequest struct {
	ID              uint64
	UserID          uint64
	UserName        string
	CurrentOfficeID uint64
	WantedOfficeID  uint64
	Justification   string
	Status          string
	DecidedBy       *uint64
	DecidedAt       *time.Time
	CreatedAt       time.Time
}
