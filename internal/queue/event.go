// Package queue defines the permit lifecycle events exchanged over the
// message broker, the publisher that emits them, and the background consumer
// that turns them into notifications.
package queue

// Queue names.  The routing key equals the queue name; everything goes
// through the default exchange.
const (
	PermitSubmittedQueue = "permit.submitted"
	PermitDecidedQueue   = "permit.decided"
)

// PermitSubmittedEvent is published when an employee files a new permit
// request.  It carries enough for downstream consumers to notify office
// administrators without querying the primary database.
type PermitSubmittedEvent struct {
	PermitID       uint64 `json:"permit_id"`
	Folio          string `json:"folio"`
	EmployeeNumber string `json:"employee_number"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	OfficeID       uint64 `json:"office_id"`
	ExpiresAt      string `json:"expires_at"`
	SubmittedAt    string `json:"submitted_at"`
}

// PermitDecidedEvent is published when an administrator approves or rejects
// a pending permit.
type PermitDecidedEvent struct {
	PermitID       uint64 `json:"permit_id"`
	Folio          string `json:"folio"`
	EmployeeNumber string `json:"employee_number"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	OfficeID       uint64 `json:"office_id"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	DecidedBy      string `json:"decided_by"`
	DecidedAt      string `json:"decided_at"`
}
