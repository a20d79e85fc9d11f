package model

import "time"

// Permit lifecycle states.  A permit starts PENDING and is moved to a
// terminal state exactly once by an office administrator.
const (
	PermitPending  = "PENDING"
	PermitApproved = "APPROVED"
	PermitRejected = "REJECTED"
)

// Equipment in/out states shared by permits and external equipment.
const (
	EquipmentIn  = "IN"
	EquipmentOut = "OUT"
)

// Permit records an employee's equipment-removal authorization and the
// current in/out status of the equipment it covers.  Rows are never
// hard-deleted; rejected and expired permits stay for the audit trail.
//
// Fields:
//  ID              – primary key identifier.
//  Folio           – stable external reference (UUID) used to build ArtifactURL.
//  EmployeeNumber  – badge number of the requester.
//  Name            – requester display name.
//  Email           – address notified on submission and decision.
//  OfficeID        – home office the permit belongs to.
//  ExpiresAt       – last calendar day the permit is valid (UTC date).
//  Status          – PENDING / APPROVED / REJECTED.
//  ArtifactURL     – URL embedded in the QR payload; scan lookups match on it.
//  QRDataURL       – inline PNG data URL generated on approval, empty otherwise.
//  EquipmentStatus – IN / OUT, flipped by guard scans.
//  LastReadAt      – when a guard last toggled the equipment (nullable).
//  CreatedBy       – account that submitted the request (nullable for imports).
//  CreatedAt       – submission timestamp.
//  UpdatedAt       – last mutation timestamp.
type Permit struct {
	ID              uint64
	Folio           string
	EmployeeNumber  string
	Name            string
	Email           string
	OfficeID        uint64
	ExpiresAt       time.Time
	Status          string
	ArtifactURL     string
	QRDataURL       string
	EquipmentStatus string
	LastReadAt      *time.Time
	CreatedBy       *uint64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PermitHistoryEntry is one free-text lifecycle note on a permit, shown to
// the requester when tracking a submission.
type PermitHistoryEntry struct {
	ID        uint64
	PermitID  uint64
	Status    string
	Message   string
	CreatedAt time.Time
}

// ExternalEquipment tracks equipment whose home-office permit does not match
// the office of the guard who scanned it.  Records are keyed by employee
// number, created lazily on the first out-of-office sighting, and kept after
// the status flips to OUT (soft state; the equipment board filters on
// Status instead of deleting rows).
type ExternalEquipment struct {
	ID             uint64
	EmployeeNumber string
	Name           string
	HomeOfficeID   uint64
	GuardOfficeID  uint64
	ArtifactURL    string
	Status         string
	LastReadAt     time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// How a reading was produced.
const (
	ReadingMethodScan   = "SCAN"
	ReadingMethodManual = "MANUAL"
)

// Reading is one append-only entry in the reading log: a single accepted
// scan or manual lookup by a guard.  Expired or conflicting scans never
// produce a Reading.
type Reading struct {
	ID             uint64
	EmployeeNumber string
	ArtifactURL    string
	Status         string
	External       bool
	GuardID        uint64
	GuardName      string
	OfficeID       uint64
	Method         string
	CreatedAt      time.Time
}
