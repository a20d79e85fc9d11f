// Package service holds the business operations that sit between handlers
// and repositories: the scan/lookup reconciliation, QR generation and event
// publishing.
package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/VRCarlos21/QrSanfer/internal/model"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
)

// Scan errors surfaced to the guard.
var (
	// ErrInvalidQR means the scanned payload carried no artifact URL line.
	ErrInvalidQR = errors.New("qr payload has no artifact url")
	// ErrEquipmentNotFound means no permit or external record matched.
	ErrEquipmentNotFound = errors.New("equipment not found")
	// ErrPermitExpired means the permit's expiry date has passed; the scan
	// is rejected with no status change and no reading.
	ErrPermitExpired = errors.New("permit expired")
	// ErrGuardWithoutOffice means the guard has no office assignment yet.
	ErrGuardWithoutOffice = errors.New("guard has no assigned office")
)

// artifactURLRe extracts the artifact URL from the QR payload.  The payload
// is multi-line text; the permit reference travels on the "PDF:" line.
var artifactURLRe = regexp.MustCompile(`PDF:\s*(https?://\S+)`)

// PermitStore is the slice of the permit repository the scanner needs.
type PermitStore interface {
	GetByArtifactURL(ctx context.Context, url string) (model.Permit, error)
	GetByEmployeeNumber(ctx context.Context, employeeNumber string) (model.Permit, error)
	ToggleEquipment(ctx context.Context, id uint64, expected string, at time.Time) (string, error)
}

// ExternalStore is the slice of the external-equipment repository the
// scanner needs.
type ExternalStore interface {
	Get(ctx context.Context, employeeNumber string) (model.ExternalEquipment, error)
	Create(ctx context.Context, e *model.ExternalEquipment) error
	Toggle(ctx context.Context, employeeNumber, expected string, guardOfficeID uint64, at time.Time) (string, error)
}

// ReadingStore appends accepted scans to the reading log.
type ReadingStore interface {
	Append(ctx context.Context, rd *model.Reading) error
}

// ScanCounter bumps the external scan counter.
type ScanCounter interface {
	IncrExternalScans(ctx context.Context) (int64, error)
}

// PhotoResolver maps an employee number to a servable photo URL, when a
// photo exists.
type PhotoResolver interface {
	URL(employeeNumber string) (string, bool)
}

// Guard identifies the scanning vigilante.  Offices is the guard's
// server-side assignment; the first office is the recording office for
// external equipment.
type Guard struct {
	ID      uint64
	Name    string
	Offices []uint64
}

func (g Guard) hasOffice(id uint64) bool {
	for _, o := range g.Offices {
		if o == id {
			return true
		}
	}
	return false
}

// ScanResult is what the guard sees after an accepted scan or lookup.
type ScanResult struct {
	EmployeeNumber string `json:"employee_number"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	External       bool   `json:"external"`
	DaysRemaining  int    `json:"days_remaining"`
	PhotoURL       string `json:"photo_url,omitempty"`
	ArtifactURL    string `json:"artifact_url,omitempty"`
}

// Scanner performs the check-in/check-out reconciliation for QR scans and
// manual lookups.  Status flips are conditional updates (expected previous
// value), so two concurrent scans of the same badge cannot both win: the
// loser gets repository.ErrStatusConflict and logs nothing, and exactly one
// reading is appended per accepted scan.
type Scanner struct {
	permits   PermitStore
	externals ExternalStore
	readings  ReadingStore
	counters  ScanCounter
	photos    PhotoResolver
	now       func() time.Time
}

func NewScanner(p PermitStore, e ExternalStore, r ReadingStore, c ScanCounter, ph PhotoResolver) *Scanner {
	return &Scanner{permits: p, externals: e, readings: r, counters: c, photos: ph, now: time.Now}
}

// DaysRemaining returns how many whole calendar days are left until the
// permit expires, comparing UTC dates.  Zero or negative means expired; a
// permit expiring today is no longer valid.
func DaysRemaining(now, expires time.Time) int {
	ny, nm, nd := now.UTC().Date()
	ey, em, ed := expires.UTC().Date()
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	exp := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(exp.Sub(today) / (24 * time.Hour))
}

// ScanQR resolves a raw QR payload and toggles the matched equipment.
func (s *Scanner) ScanQR(ctx context.Context, payload string, guard Guard) (ScanResult, error) {
	m := artifactURLRe.FindStringSubmatch(payload)
	if m == nil {
		return ScanResult{}, ErrInvalidQR
	}
	permit, err := s.permits.GetByArtifactURL(ctx, m[1])
	if err != nil {
		if errors.Is(err, repository.ErrPermitNotFound) {
			return ScanResult{}, ErrEquipmentNotFound
		}
		return ScanResult{}, err
	}
	return s.process(ctx, permit, guard, model.ReadingMethodScan)
}

// Lookup resolves a manually entered employee number.  When no permit
// matches, an existing external-equipment record is the fallback: equipment
// registered at this site whose home permit lives in another office's books.
func (s *Scanner) Lookup(ctx context.Context, employeeNumber string, guard Guard) (ScanResult, error) {
	if len(guard.Offices) == 0 {
		return ScanResult{}, ErrGuardWithoutOffice
	}
	permit, err := s.permits.GetByEmployeeNumber(ctx, employeeNumber)
	if err != nil {
		if errors.Is(err, repository.ErrPermitNotFound) {
			return s.lookupExternal(ctx, employeeNumber, guard)
		}
		return ScanResult{}, err
	}
	return s.process(ctx, permit, guard, model.ReadingMethodManual)
}

// lookupExternal toggles a pre-existing external record with no backing
// permit.  There is no expiry to check: the permit that admitted the
// equipment is not in this office's books.
func (s *Scanner) lookupExternal(ctx context.Context, employeeNumber string, guard Guard) (ScanResult, error) {
	rec, err := s.externals.Get(ctx, employeeNumber)
	if err != nil {
		if errors.Is(err, repository.ErrExternalNotFound) {
			return ScanResult{}, ErrEquipmentNotFound
		}
		return ScanResult{}, err
	}
	at := s.now().UTC()
	status, err := s.externals.Toggle(ctx, rec.EmployeeNumber, rec.Status, guard.Offices[0], at)
	if err != nil {
		return ScanResult{}, err
	}
	// Counter loss is tolerable; the reading below is the record.
	_, _ = s.counters.IncrExternalScans(ctx)
	if err := s.appendReading(ctx, rec.EmployeeNumber, rec.ArtifactURL, status, true, guard, model.ReadingMethodManual, at); err != nil {
		return ScanResult{}, err
	}
	return s.result(rec.EmployeeNumber, rec.Name, status, true, 0, rec.ArtifactURL), nil
}

// process classifies the resolved permit as internal or external to the
// guard's offices and performs the toggle plus the single reading append.
func (s *Scanner) process(ctx context.Context, permit model.Permit, guard Guard, method string) (ScanResult, error) {
	if len(guard.Offices) == 0 {
		return ScanResult{}, ErrGuardWithoutOffice
	}
	days := DaysRemaining(s.now(), permit.ExpiresAt)
	if days <= 0 {
		return ScanResult{}, ErrPermitExpired
	}
	at := s.now().UTC()

	if !guard.hasOffice(permit.OfficeID) {
		status, err := s.toggleExternal(ctx, permit, guard, at)
		if err != nil {
			return ScanResult{}, err
		}
		if err := s.appendReading(ctx, permit.EmployeeNumber, permit.ArtifactURL, status, true, guard, method, at); err != nil {
			return ScanResult{}, err
		}
		return s.result(permit.EmployeeNumber, permit.Name, status, true, days, permit.ArtifactURL), nil
	}

	status, err := s.permits.ToggleEquipment(ctx, permit.ID, permit.EquipmentStatus, at)
	if err != nil {
		return ScanResult{}, err
	}
	if err := s.appendReading(ctx, permit.EmployeeNumber, permit.ArtifactURL, status, false, guard, method, at); err != nil {
		return ScanResult{}, err
	}
	return s.result(permit.EmployeeNumber, permit.Name, status, false, days, permit.ArtifactURL), nil
}

// toggleExternal flips the external record for the permit's badge, lazily
// creating it on the first out-of-office sighting.  The first sighting
// initialises the status to IN.
func (s *Scanner) toggleExternal(ctx context.Context, permit model.Permit, guard Guard, at time.Time) (string, error) {
	var status string
	rec, err := s.externals.Get(ctx, permit.EmployeeNumber)
	switch {
	case err == nil:
		status, err = s.externals.Toggle(ctx, rec.EmployeeNumber, rec.Status, guard.Offices[0], at)
		if err != nil {
			return "", err
		}
	case errors.Is(err, repository.ErrExternalNotFound):
		rec = model.ExternalEquipment{
			EmployeeNumber: permit.EmployeeNumber,
			Name:           permit.Name,
			HomeOfficeID:   permit.OfficeID,
			GuardOfficeID:  guard.Offices[0],
			ArtifactURL:    permit.ArtifactURL,
			LastReadAt:     at,
		}
		if err := s.externals.Create(ctx, &rec); err != nil {
			return "", err
		}
		status = rec.Status
	default:
		return "", err
	}
	// Tolerated, see lookupExternal.
	_, _ = s.counters.IncrExternalScans(ctx)
	return status, nil
}

func (s *Scanner) appendReading(ctx context.Context, employeeNumber, artifactURL, status string, external bool, guard Guard, method string, at time.Time) error {
	officeID := uint64(0)
	if len(guard.Offices) > 0 {
		officeID = guard.Offices[0]
	}
	return s.readings.Append(ctx, &model.Reading{
		EmployeeNumber: employeeNumber,
		ArtifactURL:    artifactURL,
		Status:         status,
		External:       external,
		GuardID:        guard.ID,
		GuardName:      guard.Name,
		OfficeID:       officeID,
		Method:         method,
		CreatedAt:      at,
	})
}

func (s *Scanner) result(employeeNumber, name, status string, external bool, days int, artifactURL string) ScanResult {
	res := ScanResult{
		EmployeeNumber: employeeNumber,
		Name:           name,
		Status:         status,
		External:       external,
		DaysRemaining:  days,
		ArtifactURL:    artifactURL,
	}
	if s.photos != nil {
		if url, ok := s.photos.URL(employeeNumber); ok {
			res.PhotoURL = url
		}
	}
	return res
}
