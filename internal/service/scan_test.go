package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VRCarlos21/QrSanfer/internal/model"
	"github.com/VRCarlos21/QrSanfer/internal/repository"
)

// fakePermitStore holds permits in memory and applies the same conditional
// toggle semantics as the SQL repository.
type fakePermitStore struct {
	permits map[uint64]*model.Permit
}

func (f *fakePermitStore) find(match func(*model.Permit) bool) (model.Permit, error) {
	for _, p := range f.permits {
		if match(p) {
			return *p, nil
		}
	}
	return model.Permit{}, repository.ErrPermitNotFound
}

func (f *fakePermitStore) GetByArtifactURL(_ context.Context, url string) (model.Permit, error) {
	return f.find(func(p *model.Permit) bool { return p.ArtifactURL == url })
}

func (f *fakePermitStore) GetByEmployeeNumber(_ context.Context, num string) (model.Permit, error) {
	return f.find(func(p *model.Permit) bool {
		return p.EmployeeNumber == num && p.Status == model.PermitApproved
	})
}

func (f *fakePermitStore) ToggleEquipment(_ context.Context, id uint64, expected string, at time.Time) (string, error) {
	p, ok := f.permits[id]
	if !ok || p.EquipmentStatus != expected {
		return "", repository.ErrStatusConflict
	}
	p.EquipmentStatus = model.ToggleEquipment(expected)
	p.LastReadAt = &at
	return p.EquipmentStatus, nil
}

type fakeExternalStore struct {
	records map[string]*model.ExternalEquipment
}

func (f *fakeExternalStore) Get(_ context.Context, num string) (model.ExternalEquipment, error) {
	if rec, ok := f.records[num]; ok {
		return *rec, nil
	}
	return model.ExternalEquipment{}, repository.ErrExternalNotFound
}

func (f *fakeExternalStore) Create(_ context.Context, e *model.ExternalEquipment) error {
	e.Status = model.EquipmentIn
	cp := *e
	f.records[e.EmployeeNumber] = &cp
	return nil
}

func (f *fakeExternalStore) Toggle(_ context.Context, num, expected string, guardOfficeID uint64, at time.Time) (string, error) {
	rec, ok := f.records[num]
	if !ok || rec.Status != expected {
		return "", repository.ErrStatusConflict
	}
	rec.Status = model.ToggleEquipment(expected)
	rec.GuardOfficeID = guardOfficeID
	rec.LastReadAt = at
	return rec.Status, nil
}

type fakeReadingStore struct {
	readings []model.Reading
}

func (f *fakeReadingStore) Append(_ context.Context, rd *model.Reading) error {
	f.readings = append(f.readings, *rd)
	return nil
}

type fakeCounter struct{ n int64 }

func (f *fakeCounter) IncrExternalScans(context.Context) (int64, error) {
	f.n++
	return f.n, nil
}

type fakePhotos struct{ urls map[string]string }

func (f *fakePhotos) URL(num string) (string, bool) {
	u, ok := f.urls[num]
	return u, ok
}

type scanFixture struct {
	scanner   *Scanner
	permits   *fakePermitStore
	externals *fakeExternalStore
	readings  *fakeReadingStore
	counter   *fakeCounter
}

func newScanFixture(now time.Time) *scanFixture {
	f := &scanFixture{
		permits:   &fakePermitStore{permits: map[uint64]*model.Permit{}},
		externals: &fakeExternalStore{records: map[string]*model.ExternalEquipment{}},
		readings:  &fakeReadingStore{},
		counter:   &fakeCounter{},
	}
	f.scanner = NewScanner(f.permits, f.externals, f.readings, f.counter, &fakePhotos{urls: map[string]string{}})
	f.scanner.now = func() time.Time { return now }
	return f
}

func (f *scanFixture) addPermit(p model.Permit) {
	cp := p
	f.permits.permits[p.ID] = &cp
}

var testNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func validPermit() model.Permit {
	return model.Permit{
		ID:             1,
		EmployeeNumber: "M1001",
		Name:           "Laura Ortiz",
		OfficeID:       7,
		ExpiresAt:      testNow.AddDate(0, 0, 5),
		Status:         model.PermitApproved,
		ArtifactURL:    "https://files.example.com/permits/abc.pdf",
	}
}

func payloadFor(p model.Permit) string {
	return "Nombre: " + p.Name + "\nEmpleado: " + p.EmployeeNumber +
		"\nFecha: 2025-03-15\nPDF: " + p.ArtifactURL
}

func TestScanQRInvalidPayload(t *testing.T) {
	f := newScanFixture(testNow)
	guard := Guard{ID: 9, Name: "Guard", Offices: []uint64{7}}

	if _, err := f.scanner.ScanQR(context.Background(), "not a permit payload", guard); !errors.Is(err, ErrInvalidQR) {
		t.Fatalf("expected ErrInvalidQR, got %v", err)
	}
	if len(f.readings.readings) != 0 {
		t.Fatalf("invalid payload must not log readings, got %d", len(f.readings.readings))
	}
}

func TestScanQRUnknownURL(t *testing.T) {
	f := newScanFixture(testNow)
	guard := Guard{ID: 9, Offices: []uint64{7}}

	payload := "PDF: https://files.example.com/permits/missing.pdf"
	if _, err := f.scanner.ScanQR(context.Background(), payload, guard); !errors.Is(err, ErrEquipmentNotFound) {
		t.Fatalf("expected ErrEquipmentNotFound, got %v", err)
	}
}

func TestScanExpiredPermitChangesNothing(t *testing.T) {
	f := newScanFixture(testNow)
	p := validPermit()
	p.ExpiresAt = testNow.AddDate(0, 0, -1)
	f.addPermit(p)
	guard := Guard{ID: 9, Offices: []uint64{7}}

	if _, err := f.scanner.ScanQR(context.Background(), payloadFor(p), guard); !errors.Is(err, ErrPermitExpired) {
		t.Fatalf("expected ErrPermitExpired, got %v", err)
	}
	if got := f.permits.permits[p.ID].EquipmentStatus; got != "" {
		t.Fatalf("expired scan must not flip status, got %q", got)
	}
	if len(f.readings.readings) != 0 {
		t.Fatalf("expired scan must not log readings, got %d", len(f.readings.readings))
	}
}

func TestScanExpiringTodayRejected(t *testing.T) {
	f := newScanFixture(testNow)
	p := validPermit()
	p.ExpiresAt = testNow // same UTC calendar day
	f.addPermit(p)
	guard := Guard{ID: 9, Offices: []uint64{7}}

	if _, err := f.scanner.ScanQR(context.Background(), payloadFor(p), guard); !errors.Is(err, ErrPermitExpired) {
		t.Fatalf("expected ErrPermitExpired for same-day expiry, got %v", err)
	}
}

func TestScanInternalToggles(t *testing.T) {
	f := newScanFixture(testNow)
	p := validPermit()
	f.addPermit(p)
	guard := Guard{ID: 9, Name: "Guard", Offices: []uint64{7}}

	// First ever scan of a fresh permit records the equipment leaving.
	res, err := f.scanner.ScanQR(context.Background(), payloadFor(p), guard)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if res.Status != model.EquipmentOut || res.External {
		t.Fatalf("first scan: got status=%q external=%v", res.Status, res.External)
	}
	if res.DaysRemaining != 5 {
		t.Fatalf("days remaining = %d, want 5", res.DaysRemaining)
	}

	// Re-read the permit so the second scan sees the stored status.
	f.permits.permits[p.ID].EquipmentStatus = res.Status
	res, err = f.scanner.ScanQR(context.Background(), payloadFor(p), guard)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if res.Status != model.EquipmentIn {
		t.Fatalf("second scan status = %q, want IN", res.Status)
	}

	if len(f.readings.readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(f.readings.readings))
	}
	first := f.readings.readings[0]
	if first.External || first.Method != model.ReadingMethodScan || first.GuardID != 9 || first.OfficeID != 7 {
		t.Fatalf("unexpected first reading: %+v", first)
	}
	if f.counter.n != 0 {
		t.Fatalf("internal scans must not bump the external counter, got %d", f.counter.n)
	}
}

func TestScanExternalFirstSightingThenFlip(t *testing.T) {
	f := newScanFixture(testNow)
	p := validPermit() // home office 7
	f.addPermit(p)
	guard := Guard{ID: 4, Name: "Other Site", Offices: []uint64{12}}

	res, err := f.scanner.ScanQR(context.Background(), payloadFor(p), guard)
	if err != nil {
		t.Fatalf("first sighting: %v", err)
	}
	if !res.External || res.Status != model.EquipmentIn {
		t.Fatalf("first sighting: got external=%v status=%q, want external IN", res.External, res.Status)
	}
	rec, ok := f.externals.records[p.EmployeeNumber]
	if !ok {
		t.Fatal("first sighting must create an external record")
	}
	if rec.HomeOfficeID != 7 || rec.GuardOfficeID != 12 {
		t.Fatalf("external record offices = home %d guard %d, want 7/12", rec.HomeOfficeID, rec.GuardOfficeID)
	}
	if got := f.permits.permits[p.ID].EquipmentStatus; got != "" {
		t.Fatalf("external scan must not touch the permit status, got %q", got)
	}

	res, err = f.scanner.ScanQR(context.Background(), payloadFor(p), guard)
	if err != nil {
		t.Fatalf("second sighting: %v", err)
	}
	if res.Status != model.EquipmentOut {
		t.Fatalf("second sighting status = %q, want OUT", res.Status)
	}
	if f.externals.records[p.EmployeeNumber] == nil {
		t.Fatal("external record must survive flipping to OUT")
	}

	if f.counter.n != 2 {
		t.Fatalf("external counter = %d, want 2", f.counter.n)
	}
	if len(f.readings.readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(f.readings.readings))
	}
	for i, rd := range f.readings.readings {
		if !rd.External || rd.OfficeID != 12 {
			t.Fatalf("reading %d: external=%v office=%d", i, rd.External, rd.OfficeID)
		}
	}
}

func TestLookupManualInternal(t *testing.T) {
	f := newScanFixture(testNow)
	p := validPermit()
	f.addPermit(p)
	guard := Guard{ID: 9, Offices: []uint64{7}}

	res, err := f.scanner.Lookup(context.Background(), "M1001", guard)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if res.External || res.Status != model.EquipmentOut {
		t.Fatalf("lookup: got external=%v status=%q", res.External, res.Status)
	}
	if got := f.readings.readings[0].Method; got != model.ReadingMethodManual {
		t.Fatalf("lookup method = %q, want MANUAL", got)
	}
}

func TestLookupFallsBackToExternalRecord(t *testing.T) {
	f := newScanFixture(testNow)
	f.externals.records["M2002"] = &model.ExternalEquipment{
		EmployeeNumber: "M2002",
		Name:           "Visitante",
		HomeOfficeID:   3,
		GuardOfficeID:  12,
		Status:         model.EquipmentIn,
	}
	guard := Guard{ID: 4, Offices: []uint64{12}}

	res, err := f.scanner.Lookup(context.Background(), "M2002", guard)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !res.External || res.Status != model.EquipmentOut {
		t.Fatalf("lookup: got external=%v status=%q, want external OUT", res.External, res.Status)
	}
	if f.counter.n != 1 {
		t.Fatalf("external counter = %d, want 1", f.counter.n)
	}
}

func TestLookupUnknownEmployee(t *testing.T) {
	f := newScanFixture(testNow)
	guard := Guard{ID: 4, Offices: []uint64{12}}

	if _, err := f.scanner.Lookup(context.Background(), "M9999", guard); !errors.Is(err, ErrEquipmentNotFound) {
		t.Fatalf("expected ErrEquipmentNotFound, got %v", err)
	}
}

func TestGuardWithoutOffice(t *testing.T) {
	f := newScanFixture(testNow)
	p := validPermit()
	f.addPermit(p)

	if _, err := f.scanner.ScanQR(context.Background(), payloadFor(p), Guard{ID: 9}); !errors.Is(err, ErrGuardWithoutOffice) {
		t.Fatalf("scan: expected ErrGuardWithoutOffice, got %v", err)
	}
	if _, err := f.scanner.Lookup(context.Background(), "M1001", Guard{ID: 9}); !errors.Is(err, ErrGuardWithoutOffice) {
		t.Fatalf("lookup: expected ErrGuardWithoutOffice, got %v", err)
	}
}

func TestScanConflictLogsNothing(t *testing.T) {
	f := newScanFixture(testNow)
	p := validPermit()
	p.EquipmentStatus = model.EquipmentOut
	f.addPermit(p)
	guard := Guard{ID: 9, Offices: []uint64{7}}

	// The scanner resolved the permit while it still read IN; by the time
	// the toggle runs another guard already flipped it.
	stale := *f.permits.permits[p.ID]
	stale.EquipmentStatus = model.EquipmentIn
	_, err := f.scanner.process(context.Background(), stale, guard, model.ReadingMethodScan)
	if !errors.Is(err, repository.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	if len(f.readings.readings) != 0 {
		t.Fatalf("conflicting scan must not log a reading, got %d", len(f.readings.readings))
	}
}

func TestDaysRemaining(t *testing.T) {
	cases := []struct {
		name    string
		expires time.Time
		want    int
	}{
		{"five days out", testNow.AddDate(0, 0, 5), 5},
		{"tomorrow", testNow.AddDate(0, 0, 1), 1},
		{"today", testNow, 0},
		{"later today", testNow.Add(8 * time.Hour), 0},
		{"yesterday", testNow.AddDate(0, 0, -1), -1},
	}
	for _, tc := range cases {
		if got := DaysRemaining(testNow, tc.expires); got != tc.want {
			t.Errorf("%s: DaysRemaining = %d, want %d", tc.name, got, tc.want)
		}
	}
}
