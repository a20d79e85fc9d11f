package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// ErrPermitNotFound is returned when no permit matches the lookup key.
var ErrPermitNotFound = errors.New("permit not found")

// PermitRepo provides CRUD and toggle operations for permit requests and
// their history entries.  Permits are never deleted; rejected and expired
// rows remain for the audit trail.  All timestamps are stored in UTC.
type PermitRepo struct {
	db *sql.DB
}

func NewPermitRepo(db *sql.DB) *PermitRepo { return &PermitRepo{db: db} }

const permitColumns = `id, folio, employee_number, name, email, office_id, expires_at,
       status, artifact_url, COALESCE(qr_data,''), equipment_status, last_read_at,
       created_by, created_at, updated_at`

func scanPermit(scan func(dest ...interface{}) error) (model.Permit, error) {
	var (
		p         model.Permit
		lastRead  sql.NullTime
		createdBy sql.NullInt64
	)
	err := scan(&p.ID, &p.Folio, &p.EmployeeNumber, &p.Name, &p.Email, &p.OfficeID,
		&p.ExpiresAt, &p.Status, &p.ArtifactURL, &p.QRDataURL, &p.EquipmentStatus,
		&lastRead, &createdBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Permit{}, err
	}
	if lastRead.Valid {
		t := lastRead.Time
		p.LastReadAt = &t
	}
	if createdBy.Valid {
		id := uint64(createdBy.Int64)
		p.CreatedBy = &id
	}
	return p, nil
}

// Create inserts a new pending permit together with its first history entry
// in one transaction.  The caller supplies folio and artifact URL; the
// generated ID is populated on the record.
func (r *PermitRepo) Create(ctx context.Context, p *model.Permit, historyMessage string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO permits
        (folio, employee_number, name, email, office_id, expires_at, status, artifact_url, created_by)
        VALUES (?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q, p.Folio, p.EmployeeNumber, p.Name, p.Email,
		p.OfficeID, p.ExpiresAt.UTC().Format("2006-01-02"), model.PermitPending, p.ArtifactURL, p.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Status = model.PermitPending

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO permit_history (permit_id, status, message) VALUES (?,?,?)",
		p.ID, model.PermitPending, historyMessage); err != nil {
		return err
	}
	if err := tx.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM permits WHERE id=?", p.ID).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID fetches a single permit.
func (r *PermitRepo) GetByID(ctx context.Context, id uint64) (model.Permit, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+permitColumns+" FROM permits WHERE id=?", id)
	p, err := scanPermit(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Permit{}, ErrPermitNotFound
	}
	return p, err
}

// GetByArtifactURL resolves the permit whose recorded artifact URL equals
// the value extracted from a scanned QR payload.
func (r *PermitRepo) GetByArtifactURL(ctx context.Context, url string) (model.Permit, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+permitColumns+" FROM permits WHERE artifact_url=? LIMIT 1", url)
	p, err := scanPermit(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Permit{}, ErrPermitNotFound
	}
	return p, err
}

// GetByEmployeeNumber resolves the most recent approved permit for a badge,
// used by the manual lookup path.
func (r *PermitRepo) GetByEmployeeNumber(ctx context.Context, employeeNumber string) (model.Permit, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+permitColumns+` FROM permits
         WHERE employee_number=? AND status=? ORDER BY created_at DESC LIMIT 1`,
		employeeNumber, model.PermitApproved)
	p, err := scanPermit(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Permit{}, ErrPermitNotFound
	}
	return p, err
}

// ListByEmail returns the requester's own permits, newest first.
func (r *PermitRepo) ListByEmail(ctx context.Context, email string) ([]model.Permit, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+permitColumns+" FROM permits WHERE email=? ORDER BY created_at DESC", email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermits(rows)
}

// List returns permits filtered by optional status and office.
func (r *PermitRepo) List(ctx context.Context, status string, officeID uint64) ([]model.Permit, error) {
	q := "SELECT " + permitColumns + " FROM permits WHERE 1=1"
	args := make([]interface{}, 0, 2)
	if status != "" {
		q += " AND status=?"
		args = append(args, status)
	}
	if officeID != 0 {
		q += " AND office_id=?"
		args = append(args, officeID)
	}
	q += " ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermits(rows)
}

func collectPermits(rows *sql.Rows) ([]model.Permit, error) {
	permits := make([]model.Permit, 0)
	for rows.Next() {
		p, err := scanPermit(rows.Scan)
		if err != nil {
			return nil, err
		}
		permits = append(permits, p)
	}
	return permits, rows.Err()
}

// Decide moves a pending permit to APPROVED or REJECTED.  The update is
// conditional on the row still being PENDING; deciding an already decided
// permit returns ErrInvalidTransition.  Approval stores the QR data URL,
// rejection clears it.  A history entry is appended in the same transaction.
func (r *PermitRepo) Decide(ctx context.Context, id uint64, decision, qrDataURL, historyMessage string) error {
	if decision != model.PermitApproved && decision != model.PermitRejected {
		return ErrInvalidTransition
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE permits SET status=?, qr_data=? WHERE id=? AND status=?",
		decision, qrDataURL, id, model.PermitPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the permit does not exist or it was already decided.
		var status string
		if err := tx.QueryRowContext(ctx, "SELECT status FROM permits WHERE id=?", id).Scan(&status); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPermitNotFound
			}
			return err
		}
		return ErrInvalidTransition
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO permit_history (permit_id, status, message) VALUES (?,?,?)",
		id, decision, historyMessage); err != nil {
		return err
	}
	return tx.Commit()
}

// ToggleEquipment flips the permit's equipment status with an
// expected-previous-value check.  When the stored status no longer equals
// expected, ErrStatusConflict is returned and nothing is written; the
// caller must not log a reading in that case.
func (r *PermitRepo) ToggleEquipment(ctx context.Context, id uint64, expected string, at time.Time) (string, error) {
	next := model.ToggleEquipment(expected)
	res, err := r.db.ExecContext(ctx,
		"UPDATE permits SET equipment_status=?, last_read_at=? WHERE id=? AND equipment_status=?",
		next, at.UTC(), id, expected)
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrStatusConflict
	}
	return next, nil
}

// History returns the free-text lifecycle entries of a permit, oldest first.
func (r *PermitRepo) History(ctx context.Context, permitID uint64) ([]model.PermitHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, permit_id, status, message, created_at FROM permit_history WHERE permit_id=? ORDER BY created_at",
		permitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.PermitHistoryEntry, 0)
	for rows.Next() {
		var e model.PermitHistoryEntry
		if err := rows.Scan(&e.ID, &e.PermitID, &e.Status, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// BoardInternal returns the approved, non-expired permits for the given
// offices, for the vigilante equipment board.
func (r *PermitRepo) BoardInternal(ctx context.Context, officeIDs []uint64, today time.Time) ([]model.Permit, error) {
	if len(officeIDs) == 0 {
		return []model.Permit{}, nil
	}
	placeholders := make([]string, len(officeIDs))
	args := make([]interface{}, 0, len(officeIDs)+2)
	for i, id := range officeIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, model.PermitApproved, today.UTC().Format("2006-01-02"))
	q := "SELECT " + permitColumns + ` FROM permits
          WHERE office_id IN (` + strings.Join(placeholders, ",") + `)
            AND status=? AND expires_at >= ?
          ORDER BY last_read_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermits(rows)
}
