package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// ReadingRepo appends and queries the append-only reading log.  Entries are
// never updated or deleted.
type ReadingRepo struct {
	db *sql.DB
}

func NewReadingRepo(db *sql.DB) *ReadingRepo { return &ReadingRepo{db: db} }

// Append inserts one reading.  The generated ID is populated on the record.
func (r *ReadingRepo) Append(ctx context.Context, rd *model.Reading) error {
	const q = `INSERT INTO readings
        (employee_number, artifact_url, status, is_external, guard_id, guard_name, office_id, method, created_at)
        VALUES (?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, rd.EmployeeNumber, rd.ArtifactURL, rd.Status,
		rd.External, rd.GuardID, rd.GuardName, rd.OfficeID, rd.Method, rd.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rd.ID = uint64(id)
	return nil
}

// ReadingFilter narrows List results.  Zero values mean "no filter".
type ReadingFilter struct {
	EmployeeNumber string
	External       *bool
	OfficeID       uint64
	From           time.Time
	To             time.Time
	Limit          int
}

// List returns readings newest first, honoring the filter.  The limit
// defaults to 100 when unset.
func (r *ReadingRepo) List(ctx context.Context, f ReadingFilter) ([]model.Reading, error) {
	q := `SELECT id, employee_number, artifact_url, status, is_external,
                 guard_id, guard_name, office_id, method, created_at
          FROM readings WHERE 1=1`
	args := make([]interface{}, 0, 6)
	if f.EmployeeNumber != "" {
		q += " AND employee_number=?"
		args = append(args, f.EmployeeNumber)
	}
	if f.External != nil {
		q += " AND is_external=?"
		args = append(args, *f.External)
	}
	if f.OfficeID != 0 {
		q += " AND office_id=?"
		args = append(args, f.OfficeID)
	}
	if !f.From.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		q += " AND created_at <= ?"
		args = append(args, f.To.UTC())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	readings := make([]model.Reading, 0)
	for rows.Next() {
		var rd model.Reading
		if err := rows.Scan(&rd.ID, &rd.EmployeeNumber, &rd.ArtifactURL, &rd.Status,
			&rd.External, &rd.GuardID, &rd.GuardName, &rd.OfficeID, &rd.Method, &rd.CreatedAt); err != nil {
			return nil, err
		}
		readings = append(readings, rd)
	}
	return readings, rows.Err()
}

// CountSince returns the number of readings recorded at an office since the
// given time, split by external flag.  Used by the vigilante report.
func (r *ReadingRepo) CountSince(ctx context.Context, officeID uint64, since time.Time) (internal, external int, err error) {
	const q = `SELECT
                 COALESCE(SUM(is_external = 0), 0),
                 COALESCE(SUM(is_external = 1), 0)
               FROM readings WHERE office_id=? AND created_at >= ?`
	err = r.db.QueryRowContext(ctx, q, officeID, since.UTC()).Scan(&internal, &external)
	return internal, external, err
}

// DayCount is one row of the per-day reading breakdown.
type DayCount struct {
	Day      string `json:"day"` // YYYY-MM-DD, UTC
	Internal int    `json:"internal"`
	External int    `json:"external"`
}

// CountByDay returns reading counts per UTC calendar day at an office,
// oldest day first, starting at from.
func (r *ReadingRepo) CountByDay(ctx context.Context, officeID uint64, from time.Time) ([]DayCount, error) {
	// DATE_FORMAT keeps the group key a plain string even with parseTime=true.
	const q = `SELECT DATE_FORMAT(created_at, '%Y-%m-%d'),
                 COALESCE(SUM(is_external = 0), 0),
                 COALESCE(SUM(is_external = 1), 0)
               FROM readings WHERE office_id=? AND created_at >= ?
               GROUP BY 1 ORDER BY 1`
	rows, err := r.db.QueryContext(ctx, q, officeID, from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	days := make([]DayCount, 0)
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Day, &d.Internal, &d.External); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
