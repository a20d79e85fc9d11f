package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// ErrExternalNotFound is returned when no external-equipment record exists
// for an employee number.
var ErrExternalNotFound = errors.New("external equipment not found")

// ExternalRepo manages external-equipment records: equipment sighted at an
// office other than its permit's home office.  Rows are keyed by employee
// number and are soft state — they persist after the status flips to OUT so
// the reading log keeps its full history.
type ExternalRepo struct {
	db *sql.DB
}

func NewExternalRepo(db *sql.DB) *ExternalRepo { return &ExternalRepo{db: db} }

const externalColumns = `id, employee_number, name, home_office_id, guard_office_id,
       artifact_url, status, last_read_at, created_at, updated_at`

func scanExternal(scan func(dest ...interface{}) error) (model.ExternalEquipment, error) {
	var e model.ExternalEquipment
	err := scan(&e.ID, &e.EmployeeNumber, &e.Name, &e.HomeOfficeID, &e.GuardOfficeID,
		&e.ArtifactURL, &e.Status, &e.LastReadAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Get fetches the record for an employee number.
func (r *ExternalRepo) Get(ctx context.Context, employeeNumber string) (model.ExternalEquipment, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+externalColumns+" FROM external_equipment WHERE employee_number=? LIMIT 1",
		employeeNumber)
	e, err := scanExternal(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ExternalEquipment{}, ErrExternalNotFound
	}
	return e, err
}

// Create registers the first sighting of external equipment.  The status is
// always initialised to IN.
func (r *ExternalRepo) Create(ctx context.Context, e *model.ExternalEquipment) error {
	e.Status = model.EquipmentIn
	const q = `INSERT INTO external_equipment
        (employee_number, name, home_office_id, guard_office_id, artifact_url, status, last_read_at)
        VALUES (?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, e.EmployeeNumber, e.Name, e.HomeOfficeID,
		e.GuardOfficeID, e.ArtifactURL, e.Status, e.LastReadAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// Toggle flips the record's status with an expected-previous-value check
// and stamps the last-read time and recording office.  ErrStatusConflict is
// returned when another scan already flipped the row.
func (r *ExternalRepo) Toggle(ctx context.Context, employeeNumber, expected string, guardOfficeID uint64, at time.Time) (string, error) {
	next := model.ToggleEquipment(expected)
	res, err := r.db.ExecContext(ctx,
		`UPDATE external_equipment SET status=?, last_read_at=?, guard_office_id=?
         WHERE employee_number=? AND status=?`,
		next, at.UTC(), guardOfficeID, employeeNumber, expected)
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

// ListByGuardOffice returns records recorded at the given office, filtered
// by status when one is supplied.  The equipment board uses status=IN; the
// report endpoint passes an empty status to count everything.
func (r *ExternalRepo) ListByGuardOffice(ctx context.Context, guardOfficeID uint64, status string) ([]model.ExternalEquipment, error) {
	q := "SELECT " + externalColumns + " FROM external_equipment WHERE guard_office_id=?"
	args := []interface{}{guardOfficeID}
	if status != "" {
		q += " AND status=?"
		args = append(args, status)
	}
	q += " ORDER BY last_read_at DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]model.ExternalEquipment, 0)
	for rows.Next() {
		e, err := scanExternal(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, e)
	}
	return records, rows.Err()
}
