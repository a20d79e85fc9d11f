package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// ErrOfficeNotFound is returned when an office cannot be found.
var ErrOfficeNotFound = errors.New("office not found")

// OfficeRepo encapsulates all database queries related to offices.
type OfficeRepo struct {
	db *sql.DB
}

func NewOfficeRepo(db *sql.DB) *OfficeRepo { return &OfficeRepo{db: db} }

// Create inserts a new office.  On success the ID and timestamp fields of
// the passed record are populated.
func (r *OfficeRepo) Create(ctx context.Context, o *model.Office) error {
	const qInsert = "INSERT INTO offices (name, description, created_by) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, o.Name, o.Description, o.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	const qSelect = "SELECT created_at, updated_at FROM offices WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, o.ID).Scan(&o.CreatedAt, &o.UpdatedAt)
}

// GetByID fetches an office by its ID.  It returns ErrOfficeNotFound when
// no row exists.
func (r *OfficeRepo) GetByID(ctx context.Context, id uint64) (*model.Office, error) {
	const q = "SELECT id, name, description, created_by, created_at, updated_at FROM offices WHERE id = ?"
	var o model.Office
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID, &o.Name, &o.Description, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfficeNotFound
		}
		return nil, err
	}
	return &o, nil
}

// List returns all offices ordered by name.
func (r *OfficeRepo) List(ctx context.Context) ([]model.Office, error) {
	const q = "SELECT id, name, description, created_by, created_at, updated_at FROM offices ORDER BY name"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	offices := make([]model.Office, 0)
	for rows.Next() {
		var o model.Office
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	return offices, rows.Err()
}

// Update modifies the name and description of an office.
func (r *OfficeRepo) Update(ctx context.Context, id uint64, name, description string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE offices SET name=?, description=? WHERE id=?", name, description, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is also 0 when nothing changed, so confirm existence.
		var exists int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM offices WHERE id=?", id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOfficeNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes an office row.  Deletion is refused with ErrConflict while
// any account is still assigned to the office; the check and the delete run
// in one transaction so an assignment cannot slip in between them.
func (r *OfficeRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var assigned int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_offices WHERE office_id=?", id).Scan(&assigned); err != nil {
		return err
	}
	if assigned > 0 {
		return ErrConflict
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM offices WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOfficeNotFound
	}
	return tx.Commit()
}
