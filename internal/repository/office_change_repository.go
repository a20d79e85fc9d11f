package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// ErrOfficeChangeNotFound is returned when no office-change request exists.
var ErrOfficeChangeNotFound = errors.New("office change request not found")

// OfficeChangeRepo manages user-initiated office reassignment requests.
type OfficeChangeRepo struct {
	db *sql.DB
}

func NewOfficeChangeRepo(db *sql.DB) *OfficeChangeRepo { return &OfficeChangeRepo{db: db} }

const officeChangeColumns = `id, user_id, user_name, current_office_id, wanted_office_id,
       justification, status, decided_by, decided_at, created_at`

func scanOfficeChange(scan func(dest ...interface{}) error) (model.OfficeChangeRequest, error) {
	var (
		oc        model.OfficeChangeRequest
		decidedBy sql.NullInt64
		decidedAt sql.NullTime
	)
	err := scan(&oc.ID, &oc.UserID, &oc.UserName, &oc.CurrentOfficeID, &oc.WantedOfficeID,
		&oc.Justification, &oc.Status, &decidedBy, &decidedAt, &oc.CreatedAt)
	if err != nil {
		return model.OfficeChangeRequest{}, err
	}
	if decidedBy.Valid {
		id := uint64(decidedBy.Int64)
		oc.DecidedBy = &id
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		oc.DecidedAt = &t
	}
	return oc, nil
}

// Create files a new pending request.
func (r *OfficeChangeRepo) Create(ctx context.Context, oc *model.OfficeChangeRequest) error {
	const q = `INSERT INTO office_changes
        (user_id, user_name, current_office_id, wanted_office_id, justification, status)
        VALUES (?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, oc.UserID, oc.UserName, oc.CurrentOfficeID,
		oc.WantedOfficeID, oc.Justification, model.OfficeChangePending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	oc.ID = uint64(id)
	oc.Status = model.OfficeChangePending
	return nil
}

// GetByID fetches a single request.
func (r *OfficeChangeRepo) GetByID(ctx context.Context, id uint64) (model.OfficeChangeRequest, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+officeChangeColumns+" FROM office_changes WHERE id=?", id)
	oc, err := scanOfficeChange(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OfficeChangeRequest{}, ErrOfficeChangeNotFound
	}
	return oc, err
}

// ListPending returns all pending requests, oldest first, for the admin
// review screen.
func (r *OfficeChangeRepo) ListPending(ctx context.Context) ([]model.OfficeChangeRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+officeChangeColumns+" FROM office_changes WHERE status=? ORDER BY created_at",
		model.OfficeChangePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.OfficeChangeRequest, 0)
	for rows.Next() {
		oc, err := scanOfficeChange(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, oc)
	}
	return items, rows.Err()
}

// ListByUser returns a user's own requests, newest first.
func (r *OfficeChangeRepo) ListByUser(ctx context.Context, userID uint64) ([]model.OfficeChangeRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+officeChangeColumns+" FROM office_changes WHERE user_id=? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.OfficeChangeRequest, 0)
	for rows.Next() {
		oc, err := scanOfficeChange(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, oc)
	}
	return items, rows.Err()
}

// Decide moves a pending request to APPROVED or REJECTED.  On approval the
// requesting user's office assignment is rewritten to the wanted office in
// the same transaction.  Deciding a non-pending request returns
// ErrInvalidTransition.
func (r *OfficeChangeRepo) Decide(ctx context.Context, id uint64, decision string, decidedBy uint64, at time.Time) (model.OfficeChangeRequest, error) {
	if !model.ValidOfficeChangeDecision(decision, model.OfficeChangePending) {
		return model.OfficeChangeRequest{}, ErrInvalidTransition
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.OfficeChangeRequest{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		"SELECT "+officeChangeColumns+" FROM office_changes WHERE id=? FOR UPDATE", id)
	oc, err := scanOfficeChange(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OfficeChangeRequest{}, ErrOfficeChangeNotFound
		}
		return model.OfficeChangeRequest{}, err
	}
	if oc.Status != model.OfficeChangePending {
		return model.OfficeChangeRequest{}, ErrInvalidTransition
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE office_changes SET status=?, decided_by=?, decided_at=? WHERE id=?",
		decision, decidedBy, at.UTC(), id); err != nil {
		return model.OfficeChangeRequest{}, err
	}
	if decision == model.OfficeChangeApproved {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM user_offices WHERE user_id=?", oc.UserID); err != nil {
			return model.OfficeChangeRequest{}, err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_offices (user_id, office_id) VALUES (?,?)",
			oc.UserID, oc.WantedOfficeID); err != nil {
			return model.OfficeChangeRequest{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.OfficeChangeRequest{}, err
	}
	oc.Status = decision
	oc.DecidedBy = &decidedBy
	t := at.UTC()
	oc.DecidedAt = &t
	return oc, nil
}
