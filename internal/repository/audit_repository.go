package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// AuditRepo appends and browses the append-only audit log and per-user
// notifications.  Field-level changes are serialized as a JSON array in a
// single column.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Append inserts one audit entry.
func (r *AuditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	var changes interface{}
	if len(e.Changes) > 0 {
		b, err := json.Marshal(e.Changes)
		if err != nil {
			return err
		}
		changes = string(b)
	}
	const q = `INSERT INTO audit_log
        (action, description, actor_id, actor_email, affected_id, affected_name, changes)
        VALUES (?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, e.Action, e.Description, e.ActorID,
		e.ActorEmail, e.AffectedID, e.AffectedName, changes)
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

// AuditFilter narrows List results.  Zero values mean "no filter".
type AuditFilter struct {
	Action string
	From   time.Time
	To     time.Time
	Limit  int
	Before uint64 // return entries with an ID lower than this, for paging
}

// List returns audit entries newest first.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]model.AuditEntry, error) {
	q := `SELECT id, action, description, actor_id, actor_email, affected_id, affected_name, changes, created_at
          FROM audit_log WHERE 1=1`
	args := make([]interface{}, 0, 5)
	if f.Action != "" {
		q += " AND action=?"
		args = append(args, f.Action)
	}
	if !f.From.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		q += " AND created_at <= ?"
		args = append(args, f.To.UTC())
	}
	if f.Before != 0 {
		q += " AND id < ?"
		args = append(args, f.Before)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var (
			e        model.AuditEntry
			affected sql.NullInt64
			changes  sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Description, &e.ActorID, &e.ActorEmail,
			&affected, &e.AffectedName, &changes, &e.CreatedAt); err != nil {
			return nil, err
		}
		if affected.Valid {
			id := uint64(affected.Int64)
			e.AffectedID = &id
		}
		if changes.Valid && changes.String != "" {
			if err := json.Unmarshal([]byte(changes.String), &e.Changes); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Notify inserts a per-user activity notification.
func (r *AuditRepo) Notify(ctx context.Context, userID uint64, kind, message string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, kind, message) VALUES (?,?,?)",
		userID, kind, message)
	return err
}

// Notifications returns a user's notifications, newest first.
func (r *AuditRepo) Notifications(ctx context.Context, userID uint64) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, kind, message, is_read, created_at
         FROM notifications WHERE user_id=? ORDER BY created_at DESC LIMIT 100`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// MarkNotificationRead flags one notification as read, scoped to its owner.
func (r *AuditRepo) MarkNotificationRead(ctx context.Context, userID, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read=1 WHERE id=? AND user_id=?", id, userID)
	return err
}
