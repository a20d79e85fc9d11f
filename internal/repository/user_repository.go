package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/VRCarlos21/QrSanfer/internal/model"
	"github.com/VRCarlos21/QrSanfer/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = "id,email,password_hash,name,employee_number,role,is_active,created_at,updated_at"

// Create inserts a user and returns its ID.  The email is normalized to
// lower case before insertion; a duplicate email maps to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, name, employeeNumber, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, employee_number, role) VALUES (?,?,?,?,?)",
		email, hash, name, employeeNumber, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *UserRepo) scanRow(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.EmployeeNumber,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByEmail fetches a user by normalized email, offices included.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := r.scanRow(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if err != nil {
		return u, err
	}
	u.Offices, err = r.Offices(ctx, u.ID)
	return u, err
}

// GetByID fetches a user by id, offices included.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := r.scanRow(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if err != nil {
		return u, err
	}
	u.Offices, err = r.Offices(ctx, u.ID)
	return u, err
}

// List returns all users ordered by creation time, offices included.  The
// account control screen shows the full directory, so no paging is applied.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.EmployeeNumber,
			&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Offices = []uint64{}
		index[u.ID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return users, nil
	}
	orows, err := r.DB.QueryContext(ctx, "SELECT user_id, office_id FROM user_offices")
	if err != nil {
		return nil, err
	}
	defer orows.Close()
	for orows.Next() {
		var uid, oid uint64
		if err := orows.Scan(&uid, &oid); err != nil {
			return nil, err
		}
		if i, ok := index[uid]; ok {
			users[i].Offices = append(users[i].Offices, oid)
		}
	}
	return users, orows.Err()
}

// Offices returns the office IDs assigned to a user.  An empty slice means
// the user has not been assigned yet (the original app kept this flag in
// local storage; here it is authoritative).
func (r *UserRepo) Offices(ctx context.Context, userID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT office_id FROM user_offices WHERE user_id=? ORDER BY office_id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetOffices replaces the user's office assignment with the given set.
func (r *UserRepo) SetOffices(ctx context.Context, userID uint64, officeIDs []uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_offices WHERE user_id=?", userID); err != nil {
		return err
	}
	for _, oid := range officeIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_offices (user_id, office_id) VALUES (?,?)", userID, oid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateProfile updates the editable profile fields of a user.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email, role, employeeNumber string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, role=?, employee_number=? WHERE id=?",
		name, email, role, employeeNumber, id)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrEmailExists
	}
	return err
}

// SetActive flips the account's active flag.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=? WHERE id=?", active, id)
	return err
}

// Delete removes the account row and its office assignment.  Permits and
// readings reference users by value (name, employee number) and are kept.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_offices WHERE user_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id); err != nil {
		return err
	}
	return tx.Commit()
}

