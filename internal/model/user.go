package model

import "time"

// Role names stored on the users table and embedded in JWT claims.
// They mirror the four profiles the application distinguishes:
// regular requesters, office administrators, security guards and
// the global administrator.
const (
	RoleUser        = "USER"
	RoleAdminOffice = "ADMIN_OFFICE"
	RoleVigilante   = "VIGILANTE"
	RoleAdminGlobal = "ADMIN_GLOBAL"
)

// KnownRole reports whether the given string is one of the fixed role names.
func KnownRole(r string) bool {
	switch r {
	case RoleUser, RoleAdminOffice, RoleVigilante, RoleAdminGlobal:
		return true
	}
	return false
}

// User represents an application account as stored in the `users` table.
// Office assignment is server-authoritative: the set of offices a user
// (or guard) belongs to lives in the user_offices join table, never in
// client-side state.
//
// Fields:
//  ID             – primary key identifier.
//  Email          – unique email address.
//  PasswordHash   – bcrypt hashed password.
//  Name           – display name.
//  EmployeeNumber – badge number, expected to match ^M\d+$.
//  Role           – one of the Role* constants.
//  IsActive       – whether the account may log in.
//  Offices        – assigned office IDs (loaded from user_offices).
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
	ID             uint64
	Email          string
	PasswordHash   string
	Name           string
	EmployeeNumber string
	Role           string
	IsActive       bool
	Offices        []uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is persisted.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
