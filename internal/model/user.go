package model

import "time"

// User represents an application user record as stored in the
// `users` table. Role distinguishes regular drivers from lot
// administrators. Handlers define their own response types with
// JSON tags; these structs mirror the database columns only.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name ("user" or "admin").
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Role names stored in users.role. Route middleware enforces them;
// the allocation core never inspects roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
