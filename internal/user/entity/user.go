package entity

import "time"

// User represents an account row in the `users` table. Username and FullName
// stay NULL until the user completes their profile on first login.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Username  *string   `db:"username" json:"username,omitempty"`
	FullName  *string   `db:"full_name" json:"full_name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileComplete reports whether the one-time profile step has been done.
func (u *User) ProfileComplete() bool {
	return u.Username != nil && *u.Username != ""
}
