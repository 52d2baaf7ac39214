// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a registered user. PasswordHash never leaves the server.
type Account struct {
	ID             string    `db:"id" json:"_id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Photo          string    `db:"photo" json:"photo"`
	Phone          string    `db:"phone" json:"phone"`
	Bio            string    `db:"bio" json:"bio"`
	Group          string    `db:"user_group" json:"group"`
	Role           string    `db:"role" json:"role"`
	Approved       bool      `db:"approved" json:"approved"`
	EmailConfirmed bool      `db:"email_confirmed" json:"emailConfirmed"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// ProfileUpdate carries the user-editable profile fields. Empty strings keep
// the stored value.
type ProfileUpdate struct {
	Name  string
	Phone string
	Bio   string
	Photo string
}

// Apply returns a copy of a with the non-empty fields of u applied.
func (u ProfileUpdate) Apply(a Account) Account {
	if u.Name != "" {
		a.Name = u.Name
	}
	if u.Phone != "" {
		a.Phone = u.Phone
	}
	if u.Bio != "" {
		a.Bio = u.Bio
	}
	if u.Photo != "" {
		a.Photo = u.Photo
	}
	return a
}
