package models

import "time"

// User is an account with its credential and the single stored document blob.
type User struct {
	ID           int64     `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Document     *string   `bson:"document,omitempty" json:"document"`
	CreatedAt    time.Time `bson:"createdAt" json:"-"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"-"`
}

// HasDocument reports whether a non-empty document blob is stored.
func (u *User) HasDocument() bool {
	return u != nil && u.Document != nil && *u.Document != ""
}
