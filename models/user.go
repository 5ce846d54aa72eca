package models

import "time"

type User struct {
	ID                int       `json:"id" db:"id"`
	Email             string    `json:"email" db:"email"`
	PasswordHash      string    `json:"-" db:"password_hash"`
	FirstName         string    `json:"firstName" db:"first_name"`
	LastName          string    `json:"lastName" db:"last_name"`
	ProfilePictureURL *string   `json:"profilePictureUrl,omitempty" db:"profile_picture_url"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// DisplayName is the name shown on leaderboards.
func (u *User) DisplayName() string {
	if u == nil {
		return "Unknown User"
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
