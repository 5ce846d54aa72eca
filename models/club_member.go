package models

import "time"

type ClubMember struct {
	ID       int       `json:"id" db:"id"`
	ClubID   int       `json:"clubId" db:"club_id"`
	UserID   int       `json:"userId" db:"user_id"`
	IsAdmin  bool      `json:"isAdmin" db:"is_admin"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
}
