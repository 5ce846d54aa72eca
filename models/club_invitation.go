package models

import "time"

type ClubInvitation struct {
	ID         int        `json:"id" db:"id"`
	ClubID     int        `json:"clubId" db:"club_id"`
	UserID     int        `json:"userId" db:"user_id"`
	InvitedBy  int        `json:"invitedBy" db:"invited_by"`
	InvitedAt  time.Time  `json:"invitedAt" db:"invited_at"`
	Accepted   bool       `json:"accepted" db:"accepted"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty" db:"accepted_at"`
}
