package models

import "time"

type ChallengeEntry struct {
	ID          int       `json:"id" db:"id"`
	ChallengeID int       `json:"challengeId" db:"challenge_id"`
	UserID      int       `json:"userId" db:"user_id"`
	Score       string    `json:"score" db:"score"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
