package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type ChallengeDuration string

const (
	DurationDaily   ChallengeDuration = "daily"
	DurationWeekly  ChallengeDuration = "weekly"
	DurationMonthly ChallengeDuration = "monthly"
)

func (d ChallengeDuration) Valid() bool {
	switch d {
	case DurationDaily, DurationWeekly, DurationMonthly:
		return true
	}
	return false
}

type ChallengeStatus string

const (
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusCompleted ChallengeStatus = "completed"
	ChallengeStatusArchived  ChallengeStatus = "archived"
)

func (s ChallengeStatus) Valid() bool {
	switch s {
	case ChallengeStatusActive, ChallengeStatusCompleted, ChallengeStatusArchived:
		return true
	}
	return false
}

type Challenge struct {
	ID             int               `json:"id" db:"id"`
	ClubID         int               `json:"clubId" db:"club_id"`
	Title          string            `json:"title" db:"title"`
	Description    string            `json:"description" db:"description"`
	Duration       ChallengeDuration `json:"duration" db:"duration"`
	Status         ChallengeStatus   `json:"status" db:"status"`
	StartDate      time.Time         `json:"startDate" db:"start_date"`
	EndDate        time.Time         `json:"endDate" db:"end_date"`
	CreatedByID    int               `json:"createdById" db:"created_by_id"`
	ScoreType      string            `json:"scoreType" db:"score_type"`
	ScoreUnit      *string           `json:"scoreUnit,omitempty" db:"score_unit"`
	IsHigherBetter bool              `json:"isHigherBetter" db:"is_higher_better"`
	TopScores      TopScores         `json:"topScores" db:"top_scores"`
	CreatedAt      time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time         `json:"updatedAt" db:"updated_at"`
}

// TopScoreEntry is one row of the leaderboard cached on a challenge.
type TopScoreEntry struct {
	EntryID    int       `json:"entryId,omitempty"`
	UserID     int       `json:"userId"`
	UserName   string    `json:"userName"`
	Score      string    `json:"score"`
	AchievedAt time.Time `json:"achievedAt"`
}

// TopScores is stored as a JSON array in the challenges table.
type TopScores []TopScoreEntry

func (ts TopScores) Value() (driver.Value, error) {
	if ts == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal([]TopScoreEntry(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal top scores: %w", err)
	}
	return b, nil
}

func (ts *TopScores) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*ts = TopScores{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for top scores")
	}
	if len(raw) == 0 {
		*ts = TopScores{}
		return nil
	}
	var out []TopScoreEntry
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to unmarshal top scores: %w", err)
	}
	if out == nil {
		out = []TopScoreEntry{}
	}
	*ts = out
	return nil
}

// Clone returns a copy that does not share the backing array.
func (ts TopScores) Clone() TopScores {
	out := make(TopScores, len(ts))
	copy(out, ts)
	return out
}
