package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/services"
)

// dateArg принимает как RFC 3339, так и просто дату "2006-01-02".
type dateArg struct {
	time.Time
}

func (d *dateArg) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

type createChallengeArgs struct {
	ClubID         int                      `json:"clubId"`
	Title          string                   `json:"title"`
	Description    string                   `json:"description"`
	Duration       models.ChallengeDuration `json:"duration"`
	Status         models.ChallengeStatus   `json:"status"`
	StartDate      dateArg                  `json:"startDate"`
	EndDate        dateArg                  `json:"endDate"`
	ScoreType      string                   `json:"scoreType"`
	ScoreUnit      *string                  `json:"scoreUnit"`
	IsHigherBetter *bool                    `json:"isHigherBetter"`
}

func (h *GraphQLHandler) challengeOperations() map[string]operation {
	return map[string]operation{
		"createChallenge":             {resolve: h.createChallenge},
		"challenge":                   {resolve: h.challenge, nullable: true},
		"clubChallenges":              {resolve: h.clubChallenges},
		"updateChallengeStatus":       {resolve: h.updateChallengeStatus},
		"rebuildChallengeLeaderboard": {resolve: h.rebuildChallengeLeaderboard},
	}
}

func (h *GraphQLHandler) createChallenge(c *opContext) (interface{}, error) {
	var args createChallengeArgs
	if err := c.bind(&args); err != nil {
		return nil, err
	}
	if err := requireID("clubId", args.ClubID); err != nil {
		return nil, err
	}
	if args.StartDate.IsZero() || args.EndDate.IsZero() {
		return nil, services.ValidationError("startDate and endDate are required")
	}
	return h.svc.Challenges.Create(c.ctx, c.userID(), services.CreateChallengeInput{
		ClubID:         args.ClubID,
		Title:          args.Title,
		Description:    args.Description,
		Duration:       args.Duration,
		Status:         args.Status,
		StartDate:      args.StartDate.Time,
		EndDate:        args.EndDate.Time,
		ScoreType:      args.ScoreType,
		ScoreUnit:      args.ScoreUnit,
		IsHigherBetter: args.IsHigherBetter,
	})
}

func (h *GraphQLHandler) challengeIDArg(c *opContext) (int, error) {
	var args struct {
		ID int `json:"id"`
	}
	if err := c.bind(&args); err != nil {
		return 0, err
	}
	return args.ID, requireID("id", args.ID)
}

func (h *GraphQLHandler) challenge(c *opContext) (interface{}, error) {
	id, err := h.challengeIDArg(c)
	if err != nil {
		return nil, err
	}
	return h.svc.Challenges.GetByID(c.ctx, id)
}

func (h *GraphQLHandler) clubChallenges(c *opContext) (interface{}, error) {
	clubID, err := h.clubIDArg(c)
	if err != nil {
		return nil, err
	}
	return h.svc.Challenges.ListByClub(c.ctx, clubID)
}

func (h *GraphQLHandler) updateChallengeStatus(c *opContext) (interface{}, error) {
	var args struct {
		ID     int                    `json:"id"`
		Status models.ChallengeStatus `json:"status"`
	}
	if err := c.bind(&args); err != nil {
		return nil, err
	}
	if err := requireID("id", args.ID); err != nil {
		return nil, err
	}
	return h.svc.Challenges.UpdateStatus(c.ctx, args.ID, c.userID(), args.Status)
}

func (h *GraphQLHandler) rebuildChallengeLeaderboard(c *opContext) (interface{}, error) {
	id, err := h.challengeIDArg(c)
	if err != nil {
		return nil, err
	}
	return h.svc.Challenges.RebuildLeaderboard(c.ctx, id, c.userID())
}
