package handlers

import (
	"github.com/Dosada05/club-challenges/services"
)

type challengeIDArgs struct {
	ChallengeID int `json:"challengeId"`
}

func (h *GraphQLHandler) entryOperations() map[string]operation {
	return map[string]operation{
		"submitChallengeEntry": {resolve: h.submitChallengeEntry},
		"challengeEntries":     {resolve: h.challengeEntries},
		"userChallengeEntries": {resolve: h.userChallengeEntries},
		"updateChallengeEntry": {resolve: h.updateChallengeEntry},
	}
}

func (h *GraphQLHandler) submitChallengeEntry(c *opContext) (interface{}, error) {
	var input services.SubmitEntryInput
	if err := c.bind(&input); err != nil {
		return nil, err
	}
	if err := requireID("challengeId", input.ChallengeID); err != nil {
		return nil, err
	}
	return h.svc.Entries.Submit(c.ctx, c.userID(), input)
}

func (h *GraphQLHandler) challengeEntries(c *opContext) (interface{}, error) {
	var args challengeIDArgs
	if err := c.bind(&args); err != nil {
		return nil, err
	}
	if err := requireID("challengeId", args.ChallengeID); err != nil {
		return nil, err
	}
	return h.svc.Entries.ListByChallenge(c.ctx, args.ChallengeID)
}

func (h *GraphQLHandler) userChallengeEntries(c *opContext) (interface{}, error) {
	var args challengeIDArgs
	if err := c.bind(&args); err != nil {
		return nil, err
	}
	if err := requireID("challengeId", args.ChallengeID); err != nil {
		return nil, err
	}
	return h.svc.Entries.ListByChallengeAndUser(c.ctx, args.ChallengeID, c.userID())
}

// updateChallengeEntry не пересчитывает topScores, для этого есть rebuildChallengeLeaderboard.
func (h *GraphQLHandler) updateChallengeEntry(c *opContext) (interface{}, error) {
	var args struct {
		ID int `json:"id"`
		services.UpdateEntryInput
	}
	if err := c.bind(&args); err != nil {
		return nil, err
	}
	if err := requireID("id", args.ID); err != nil {
		return nil, err
	}
	if args.Score == nil && args.Notes == nil {
		return nil, services.ValidationError("no fields provided for update")
	}
	return h.svc.Entries.Update(c.ctx, args.ID, c.userID(), args.UpdateEntryInput)
}
