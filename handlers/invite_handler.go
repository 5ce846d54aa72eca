package handlers

func (h *GraphQLHandler) invitationOperations() map[string]operation {
	return map[string]operation{
		"inviteToClub":       {resolve: h.inviteToClub},
		"getClubInvitations": {resolve: h.getClubInvitations},
		"getMyInvitations":   {resolve: h.getMyInvitations},
		"acceptInvitation":   {resolve: h.acceptInvitation},
	}
}

func (h *GraphQLHandler) inviteToClub(c *opContext) (interface{}, error) {
	var args struct {
		ClubID int `json:"clubId"`
		UserID int `json:"userId"`
	}
	if err := c.bind(&args); err != nil {
		return nil, err
	}
	if err := requireID("clubId", args.ClubID); err != nil {
		return nil, err
	}
	if err := requireID("userId", args.UserID); err != nil {
		return nil, err
	}
	return h.svc.Invitations.Invite(c.ctx, args.ClubID, args.UserID, c.userID())
}

func (h *GraphQLHandler) getClubInvitations(c *opContext) (interface{}, error) {
	clubID, err := h.clubIDArg(c)
	if err != nil {
		return nil, err
	}
	return h.svc.Invitations.ListClubInvitations(c.ctx, clubID, c.userID())
}

// getMyInvitations возвращает только непринятые приглашения.
func (h *GraphQLHandler) getMyInvitations(c *opContext) (interface{}, error) {
	return h.svc.Invitations.ListMyInvitations(c.ctx, c.userID())
}

func (h *GraphQLHandler) acceptInvitation(c *opContext) (interface{}, error) {
	var args struct {
		InvitationID int `json:"invitationId"`
	}
	if err := c.bind(&args); err != nil {
		return nil, err
	}
	if err := requireID("invitationId", args.InvitationID); err != nil {
		return nil, err
	}
	if _, err := h.svc.Invitations.Accept(c.ctx, args.InvitationID, c.userID()); err != nil {
		return nil, err
	}
	return true, nil
}
