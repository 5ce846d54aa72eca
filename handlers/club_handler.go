package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/club-challenges/middleware"
	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/services"
)

type clubIDArgs struct {
	ClubID int `json:"clubId"`
}

func (h *GraphQLHandler) clubOperations() map[string]operation {
	return map[string]operation{
		"createClub":     {resolve: h.createClub},
		"club":           {resolve: h.club, nullable: true},
		"clubs":          {resolve: h.clubs},
		"myClubs":        {resolve: h.myClubs},
		"joinClub":       {resolve: h.joinClub},
		"leaveClub":      {resolve: h.leaveClub},
		"getClubMembers": {resolve: h.getClubMembers},
	}
}

func (h *GraphQLHandler) createClub(c *opContext) (interface{}, error) {
	var input services.CreateClubInput
	if err := c.bind(&input); err != nil {
		return nil, err
	}
	return h.svc.Clubs.Create(c.ctx, c.userID(), input)
}

func (h *GraphQLHandler) club(c *opContext) (interface{}, error) {
	var args struct {
		ID int `json:"id"`
	}
	if err := c.bind(&args); err != nil {
		return nil, err
	}
	if err := requireID("id", args.ID); err != nil {
		return nil, err
	}
	return h.svc.Clubs.GetByID(c.ctx, args.ID)
}

func (h *GraphQLHandler) clubs(c *opContext) (interface{}, error) {
	return h.svc.Clubs.List(c.ctx)
}

func (h *GraphQLHandler) myClubs(c *opContext) (interface{}, error) {
	return h.svc.Clubs.ListForUser(c.ctx, c.userID())
}

func (h *GraphQLHandler) clubIDArg(c *opContext) (int, error) {
	var args clubIDArgs
	if err := c.bind(&args); err != nil {
		return 0, err
	}
	return args.ClubID, requireID("clubId", args.ClubID)
}

func (h *GraphQLHandler) joinClub(c *opContext) (interface{}, error) {
	clubID, err := h.clubIDArg(c)
	if err != nil {
		return nil, err
	}
	return h.svc.Memberships.Join(c.ctx, clubID, c.userID())
}

func (h *GraphQLHandler) leaveClub(c *opContext) (interface{}, error) {
	clubID, err := h.clubIDArg(c)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Memberships.Leave(c.ctx, clubID, c.userID()); err != nil {
		return nil, err
	}
	return true, nil
}

func (h *GraphQLHandler) getClubMembers(c *opContext) (interface{}, error) {
	clubID, err := h.clubIDArg(c)
	if err != nil {
		return nil, err
	}
	return h.svc.Memberships.ListMembers(c.ctx, clubID)
}

// UploadClubImage заменяет логотип или обложку клуба. Доступно только админам клуба.
func (h *UploadHandler) UploadClubImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, h.logger, http.StatusUnauthorized, services.ErrUnauthenticated.Error())
		return
	}
	clubID, err := getIDFromURL(r, "clubID")
	if err != nil {
		errorResponse(w, r, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	kind := models.ClubImageKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		errorResponse(w, r, h.logger, http.StatusNotFound, "the requested resource could not be found")
		return
	}

	file, contentType, err := formImage(w, r)
	if err != nil {
		errorResponse(w, r, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	club, err := h.clubService.UploadImage(r.Context(), clubID, userID, kind, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"club": club}, nil); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write response", slog.Any("error", err))
	}
}
