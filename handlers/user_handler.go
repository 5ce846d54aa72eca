package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/Dosada05/club-challenges/middleware"
	"github.com/Dosada05/club-challenges/services"
	"github.com/Dosada05/club-challenges/storage"
)

func (h *GraphQLHandler) userOperations() map[string]operation {
	return map[string]operation{
		"users":         {resolve: h.users},
		"user":          {resolve: h.user, nullable: true},
		"userByEmail":   {resolve: h.userByEmail, nullable: true},
		"updateProfile": {resolve: h.updateProfile},
	}
}

func (h *GraphQLHandler) users(c *opContext) (interface{}, error) {
	return h.svc.Users.List(c.ctx)
}

func (h *GraphQLHandler) user(c *opContext) (interface{}, error) {
	var args struct {
		ID int `json:"id"`
	}
	if err := c.bind(&args); err != nil {
		return nil, err
	}
	if err := requireID("id", args.ID); err != nil {
		return nil, err
	}
	return h.svc.Users.GetByID(c.ctx, args.ID)
}

func (h *GraphQLHandler) userByEmail(c *opContext) (interface{}, error) {
	var args struct {
		Email string `json:"email"`
	}
	if err := c.bind(&args); err != nil {
		return nil, err
	}
	if args.Email == "" {
		return nil, services.ValidationError("email is required")
	}
	return h.svc.Users.GetByEmail(c.ctx, args.Email)
}

func (h *GraphQLHandler) updateProfile(c *opContext) (interface{}, error) {
	var input services.UpdateProfileInput
	if err := c.bind(&input); err != nil {
		return nil, err
	}
	if input.FirstName == nil && input.LastName == nil && input.ProfilePictureURL == nil {
		return nil, services.ValidationError("no fields provided for update")
	}
	return h.svc.Users.UpdateProfile(c.ctx, c.userID(), input)
}

// UploadHandler принимает multipart-загрузки изображений (поле "image").
type UploadHandler struct {
	userService services.UserService
	clubService services.ClubService
	logger      *slog.Logger
}

func NewUploadHandler(us services.UserService, cs services.ClubService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		userService: us,
		clubService: cs,
		logger:      logger,
	}
}

// UploadAvatar обновляет фото профиля текущего пользователя.
func (h *UploadHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, h.logger, http.StatusUnauthorized, services.ErrUnauthenticated.Error())
		return
	}

	file, contentType, err := formImage(w, r)
	if err != nil {
		errorResponse(w, r, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	user, err := h.userService.UploadAvatar(r.Context(), userID, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write response", slog.Any("error", err))
	}
}

func formImage(w http.ResponseWriter, r *http.Request) (multipart.File, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+1024*1024)
	if err := r.ParseMultipartForm(storage.MaxImageSize); err != nil {
		return nil, "", errors.New("request must be multipart/form-data no larger than 5MB")
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", errors.New(`form field "image" is required`)
	}
	if header.Size > storage.MaxImageSize {
		file.Close()
		return nil, "", errors.New("image must not be larger than 5MB")
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		file.Close()
		return nil, "", errors.New("content type required")
	}
	return file, contentType, nil
}
