package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/club-challenges/leaderboard"
	"github.com/Dosada05/club-challenges/middleware"
	"github.com/Dosada05/club-challenges/services"
)

type WebSocketHandler struct {
	hub              *leaderboard.Hub
	challengeService services.ChallengeService
	upgrader         websocket.Upgrader
	logger           *slog.Logger
}

// NewWebSocketHandler принимает соединения только с origin из allowedOrigins.
// Запросы без заголовка Origin (не браузерные клиенты) пропускаются.
func NewWebSocketHandler(hub *leaderboard.Hub, cs services.ChallengeService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &WebSocketHandler{
		hub:              hub,
		challengeService: cs,
		logger:           logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// ServeWs подписывает клиента на обновления лидерборда челленджа.
// Клиент подключается к /ws/challenges/{challengeID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.GetUserIDFromContext(r.Context()); err != nil {
		errorResponse(w, r, h.logger, http.StatusUnauthorized, services.ErrUnauthenticated.Error())
		return
	}
	challengeID, err := getIDFromURL(r, "challengeID")
	if err != nil {
		errorResponse(w, r, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.challengeService.GetByID(r.Context(), challengeID); err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отправляет клиенту HTTP-ошибку.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.Int("challenge_id", challengeID), slog.Any("error", err))
		return
	}
	h.logger.DebugContext(r.Context(), "websocket connection opened", slog.Int("challenge_id", challengeID))
	h.hub.Serve(conn, challengeID)
}
