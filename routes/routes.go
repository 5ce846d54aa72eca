package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/club-challenges/docs"
	"github.com/Dosada05/club-challenges/handlers"
	"github.com/Dosada05/club-challenges/metrics"
)

type Options struct {
	// Identify определяет пользователя запроса (middleware.Identify).
	Identify       func(http.Handler) http.Handler
	AllowedOrigins []string
	Metrics        *metrics.Metrics
}

func SetupRoutes(
	router chi.Router,
	graphQLHandler *handlers.GraphQLHandler,
	uploadHandler *handlers.UploadHandler,
	webSocketHandler *handlers.WebSocketHandler,
	opts Options,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Все, что ниже, видит пользователя запроса. Доступ решают сами обработчики.
	router.Group(func(r chi.Router) {
		if opts.Identify != nil {
			r.Use(opts.Identify)
		}

		r.Method(http.MethodPost, "/graphql", graphQLHandler)

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/me/avatar", uploadHandler.UploadAvatar)
			r.Post("/clubs/{clubID}/{kind}", uploadHandler.UploadClubImage)
		})

		r.Get("/ws/challenges/{challengeID}", webSocketHandler.ServeWs)
	})
}
