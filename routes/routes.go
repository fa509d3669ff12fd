package routes

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Dosada05/mahjong-scorebook/docs"
	"github.com/Dosada05/mahjong-scorebook/handlers"
	"github.com/Dosada05/mahjong-scorebook/middleware"
)

type Options struct {
	AllowedOrigins []string
	// Импортов в минуту с одного IP
	ImportRateLimit int
	Logger          *slog.Logger
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	gameHandler *handlers.GameHandler,
	shareHandler *handlers.ShareHandler,
	healthHandler *handlers.HealthHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	router.Get("/healthz", healthHandler.Check)

	// Swagger UI поверх встроенного openapi.json
	router.Route("/swagger", func(r chi.Router) {
		r.Get("/openapi.json", docs.Handler)
		r.Get("/*", httpSwagger.Handler(httpSwagger.URL("/swagger/openapi.json")))
	})

	router.Route("/games", func(r chi.Router) {
		r.Post("/", gameHandler.StartGame)
		r.Get("/", gameHandler.ListGames)
		r.Delete("/", gameHandler.ClearAll)
		r.Get("/current", gameHandler.GetCurrentGame)

		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/", gameHandler.GetGame)
			r.Delete("/", gameHandler.DeleteGame)
			r.Post("/suspend", gameHandler.SuspendGame)
			r.Post("/finish", gameHandler.FinishGame)
			r.Post("/abandon", gameHandler.AbandonGame)

			r.Post("/rounds", gameHandler.RecordRound)
			r.Delete("/rounds/{roundIndex}", gameHandler.DeleteRound)

			r.Post("/chips", gameHandler.RecordChips)
			r.Delete("/chips", gameHandler.DeleteChips)

			r.Get("/share", shareHandler.Export)
		})
	})

	// Импорт кодов ограничен по IP
	router.Group(func(r chi.Router) {
		if opts.ImportRateLimit > 0 {
			r.Use(httprate.LimitByIP(opts.ImportRateLimit, time.Minute))
		}
		r.Post("/imports", shareHandler.Import)
	})
}
