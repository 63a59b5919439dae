package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	api "github.com/psicodata/scoring-engine/internal/api/http"
	auth "github.com/psicodata/scoring-engine/internal/auth/middleware"
	"github.com/psicodata/scoring-engine/internal/catalog"
	"github.com/psicodata/scoring-engine/internal/config"
	"github.com/psicodata/scoring-engine/internal/db"
	"github.com/psicodata/scoring-engine/internal/rbac"
	"github.com/psicodata/scoring-engine/internal/remote"
	"github.com/psicodata/scoring-engine/internal/runner"
)

func main() {
	cfg := config.FromEnv()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Mode == config.ModeOffline {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db open failed")
	}
	store := catalog.NewStore(dbh)

	// --- Remote scorer (optional) ---
	var scorer runner.RemoteScorer
	if cfg.RemoteBaseURL != "" {
		scorer = remote.New(remote.Config{
			BaseURL:      cfg.RemoteBaseURL,
			TokenURL:     cfg.RemoteTokenURL,
			ClientID:     cfg.RemoteClientID,
			ClientSecret: cfg.RemoteClientSecret,
			Timeout:      cfg.RemoteTimeout,
		})
		log.Info().Str("url", cfg.RemoteBaseURL).Msg("remote scorer enabled")
	}
	rn := runner.New(store, store, scorer, log)

	// --- Auth (local JWT for offline/dev) ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		users := map[string]auth.Credential{
			cfg.AdminUser: {PassHash: cfg.AdminPassHash, Role: "admin"},
		}
		r.Post("/auth/login", auth.LoginHandler(authSvc, users))
	}

	// Protected API (JWT -> role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("catalog:view")).
			Get("/tests/{testID}/scales", api.ListScalesHandler(store))

		pr.With(rbac.Require("attempt:create")).
			Post("/attempts", api.CreateAttemptHandler(store))
		pr.With(rbac.Require("answers:save")).
			Post("/attempts/{attemptID}/answers", api.SaveAnswersHandler(store))
		pr.With(rbac.Require("answers:save")).
			Post("/attempts/{attemptID}/finish", api.FinishAttemptHandler(store))

		pr.With(rbac.Require("attempt:score")).
			Post("/attempts/{attemptID}/score", api.ScoreAttemptHandler(store, rn))
		pr.With(rbac.Require("attempt:view")).
			Get("/attempts/{attemptID}/score", api.GetAttemptScoreHandler(store, rn))
		pr.With(rbac.RequireAny("attempt:view", "attempt:export")).
			Get("/attempts/{attemptID}/payload", api.AttemptPayloadHandler(store, rn))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("mode", string(cfg.Mode)).
		Str("db", cfg.DBDriver).
		Msg("listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
