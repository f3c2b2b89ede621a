package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kitflow/kitflow/internal/auth/kitoauth"
	"github.com/kitflow/kitflow/internal/auth/session"
	"github.com/kitflow/kitflow/internal/config"
	"github.com/kitflow/kitflow/internal/db"
	"github.com/kitflow/kitflow/internal/runlock"
	"github.com/kitflow/kitflow/internal/server/handlers"
)

func main() {
	configPath := flag.String("config", "kitflow.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET is required")
	}
	if cfg.Kit.ClientID == "" || cfg.Kit.ClientSecret == "" {
		log.Fatal("KIT_CLIENT_ID and KIT_CLIENT_SECRET are required")
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	sessions := session.NewStore(database, cfg.SessionSecret)
	locker := runlock.New()

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// OAuth flow
	r.Get("/auth/kit/login", kitoauth.HandleLogin(cfg))
	r.Get("/auth/kit/callback", kitoauth.HandleCallback(cfg, database, sessions))
	r.Post("/auth/logout", handlers.LogoutHandler(sessions))
	r.With(sessions.RequireAccount).Get("/auth/me", handlers.MeHandler())

	// API routes, all session-scoped
	r.Route("/api", func(r chi.Router) {
		r.Use(sessions.RequireAccount)
		r.Get("/health", handlers.HealthHandler())
		r.Get("/account", handlers.AccountHandler(cfg, database))
		r.Post("/sync", handlers.SyncHandler(cfg, database, locker))
		r.Get("/sync/status", handlers.SyncStatusHandler())
		r.Post("/journey/analyze", handlers.AnalyzeHandler(database, locker))
		r.Get("/journey/flows", handlers.FlowsHandler(database))
		r.Get("/dashboard/metrics", handlers.MetricsHandler(database))
	})

	log.Printf("kitflow starting on http://%s", cfg.Addr())
	if err := http.ListenAndServe(cfg.Addr(), r); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
