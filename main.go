package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/NikoDola/hendo-backend/internal/auth"
	"github.com/NikoDola/hendo-backend/internal/config"
	"github.com/NikoDola/hendo-backend/internal/db"
	"github.com/NikoDola/hendo-backend/internal/identity"
	"github.com/NikoDola/hendo-backend/internal/middleware"
	"github.com/NikoDola/hendo-backend/internal/oauth"
	"github.com/NikoDola/hendo-backend/internal/session"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	db.Connect(cfg.DatabaseURL)
	auth.Init()

	resolver := identity.NewResolver(cfg.AdminEmails)
	store := auth.NewStore(db.DB)
	sessions := session.NewManager([]byte(cfg.SessionSecret), store, store, resolver, cfg.SecureCookies)
	svc := auth.NewService(store, resolver)

	authHandler := auth.NewHandler(svc, sessions)
	oauthHandler := oauth.NewHandler(oauth.NewClient(cfg.OAuth), svc, sessions, cfg.SecureCookies)

	throttle := middleware.ThrottleMiddleware(rate.Limit(1), 10)

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	r.Get("/", RootHandler)

	r.Mount("/auth", authHandler.SetupRoutes(throttle))
	r.Mount("/oauth", oauthHandler.SetupRoutes())

	log.Printf("Server listening on port :%s...", cfg.Port)
	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
