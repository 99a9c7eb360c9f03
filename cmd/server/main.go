package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/talentlens/backend/internal/audit"
	"github.com/talentlens/backend/internal/auth"
	"github.com/talentlens/backend/internal/database"
	"github.com/talentlens/backend/internal/middleware"
	"github.com/talentlens/backend/internal/psychometrics"
	"github.com/talentlens/backend/internal/review"
)

func main() {
	// .env is optional; real deployments set the environment directly
	godotenv.Load()

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize services
	store := psychometrics.NewStore(db)
	service := psychometrics.NewService(store)
	advisor := review.NewAdvisor()

	authHandler := auth.NewHandler(db)
	statsHandler := psychometrics.NewHandler(service)
	auditHandler := audit.NewHandler(service)
	reviewHandler := review.NewHandler(advisor, service)

	// Recurring audit
	scheduler := audit.New(service)
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/items/{id}/statistics", statsHandler.GetItemStatistics).Methods("GET")
	protected.HandleFunc("/items/{id}/recalculate", statsHandler.RecalculateItem).Methods("POST")
	protected.HandleFunc("/items/{id}/status", statsHandler.OverrideStatus).Methods("POST")
	protected.HandleFunc("/items/{id}/advice", reviewHandler.GetAdvice).Methods("POST")
	protected.HandleFunc("/items/review", statsHandler.GetReviewQueue).Methods("GET")
	protected.HandleFunc("/competencies/{id}/reliability", statsHandler.GetCompetencyReliability).Methods("GET")
	protected.HandleFunc("/traits/reliability", statsHandler.GetTraitReliability).Methods("GET")
	protected.HandleFunc("/audit/run", auditHandler.TriggerRun).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
