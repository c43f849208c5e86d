package api

import (
	"github.com/garnizeh/hnjobs/internal/ai"
	"github.com/garnizeh/hnjobs/internal/config"
	"github.com/garnizeh/hnjobs/pkg/repository"
	"github.com/gorilla/mux"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, repo *repository.Repository, queue Enqueuer, processor *ai.Processor, engine *ai.Engine) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(repo.Admin, cfg.JWTSecret, cfg.TokenDuration)
	storiesHandler := NewStoriesHandler(repo.Story, repo.Comment)
	commentsHandler := NewCommentsHandler(repo.Comment)

	// Open endpoints: reads and inserts are public
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	r.HandleFunc("/v1/stories", storiesHandler.CreateStory).Methods("POST")
	r.HandleFunc("/v1/stories/{id:[0-9]+}", storiesHandler.GetStory).Methods("GET")
	r.HandleFunc("/v1/stories/{id:[0-9]+}/comments", storiesHandler.ListStoryComments).Methods("GET")
	r.HandleFunc("/v1/comments", commentsHandler.CreateComment).Methods("POST")
	r.HandleFunc("/v1/comments", commentsHandler.GetComment).Methods("GET").Queries("hn_id", "{hn_id}")
	r.HandleFunc("/v1/jobs", storiesHandler.JobsByMonth).Methods("GET")

	// Admin routes: every update or processing trigger requires a token
	adminV1 := r.PathPrefix("/v1/admin").Subrouter()
	adminV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	authV1 := r.PathPrefix("/v1/auth").Subrouter()
	authV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	adminHandler := NewAdminHandler(repo.Comment, repo.Schema, queue, processor, engine)
	adminV1.HandleFunc("/sync/{hnID:[0-9]+}", adminHandler.SyncThread).Methods("POST")
	adminV1.HandleFunc("/process", adminHandler.ProcessPending).Methods("POST")
	adminV1.HandleFunc("/comments/{hnID:[0-9]+}/process", adminHandler.ProcessComment).Methods("POST")
	adminV1.HandleFunc("/comments/{id:[0-9]+}/status", adminHandler.UpdateStatus).Methods("PUT")
	adminV1.HandleFunc("/schemas", adminHandler.ListSchemas).Methods("GET")
	adminV1.HandleFunc("/schemas", adminHandler.CreateOrUpdateSchema).Methods("PUT")
	adminV1.HandleFunc("/schemas/{version}", adminHandler.GetSchema).Methods("GET")
	adminV1.HandleFunc("/schemas/reload", adminHandler.ReloadSchemas).Methods("POST")

	return r
}
