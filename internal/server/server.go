// Package server provides the Testimator HTTP API server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/config"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/interview"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/session"
	testimatorslack "github.com/Realist2022/Interview-AI-Testimator-backend/internal/slack"
	testimatortelegram "github.com/Realist2022/Interview-AI-Testimator-backend/internal/telegram"
)

// Server is the Testimator HTTP API server.
type Server struct {
	config      *config.Config
	store       *session.Store
	engine      *interview.Engine
	router      chi.Router
	slackBot    *testimatorslack.Bot    // nil if Slack is not configured
	telegramBot *testimatortelegram.Bot // nil if Telegram is not configured
}

// New creates a Server over the given store and engine. Chat bots are
// wired in when their tokens are configured.
func New(cfg *config.Config, store *session.Store, eng *interview.Engine) (*Server, error) {
	s := &Server{
		config: cfg,
		store:  store,
		engine: eng,
	}

	s.router = s.buildRouter()

	if cfg.SlackEnabled() {
		s.slackBot = testimatorslack.NewBot(cfg.SlackBotToken, cfg.SlackAppToken, eng)
		log.Println("Slack bot enabled (Socket Mode)")
	}

	if cfg.TelegramEnabled() {
		tgBot, err := testimatortelegram.NewBot(cfg.TelegramBotToken, eng)
		if err != nil {
			log.Printf("Warning: failed to initialize Telegram bot: %v", err)
		} else {
			s.telegramBot = tgBot
			log.Println("Telegram bot enabled (long polling)")
		}
	}

	return s, nil
}

// Start starts the HTTP server, the session reaper, and any configured
// chat bots. It blocks until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.store.StartReaper(ctx, time.Minute)

	if s.slackBot != nil {
		go func() {
			if err := s.slackBot.Run(ctx); err != nil {
				log.Printf("Slack bot error: %v", err)
			}
		}()
	}
	if s.telegramBot != nil {
		go func() {
			if err := s.telegramBot.Run(ctx); err != nil {
				log.Printf("Telegram bot error: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    s.config.ServerAddr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Testimator server listening on %s", s.config.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/testimator", s.handleTestimator)
	})

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// --- Request/Response types ---

type testimatorRequest struct {
	SessionID    string `json:"sessionId"`
	JobTitle     string `json:"jobTitle"`
	UserResponse string `json:"userResponse,omitempty"`
}

type testimatorResponse struct {
	Response       string         `json:"response"`
	History        []session.Turn `json:"history"`
	InterviewStage session.Stage  `json:"interviewStage"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (s *Server) handleTestimator(w http.ResponseWriter, r *http.Request) {
	var req testimatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if req.JobTitle == "" {
		writeError(w, http.StatusBadRequest, "jobTitle is required")
		return
	}

	ex, err := s.engine.Converse(r.Context(), req.SessionID, req.JobTitle, req.UserResponse)
	if err != nil {
		if errors.Is(err, interview.ErrGeneration) {
			writeError(w, http.StatusInternalServerError, "failed to generate interviewer response")
		} else {
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		log.Printf("Error processing turn for session %s: %v", req.SessionID, err)
		return
	}

	writeJSON(w, http.StatusOK, testimatorResponse{
		Response:       ex.Reply,
		History:        ex.History,
		InterviewStage: ex.Stage,
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
