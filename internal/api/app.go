package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/alumninet/chatserver/internal/config"
	"github.com/alumninet/chatserver/internal/database"
	"github.com/alumninet/chatserver/internal/server"
	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
)

type AlumniChatApp struct {
	log            *log.Logger
	db             database.AlumniRepository
	mux            *http.Server
	cs             *server.ChatServer
	signingKey     []byte
	allowedOrigins []string

	generateMeetingSlug func() (string, error)
}

func NewAlumniChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.AlumniRepository, cfg *config.Config) *AlumniChatApp {
	s := &AlumniChatApp{
		log:                 logger,
		db:                  db,
		cs:                  cs,
		signingKey:          cfg.SigningKey,
		allowedOrigins:      cfg.AllowedOrigins,
		generateMeetingSlug: shortid.Generate,
	}

	mux.HandleFunc("GET /api/health", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("GET /api/rooms", s.authMiddleware(s.getRooms))
	mux.HandleFunc("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.HandleFunc("GET /api/meeting-requests", s.authMiddleware(s.getMeetingRequests))
	mux.HandleFunc("POST /api/meeting-requests/approve", s.authMiddleware(s.approveMeetingRequest))
	mux.HandleFunc("POST /api/meeting-requests/reject", s.authMiddleware(s.rejectMeetingRequest))
	mux.HandleFunc("GET /api/streak", s.authMiddleware(s.getStreak))
	mux.HandleFunc("GET /api/activity", s.authMiddleware(s.getActivityLog))
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *AlumniChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *AlumniChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
