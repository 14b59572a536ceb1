package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/openqr/qrcode-generator/render"
	"github.com/openqr/qrcode-generator/session"
	"github.com/openqr/qrcode-generator/store"
)

// sessionCookie carries the id of the visitor's generator session.
const sessionCookie = "qrg_session"

// Server holds the dependencies for all HTTP handlers.
type Server struct {
	Sessions *session.Store

	// Encoder and Options serve the stateless /api/qr.png endpoint.
	Encoder        render.Encoder
	Options        render.Options
	MaxInputLength int

	// History is nil when generation history is disabled.
	History      *store.HistoryStore
	HistoryLimit int

	Log       *slog.Logger
	Version   string
	StartTime time.Time
}

// NewRouter returns a fully configured chi router with all routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Log))

	// Form UI
	r.Get("/", s.handleIndex)
	r.Post("/generate", s.handleGenerate)
	r.Get("/download", s.handleDownload)
	r.Post("/reset", s.handleReset)

	// Service
	r.Get("/status", s.handleStatus)
	r.Get("/history", s.handleHistory)

	// Scripted use
	r.Route("/api", func(r chi.Router) {
		r.Use(corsMiddleware)
		r.Get("/state", s.handleAPIState)
		r.Post("/generate", s.handleAPIGenerate)
		r.Get("/qr.png", s.handleQRPNG)
	})

	return gzhttp.GzipHandler(r)
}

// session returns the caller's session, creating a new one if the cookie is
// missing or stale. Only routes that change state call it.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}

	// The session outlives this request, so mounting must not be cut short by it.
	sess, created, err := s.Sessions.GetOrCreate(context.WithoutCancel(r.Context()), id)
	if err != nil {
		return nil, err
	}
	if created {
		s.Log.Info("session started", "session", sess.ID, "remote", r.RemoteAddr)
	}
	s.setSessionCookie(w, sess.ID)
	return sess, nil
}

// existingSession looks up the caller's session without creating one and
// refreshes its cookie when found.
func (s *Server) existingSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	sess, ok := s.Sessions.Get(c.Value)
	if !ok {
		return nil, false
	}
	s.setSessionCookie(w, sess.ID)
	return sess, true
}

// view returns what the caller should see: their session's state, or the
// freshly mounted state when they have none yet.
func (s *Server) view(w http.ResponseWriter, r *http.Request) session.View {
	if sess, ok := s.existingSession(w, r); ok {
		return session.View{
			Snapshot: sess.Generator.Snapshot(),
			Notices:  sess.Notices.Drain(),
		}
	}
	return s.Sessions.Initial(context.WithoutCancel(r.Context()))
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.Sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// --- helpers ----------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

// --- middleware --------------------------------------------------------------

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}
