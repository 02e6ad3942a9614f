package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/afanty2021/DashPlayer/internal/config"
	"github.com/afanty2021/DashPlayer/internal/history"
	"github.com/afanty2021/DashPlayer/internal/player"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

// historyStore is the slice of the history layer the API reads and writes.
// *history.SQLiteStore satisfies it.
type historyStore interface {
	GetProgress(ctx context.Context, file string) (*history.WatchProgress, error)
	ListRecent(ctx context.Context, limit int) ([]history.WatchProgress, error)
	AddClip(ctx context.Context, srtHash string, sentenceIndex int, text string) (*history.FavoriteClip, error)
	RemoveClip(ctx context.Context, id string) error
	ListClips(ctx context.Context, srtHash string) ([]history.FavoriteClip, error)
}

type Server struct {
	controller *player.Controller
	store      historyStore
	settings   runtimeSettingsStore
	apply      runtimeSettingsApplier

	router *chi.Mux
	server *http.Server
}

type Option func(*Server)

func WithHistoryStore(store historyStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func NewServer(controller *player.Controller, opts ...Option) *Server {
	s := &Server{
		controller: controller,
		router:     chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.router.Use(chimw.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/player", func(r chi.Router) {
			r.Post("/open", s.handleOpen)
			r.Post("/subtitle", s.handleSubtitle)
			r.Post("/time", s.handleTime)
			r.Post("/duration", s.handleDuration)
			r.Post("/playing", s.handlePlaying)
			r.Post("/seek", s.handleSeek)
			r.Post("/mode", s.handleMode)
			r.Get("/state", s.handleState)
			r.Get("/stream", s.handleStateStream)
		})

		r.Get("/history", s.handleHistory)

		r.Route("/clips", func(r chi.Router) {
			r.Get("/", s.handleListClips)
			r.Post("/", s.handleAddClip)
			r.Delete("/{id}", s.handleRemoveClip)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})
}
