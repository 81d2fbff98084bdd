package server

import (
	"net/http"

	"github.com/donok1/wedding-quiz/internal/config"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
)

type Server struct {
	store     store.Store
	rooms     store.Subscriber
	questions []string
	cfg       config.Config
	clock     clockwork.Clock
	ws        *wsHub
}

type Option func(*Server)

// WithClock replaces the clock used to judge heartbeats in derived views.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// New builds the room service over st. Stores without native change
// subscriptions get an in-process broker, which is enough for a single
// instance.
func New(st store.Store, questions []string, cfg config.Config, opts ...Option) *Server {
	sub, ok := st.(store.Subscriber)
	if !ok {
		notifying := store.WithNotifier(st, store.NewBroker())
		st, sub = notifying, notifying
	}
	s := &Server{
		store:     st,
		rooms:     sub,
		questions: questions,
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
		ws:        newWSHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/", s.handleHome)
	router.GET("/healthz", s.handleHealth)
	router.GET("/display/:code", s.handleDisplayView)
	router.GET("/ws/rooms/:code", s.handleWebsocket)

	api := router.Group("/api")
	api.GET("/questions", s.handleQuestions)
	api.POST("/rooms", s.handleNewRoom)
	api.GET("/rooms/:code", s.handleGetRoom)
	api.POST("/rooms/:code", s.handleCreateRoom)
	api.PUT("/rooms/:code", s.handleWriteRoom)
	api.PATCH("/rooms/:code", s.handlePatchRoom)
	api.GET("/rooms/:code/view", s.handleRoomView)
	api.GET("/rooms/:code/qr", s.handleRoomQR)

	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", clientHeader},
	}).Handler(router)
}

// Close detaches every websocket client and store subscription.
func (s *Server) Close() {
	s.ws.CloseAll()
}
