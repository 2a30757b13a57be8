package handlers

import (
	"time"

	"messagely/internal/logger"
	"messagely/internal/metrics"
	"messagely/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger

	metrics  *metrics.Collector
	gatherer prometheus.Gatherer

	inboxInterval time.Duration
}

type Option func(*Handler)

// WithMetrics enables per-request metrics and the /metrics endpoint.
func WithMetrics(c *metrics.Collector, g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.metrics = c
		h.gatherer = g
	}
}

// WithInboxInterval sets the default poll interval of the inbox websocket.
func WithInboxInterval(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.inboxInterval = d
		}
	}
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{services: services, log: log, inboxInterval: defaultInterval}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.CustomRecovery(h.recoverPanic), h.requestID, h.accessLog)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// System endpoints
	router.GET("/health", h.health)
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(h.gatherer)))
	}

	h.registerAuthRoutes(router)
	h.registerUserRoutes(router)
	h.registerMessageRoutes(router)

	// Inbox stream (HTTP upgrade), same port
	router.GET("/ws/inbox", h.ensureLoggedIn, h.wsInbox)

	router.NoRoute(h.notFound)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
	}
}

func (h *Handler) registerUserRoutes(r *gin.Engine) {
	users := r.Group("/users", h.ensureLoggedIn)
	{
		users.GET("", h.listUsers)

		self := users.Group("/:username", h.ensureCorrectUser)
		self.GET("", h.getUser)
		self.GET("/to", h.messagesTo)
		self.GET("/from", h.messagesFrom)
	}
}

func (h *Handler) registerMessageRoutes(r *gin.Engine) {
	messages := r.Group("/messages", h.ensureLoggedIn)
	{
		messages.GET("/:id", h.getMessage)
		// Body example: {"to_username":"bob","body":"hi"}
		messages.POST("", h.sendMessage)
		messages.POST("/:id", h.markRead)
		messages.POST("/:id/read", h.markRead)
	}
}
