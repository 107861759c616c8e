package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/kapu/parish-directory-go/internal/directory"
	"github.com/kapu/parish-directory-go/internal/session"
	"go.uber.org/zap"
)

type Config struct {
	DirectoryName  string
	RequestTimeout time.Duration
	MaxUploadBytes int
	SecureCookie   bool
	// AssetURL resolves a store path (photo, logo) to a URL the browser can load.
	AssetURL func(path string) string
	// CacheHealthy reports on the document cache; nil when caching is off.
	CacheHealthy func(ctx context.Context) bool
}

// Server is the HTTP surface over the directory repository.
type Server struct {
	app    *fiber.App
	repo   *directory.Repository
	guard  *session.Guard
	cfg    Config
	logger *zap.Logger
}

func NewServer(repo *directory.Repository, guard *session.Guard, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.HTTPConfig.RequestTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = constants.HTTPConfig.MaxUploadBytes
	}
	if cfg.AssetURL == nil {
		cfg.AssetURL = func(path string) string { return path }
	}

	s := &Server{
		repo:   repo,
		guard:  guard,
		cfg:    cfg,
		logger: logger,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             cfg.MaxUploadBytes,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.requestContext)
	s.app.Use(s.loadSession)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/", s.home)
	s.app.Get("/healthz", s.health)

	api := s.app.Group("/api")
	api.Get("/members", s.listMembers)
	api.Get("/announcements", s.listAnnouncements)

	admin := s.app.Group("/admin")
	admin.Post("/login", s.login)
	admin.Post("/logout", s.logout)

	adminAPI := admin.Group("/api", s.requireAdmin)
	adminAPI.Get("/directory", s.adminDirectory)
	adminAPI.Get("/stats", s.adminStats)
	adminAPI.Get("/backup", s.backup)
	adminAPI.Post("/members", s.addMember)
	adminAPI.Delete("/members/:index", s.removeMember)
	adminAPI.Post("/announcements", s.addAnnouncement)
	adminAPI.Delete("/announcements/:index", s.removeAnnouncement)
	adminAPI.Post("/logo", s.uploadLogo)
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
