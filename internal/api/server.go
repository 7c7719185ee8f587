// Package api собирает HTTP-сервер: middleware, маршруты, /healthz и /metrics.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/config"
	"serotonyl.ru/comment-popularity/internal/features/comments"
	"serotonyl.ru/comment-popularity/internal/features/users"
	"serotonyl.ru/comment-popularity/internal/features/voting"
	"serotonyl.ru/comment-popularity/internal/middleware"
)

// HealthCheck: проверка одной зависимости (Postgres, Redis).
type HealthCheck func(ctx context.Context) error

// Deps: всё, что нужно серверу.
type Deps struct {
	Voting      *voting.Handler
	Comments    *comments.Handler
	Users       *users.Handler
	RateLimiter *middleware.RateLimiter
	Gatherer    prometheus.Gatherer
	Checks      map[string]HealthCheck
}

// Server: HTTP-сервер сервиса.
type Server struct {
	app  *fiber.App
	cfg  *config.Config
	deps Deps
}

// New создаёт сервер и регистрирует маршруты.
func New(cfg *config.Config, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "comment-popularity",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: errorHandler,
	})

	s := &Server{app: app, cfg: cfg, deps: deps}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(middleware.Recover(), middleware.RequestLogger())

	s.app.Get("/healthz", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	api := s.app.Group("/api",
		middleware.Auth(s.cfg.JWTSecret),
		s.deps.Users.EnsureUser(),
		s.deps.RateLimiter.Handler(),
	)
	s.deps.Voting.Register(api)
	s.deps.Comments.Register(api)
	s.deps.Users.Register(api)
}

// App возвращает fiber-приложение (для тестов).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen блокируется, пока сервер не остановят.
func (s *Server) Listen() error {
	log.WithField("addr", s.cfg.HTTPAddr).Info("HTTP-сервер запускается")
	return s.app.Listen(s.cfg.HTTPAddr)
}

// Shutdown останавливает приём запросов и ждёт текущие.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.deps.RateLimiter.Close()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.Map{}
	healthy := true
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			log.WithError(err).WithField("dependency", name).Warn("health check failed")
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	code := fiber.StatusOK
	if !healthy {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{"healthy": healthy, "checks": status})
}

// errorHandler: ответ на ошибки, которые обработчики не поймали сами (404 маршрута, 405).
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": message})
}
