package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/kapu/parish-directory-go/internal/session"
	"go.uber.org/zap"
)

const sessionLocal = "session"

// requestContext bounds every handler by the request timeout and logs the outcome.
func (s *Server) requestContext(c *fiber.Ctx) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(c.UserContext(), s.cfg.RequestTimeout)
	defer cancel()
	c.SetUserContext(ctx)

	err := c.Next()
	if err != nil {
		// let the error handler set the status before it is logged
		if herr := s.handleError(c, err); herr != nil {
			return herr
		}
	}

	s.logger.Info("HTTP request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
	)
	return nil
}

// loadSession resumes the admin session carried by the cookie. Every request gets one.
func (s *Server) loadSession(c *fiber.Ctx) error {
	c.Locals(sessionLocal, s.guard.Resume(c.Cookies(constants.SessionConfig.CookieName)))
	return c.Next()
}

func currentSession(c *fiber.Ctx) *session.Session {
	if sess, ok := c.Locals(sessionLocal).(*session.Session); ok {
		return sess
	}
	return session.Anonymous()
}

func (s *Server) requireAdmin(c *fiber.Ctx) error {
	if err := currentSession(c).Require(c.Method() + " " + c.Path()); err != nil {
		return err
	}
	return c.Next()
}
