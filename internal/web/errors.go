package web

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kapu/parish-directory-go/pkg/errors"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// handleError turns handler errors into JSON bodies with the status their type maps to.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if stderrors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorResponse{Error: fe.Message})
	}

	status := errors.StatusCode(err)
	resp := errorResponse{Error: errors.UserMessage(err)}

	var de interface{ ErrorCode() string }
	if stderrors.As(err, &de) {
		resp.Code = de.ErrorCode()
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	} else {
		s.logger.Debug("Request rejected",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(resp)
}
