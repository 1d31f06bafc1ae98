package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/fleet-helpdesk/internal/observability"
	apperrors "github.com/spec-kit/fleet-helpdesk/pkg/util/errorutil"
)

const codeRequestTimeout = "REQUEST_TIMEOUT"

// RegisterMiddlewares attaches global middlewares. The request logger wraps the error handler so
// it records the status actually sent.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}
			domainErr := toResponseError(err)
			route := c.Route().Path
			if route == "" {
				route = c.Path()
			}
			metrics.RecordError(route, c.Method(), domainErr.Code)
			if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("request_id", c.GetRespHeader(observability.RequestIDHeader)),
					zap.String("code", domainErr.Code),
					zap.String("path", c.Path()),
					zap.Error(domainErr))
			}
			body := fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}
			if len(domainErr.Details) > 0 {
				body["details"] = domainErr.Details
			}
			_ = c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
			err = nil
		}()
		return c.Next()
	}
}

// toResponseError maps err onto the envelope sent to the client. A request that ran out its
// deadline outside of any domain error reports REQUEST_TIMEOUT.
func toResponseError(err error) *apperrors.DomainError {
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) && errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewUnavailable(codeRequestTimeout, "request timed out", nil)
	}
	return apperrors.ToDomainError(err)
}
