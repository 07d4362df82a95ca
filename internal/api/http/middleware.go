package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/trading-journal/internal/observability"
	apperrors "github.com/spec-kit/trading-journal/pkg/util/errorutil"
)

// Postgres error codes the journal can trigger from client input.
const (
	pgUniqueViolation   = "23505"
	pgCheckViolation    = "23514"
	pgNumericOutOfRange = "22003"
	pgInvalidText       = "22P02"
)

// RegisterMiddlewares attaches global middlewares. The request logger sits
// outside error handling so it sees the final status.
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

			domainErr := classifyError(err)
			metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
			requestID := c.GetRespHeader(observability.RequestIDHeader)

			switch {
			case domainErr.HTTPStatus >= http.StatusInternalServerError:
				logger.Error("request failed", zap.String("request_id", requestID), zap.Error(err))
			case domainErr.HTTPStatus == http.StatusUnauthorized:
				// The client only ever sees the generic message; keep the reason here.
				logger.Debug("request unauthorized",
					zap.String("request_id", requestID),
					zap.NamedError("reason", errors.Unwrap(domainErr)),
				)
			}

			response := fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}}
			if len(domainErr.Details) > 0 {
				response["error"].(fiber.Map)["details"] = domainErr.Details
			}
			c.Status(domainErr.HTTPStatus)
			_ = c.JSON(response)
			err = nil
		}()
		return c.Next()
	}
}

// classifyError maps storage and deadline failures that stem from the
// request itself onto client errors; everything else goes through
// apperrors.ToDomainError.
func classifyError(err error) *apperrors.DomainError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCheckViolation, pgNumericOutOfRange, pgInvalidText:
			return apperrors.NewDomainError("VALIDATION_FAILED", "value rejected by storage", http.StatusBadRequest,
				map[string]any{"constraint": pgErr.ConstraintName})
		case pgUniqueViolation:
			return apperrors.NewDomainError("CONFLICT", "record already exists", http.StatusConflict, nil)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewDomainError("TIMEOUT", "request timed out", http.StatusGatewayTimeout, nil)
	}
	return apperrors.ToDomainError(err)
}
