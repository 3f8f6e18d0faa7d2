package routes

import (
	"errors"
	"net/http"

	rbac "github.com/bohemiyan/tenant-rbac"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Envelope wraps every response body.
type Envelope struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Data          any    `json:"data"`
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	if data == nil {
		data = fiber.Map{}
	}
	return c.Status(status).JSON(Envelope{StatusCode: status, StatusMessage: message, Data: data})
}

// StatusFor maps an error onto its HTTP status code.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, rbac.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, rbac.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, rbac.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, rbac.ErrValidation), errors.Is(err, rbac.ErrDuplicateKey):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, rbac.ErrTimeout):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func messageFor(err error, status int) (string, any) {
	var (
		fe  *fiber.Error
		ve  *ValidationError
		dup *rbac.DuplicateError
	)
	switch {
	case errors.As(err, &ve):
		return "validation failed", ve.Fields
	case errors.As(err, &dup):
		fields := make(map[string]string, len(dup.Fields))
		for _, f := range dup.Fields {
			fields[f] = "the " + f + " has already been taken"
		}
		return dup.Error(), fields
	case errors.As(err, &fe):
		return fe.Message, nil
	}

	switch status {
	case fiber.StatusUnauthorized:
		return "Unauthorized", nil
	case fiber.StatusForbidden:
		return "You are not authorized to access this resource", nil
	case fiber.StatusNotFound:
		return "Resource not found", nil
	case fiber.StatusUnprocessableEntity:
		if errors.Is(err, rbac.ErrDuplicateKey) {
			return "resource already exists", nil
		}
		return err.Error(), nil
	case fiber.StatusServiceUnavailable:
		return "service temporarily unavailable, retry later", nil
	default:
		return http.StatusText(status), nil
	}
}

// ErrorHandler renders errors returned by handlers and middleware as
// envelopes and logs them.
func ErrorHandler(log *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusFor(err)
		message, data := messageFor(err, status)

		fields := []any{"method", c.Method(), "path", c.Path(), "status", status, "error", err}
		if userID, ok := rbac.UserIDFromCtx(c); ok {
			fields = append(fields, "user_id", userID)
		}
		if status >= fiber.StatusInternalServerError {
			log.Errorw("request failed", fields...)
		} else {
			log.Warnw("request rejected", fields...)
		}
		return respond(c, status, message, data)
	}
}
