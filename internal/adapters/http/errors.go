package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, no_area_selected, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// ViewError is an APIError that also carries the page state to show with it.
type ViewError struct {
	APIError
	View any `json:"view,omitempty"`
}

func apiError(c *fiber.Ctx, status int, code, message string) APIError {
	reqID, _ := c.Locals("requestid").(string)
	return APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	}
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(apiError(c, status, code, message))
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errNoArea returns a 422 error telling the client to draw an area first.
func errNoArea(c *fiber.Ctx, msg string) error {
	return newError(c, 422, "no_area_selected", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "service_unavailable", msg)
}

// errFromDomain maps a use-case error onto an API error.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return errNotFound(c, "session not found")
	case errors.Is(err, domain.ErrTrendNotFound):
		return errNotFound(c, "trend not found")
	case errors.Is(err, domain.ErrNoAreaSelected):
		return errNoArea(c, domain.MessageNoAreaSelected)
	case errors.Is(err, domain.ErrInvalidMonth),
		errors.Is(err, domain.ErrInvalidMode),
		errors.Is(err, domain.ErrInvalidPolygon),
		errors.Is(err, domain.ErrPolygonTooSmall):
		return errBadRequest(c, err.Error())
	case errors.Is(err, usecases.ErrTrendsUnavailable):
		return errUnavailable(c, err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}

// statisticsError responds with the failed statistics page. Upstream
// failures keep the page's banner so the client can show it.
func statisticsError(c *fiber.Ctx, v usecases.StatisticsView, err error) error {
	var status int
	var code string
	switch {
	case errors.Is(err, domain.ErrNoAreaSelected):
		status, code = 422, "no_area_selected"
	case errors.Is(err, domain.ErrPayloadTooLarge):
		status, code = 422, "too_many_results"
	case errors.Is(err, domain.ErrNetworkFailure), errors.Is(err, domain.ErrMalformedResponse):
		status, code = 502, "upstream_error"
	default:
		return errFromDomain(c, err)
	}
	msg := err.Error()
	if v.Banner != nil {
		msg = v.Banner.Message
	}
	return c.Status(status).JSON(ViewError{APIError: apiError(c, status, code, msg), View: v})
}
