package server

import (
	"errors"
	"net/http"

	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"github.com/gin-gonic/gin"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var eventErr *usagedomain.ValidationError
	if errors.As(err, &eventErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{{
				Field:   eventErr.Field,
				Code:    eventErr.Code,
				Message: eventErr.Field + " is " + validationCodeMessage(eventErr.Code),
			}},
		}
	}

	if field, sentinel := validationField(err); sentinel != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{{
				Field:   field,
				Code:    sentinel.Error(),
				Message: "invalid value",
			}},
		}
	}

	switch {
	case errors.Is(err, billingdomain.ErrDuplicateSubscription):
		return http.StatusConflict, errorPayload{
			Type:    "duplicate_subscription",
			Message: "user already has a subscription",
		}
	case errors.Is(err, billingdomain.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Message: "subscription status does not allow this change",
		}
	case errors.Is(err, billingdomain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "quota_exceeded",
			Message: "monthly message quota exceeded",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, billingdomain.ErrSubscriptionNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, usagedomain.ErrLockUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the response type and a stable code for request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	if payload.Type == "internal_error" {
		return payload.Type, "internal_error"
	}
	return payload.Type, payload.Type
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// validationField maps sentinel validation errors to the request field they
// concern. The returned sentinel is nil when err is not a validation error.
func validationField(err error) (string, error) {
	fields := []struct {
		field    string
		sentinel error
	}{
		{"request", ErrInvalidRequest},
		{"user_id", usagedomain.ErrInvalidUser},
		{"user_id", billingdomain.ErrInvalidUser},
		{"period", usagedomain.ErrInvalidPeriod},
		{"page_token", usagedomain.ErrInvalidPageToken},
		{"event", usagedomain.ErrInvalidEvent},
		{"tier", billingdomain.ErrInvalidTier},
		{"billing_cycle", billingdomain.ErrInvalidBillingCycle},
		{"trial_days", billingdomain.ErrInvalidTrialDays},
	}
	for _, f := range fields {
		if errors.Is(err, f.sentinel) {
			return f.field, f.sentinel
		}
	}
	return "", nil
}

func validationCodeMessage(code string) string {
	switch code {
	case usagedomain.CodeRequired:
		return "required"
	case usagedomain.CodeNegative:
		return "negative"
	case usagedomain.CodeNotFinite:
		return "not a finite number"
	case usagedomain.CodeUnsupported:
		return "not supported"
	case usagedomain.CodeOutOfRange:
		return "out of range"
	default:
		return "invalid"
	}
}
