package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	chargedomain "github.com/smallbiznis/offsession/internal/charge/domain"
	invoicedomain "github.com/smallbiznis/offsession/internal/invoice/domain"
	paymenthistorydomain "github.com/smallbiznis/offsession/internal/paymenthistory/domain"
	paymentmethoddomain "github.com/smallbiznis/offsession/internal/paymentmethod/domain"
	processordomain "github.com/smallbiznis/offsession/internal/processor/domain"
	webhookdomain "github.com/smallbiznis/offsession/internal/webhook/domain"
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
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
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

// bindingError converts a gin binding failure into field-level validation
// errors.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newValidationError("request", "invalid_request", "invalid request")
	}
	out := &ValidationErrors{}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldName(fe),
			Code:    fe.Tag(),
			Message: fieldName(fe) + " is invalid",
		})
	}
	return out
}

func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "Email":
		return "email"
	case "ID":
		return "paymentMethod.id"
	case "PaymentMethod":
		return "paymentMethod"
	default:
		return fe.Field()
	}
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

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentmethoddomain.ErrInvalidEmail),
		errors.Is(err, paymentmethoddomain.ErrInvalidPaymentMethod),
		errors.Is(err, chargedomain.ErrInvalidEmail):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
		}
	case errors.Is(err, chargedomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: err.Error(),
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, paymentmethoddomain.ErrAlreadyRegistered):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
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

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, paymentmethoddomain.ErrNotFound),
		errors.Is(err, paymenthistorydomain.ErrNotFound),
		errors.Is(err, processordomain.ErrNotFound),
		errors.Is(err, chargedomain.ErrPaymentMethodNotFound):
		return true
	default:
		return false
	}
}

// clientErrorType names the failure class reported inside 400 bodies for the
// charge and registration routes.
func clientErrorType(err error) string {
	switch {
	case asValidationErrors(err) != nil,
		errors.Is(err, paymentmethoddomain.ErrInvalidEmail),
		errors.Is(err, paymentmethoddomain.ErrInvalidPaymentMethod),
		errors.Is(err, chargedomain.ErrInvalidEmail):
		return "validation_error"
	case errors.Is(err, paymentmethoddomain.ErrAlreadyRegistered):
		return "conflict"
	case errors.Is(err, chargedomain.ErrPaymentMethodNotFound):
		return "payment_method_not_found"
	case errors.Is(err, chargedomain.ErrRateLimited):
		return "rate_limited"
	}
	var pe *processordomain.Error
	if errors.As(err, &pe) {
		return processordomain.KindOf(err).Error()
	}
	return "internal_error"
}

// clientErrorMessage prefers the processor's own wording, which is safe to
// show to the payer.
func clientErrorMessage(err error) string {
	switch {
	case errors.Is(err, chargedomain.ErrPaymentMethodNotFound):
		return "Payment method not found for this email"
	case errors.Is(err, paymentmethoddomain.ErrAlreadyRegistered):
		return "A payment method is already registered for this email"
	case errors.Is(err, paymentmethoddomain.ErrInvalidEmail),
		errors.Is(err, chargedomain.ErrInvalidEmail):
		return "A valid email is required"
	case errors.Is(err, paymentmethoddomain.ErrInvalidPaymentMethod):
		return "A payment method id is required"
	}
	if vErr := asValidationErrors(err); vErr != nil && len(vErr.Errors) > 0 {
		return vErr.Errors[0].Message
	}
	var pe *processordomain.Error
	if errors.As(err, &pe) {
		return pe.Error()
	}
	var rl *chargedomain.RateLimitedError
	if errors.As(err, &rl) {
		return rl.Error()
	}
	return "internal server error"
}

func classifyErrorForLog(err error) (string, string) {
	switch {
	case errors.Is(err, processordomain.ErrSignatureInvalid):
		return "webhook", "signature_invalid"
	case errors.Is(err, processordomain.ErrInvalidPayload):
		return "webhook", "invalid_payload"
	case errors.Is(err, webhookdomain.ErrDeliveryInFlight):
		return "webhook", "delivery_in_flight"
	case errors.Is(err, invoicedomain.ErrPDFUnavailable):
		return "invoice", "pdf_unavailable"
	}

	var pe *processordomain.Error
	if errors.As(err, &pe) {
		return "processor", processordomain.KindOf(err).Error()
	}

	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "server", payload.Type
	}
	return "client", payload.Type
}
