// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/dto"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/utils"
)

const (
	requestTimeout = 10 * time.Second
	exportTimeout  = 60 * time.Second
)

// baseHandler carries what every handler needs to build responses
type baseHandler struct {
	validator *validator.Validate
	logger    *zap.Logger
	// exposeErrors puts internal error text in 500 responses; development only
	exposeErrors bool
}

func newBaseHandler(validate *validator.Validate, logger *zap.Logger, exposeErrors bool) baseHandler {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{validator: validate, logger: logger, exposeErrors: exposeErrors}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validateRequest returns the list of client facing messages, nil when req is valid
func (h *baseHandler) validateRequest(req any) []string {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return messages
}

// lookupFailure maps a resolution failure to its 404 body; ok is false for other errors
func lookupFailure(err error) (message, code, reason string, ok bool) {
	switch {
	case businessflow.IsShortLinkNotFound(err):
		return "Short URL not found", "SHORT_LINK_NOT_FOUND", "NotFound", true
	case businessflow.IsShortLinkExpired(err):
		return "Short URL has expired", "SHORT_LINK_EXPIRED", "Expired", true
	case businessflow.IsShortLinkInactive(err):
		return "Short URL is inactive", "SHORT_LINK_INACTIVE", "Inactive", true
	}
	return "", "", "", false
}

// handleFlowError converts a business flow error into the response taxonomy:
// validation 400, lookup failures 404, anything else 500
func (h *baseHandler) handleFlowError(c fiber.Ctx, err error, code, failureMessage, failureCode string) error {
	var be *businessflow.BusinessError
	if businessflow.IsValidationError(err) && errors.As(err, &be) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, businessflow.CodeValidationError, nil)
	}
	if message, errCode, reason, ok := lookupFailure(err); ok {
		return h.ErrorResponse(c, fiber.StatusNotFound, message, errCode, fiber.Map{
			"shortCode": code,
			"reason":    reason,
		})
	}

	h.logger.Error(failureMessage,
		zap.String("code", code),
		zap.Any("request_id", c.Locals("requestid")),
		zap.Error(err),
	)
	var details any
	if h.exposeErrors {
		details = err.Error()
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, failureMessage, failureCode, details)
}

func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(c, endpoint, requestTimeout)
}

func (h *baseHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx, cancel
}

func requestID(c fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	return c.Get("X-Request-ID")
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "url", "http_url":
		return err.Field() + " must be a valid URL"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
