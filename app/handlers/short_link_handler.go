package handlers

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/dto"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
)

// shortCodePattern accepts generated codes as well as custom aliases. It is looser
// than the alias rule: an underscore passes here and then misses in the store.
var shortCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// ShortLinkHandlerInterface defines the public short link endpoints
type ShortLinkHandlerInterface interface {
	Shorten(c fiber.Ctx) error
	Info(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Redirect(c fiber.Ctx) error
}

type ShortLinkHandler struct {
	baseHandler
	flow    businessflow.ShortLinkFlow
	tracker businessflow.ClickTracker
}

func NewShortLinkHandler(
	flow businessflow.ShortLinkFlow,
	tracker businessflow.ClickTracker,
	validate *validator.Validate,
	logger *zap.Logger,
	exposeErrors bool,
) ShortLinkHandlerInterface {
	return &ShortLinkHandler{
		baseHandler: newBaseHandler(validate, logger, exposeErrors),
		flow:        flow,
		tracker:     tracker,
	}
}

// Shorten creates a short link or returns the active one already pointing at the same URL
// @Summary Shorten URL
// @Tags ShortLinks
// @Accept json
// @Produce json
// @Param request body dto.CreateShortLinkRequest true "Target URL and options"
// @Success 201 {object} dto.APIResponse{data=dto.CreateShortLinkResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/url/shorten [post]
func (h *ShortLinkHandler) Shorten(c fiber.Ctx) error {
	var req dto.CreateShortLinkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", nil)
	}
	if messages := h.validateRequest(&req); len(messages) > 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", businessflow.CodeValidationError, messages)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/url/shorten")
	defer cancel()

	result, err := h.flow.CreateShortLink(ctx, &req)
	if err != nil {
		return h.handleFlowError(c, err, "", "Failed to create short URL", "SHORTEN_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Short URL created", result)
}

// Info returns the target of a resolvable link without recording a click
// @Summary Short Link Info
// @Tags ShortLinks
// @Produce json
// @Param code path string true "Short code or alias"
// @Success 200 {object} dto.APIResponse{data=dto.ShortLinkInfoResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/url/{code}/info [get]
func (h *ShortLinkHandler) Info(c fiber.Ctx) error {
	code := c.Params("code")
	ctx, cancel := h.createRequestContext(c, "/api/v1/url/"+code+"/info")
	defer cancel()

	info, err := h.flow.GetInfo(ctx, code)
	if err != nil {
		return h.handleFlowError(c, err, code, "Failed to get short URL info", "INFO_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Short URL info retrieved", info)
}

// Delete deactivates a link; its click history stays readable
// @Summary Delete Short Link
// @Tags ShortLinks
// @Produce json
// @Param code path string true "Short code or alias"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/url/{code} [delete]
func (h *ShortLinkHandler) Delete(c fiber.Ctx) error {
	code := c.Params("code")
	ctx, cancel := h.createRequestContext(c, "/api/v1/url/"+code)
	defer cancel()

	if err := h.flow.DeleteShortLink(ctx, code); err != nil {
		return h.handleFlowError(c, err, code, "Failed to delete short URL", "DELETE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Short URL deleted", fiber.Map{"shortCode": code})
}

// Redirect resolves a code and answers with a permanent redirect. The click is recorded in the background.
// @Summary Visit Short Link
// @Tags ShortLinks
// @Produce json
// @Param code path string true "Short code or alias"
// @Success 301 {string} string "Redirect"
// @Failure 404 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /{code} [get]
func (h *ShortLinkHandler) Redirect(c fiber.Ctx) error {
	code := c.Params("code")
	if !shortCodePattern.MatchString(code) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Short URL not found", "SHORT_LINK_NOT_FOUND", fiber.Map{
			"shortCode": code,
			"reason":    "NotFound",
		})
	}

	ctx, cancel := h.createRequestContext(c, "/"+code)
	defer cancel()

	target, err := h.flow.Resolve(ctx, code)
	if err != nil {
		return h.handleFlowError(c, err, code, "Failed to resolve short URL", "REDIRECT_FAILED")
	}

	if h.tracker != nil {
		cc := businessflow.NewClickContext(c.IP(), c.Get(fiber.HeaderUserAgent), c.Get(fiber.HeaderReferer))
		cc.SetRequestID(requestID(c))
		h.tracker.TrackAsync(code, cc)
	}
	return c.Redirect().Status(fiber.StatusMovedPermanently).To(target)
}
