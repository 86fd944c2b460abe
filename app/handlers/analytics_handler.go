package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/dto"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
)

const ownerHeader = "X-Owner-ID"

var exportContentTypes = map[string]string{
	businessflow.ExportFormatCSV:  "text/csv; charset=utf-8",
	businessflow.ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// AnalyticsHandlerInterface defines the read side endpoints
type AnalyticsHandlerInterface interface {
	Dashboard(c fiber.Ctx) error
	LinkAnalytics(c fiber.Ctx) error
	ExportClicks(c fiber.Ctx) error
}

type AnalyticsHandler struct {
	baseHandler
	analytics businessflow.AnalyticsFlow
	export    businessflow.ClickExportFlow
}

func NewAnalyticsHandler(
	analytics businessflow.AnalyticsFlow,
	export businessflow.ClickExportFlow,
	validate *validator.Validate,
	logger *zap.Logger,
	exposeErrors bool,
) AnalyticsHandlerInterface {
	return &AnalyticsHandler{
		baseHandler: newBaseHandler(validate, logger, exposeErrors),
		analytics:   analytics,
		export:      export,
	}
}

// Dashboard summarises active links, optionally for one owner
// @Summary Analytics Dashboard
// @Tags Analytics
// @Produce json
// @Param owner_id query string false "Restrict to links created by this owner"
// @Param X-Owner-ID header string false "Owner fallback when owner_id is absent"
// @Success 200 {object} dto.APIResponse{data=dto.DashboardResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c fiber.Ctx) error {
	var req dto.DashboardRequest
	owner := strings.TrimSpace(c.Query("owner_id"))
	if owner == "" {
		owner = strings.TrimSpace(c.Get(ownerHeader))
	}
	if owner != "" {
		req.OwnerID = &owner
	}
	if messages := h.validateRequest(&req); len(messages) > 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", businessflow.CodeValidationError, messages)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/analytics/dashboard")
	defer cancel()

	result, err := h.analytics.Dashboard(ctx, req.OwnerID)
	if err != nil {
		return h.handleFlowError(c, err, "", "Failed to build dashboard", "DASHBOARD_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Dashboard retrieved", result)
}

// LinkAnalytics reports the click history and breakdowns of one link in any state
// @Summary Link Analytics
// @Tags Analytics
// @Produce json
// @Param code path string true "Short code or alias"
// @Success 200 {object} dto.APIResponse{data=dto.LinkAnalyticsResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/analytics/{code} [get]
func (h *AnalyticsHandler) LinkAnalytics(c fiber.Ctx) error {
	code := c.Params("code")
	ctx, cancel := h.createRequestContext(c, "/api/v1/analytics/"+code)
	defer cancel()

	result, err := h.analytics.LinkAnalytics(ctx, code)
	if err != nil {
		return h.handleFlowError(c, err, code, "Failed to get analytics", "ANALYTICS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Analytics retrieved", result)
}

// ExportClicks downloads the stored clicks of a link as CSV or XLSX
// @Summary Export Clicks
// @Tags Analytics
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param code path string true "Short code or alias"
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/analytics/{code}/export [get]
func (h *AnalyticsHandler) ExportClicks(c fiber.Ctx) error {
	code := c.Params("code")

	var req dto.ExportClicksRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", nil)
	}
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if req.Format == "" {
		req.Format = businessflow.ExportFormatCSV
	}
	if messages := h.validateRequest(&req); len(messages) > 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", businessflow.CodeValidationError, messages)
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/analytics/"+code+"/export", exportTimeout)
	defer cancel()

	filename, data, err := h.export.ExportClicks(ctx, code, req.Format)
	if err != nil {
		return h.handleFlowError(c, err, code, "Failed to export clicks", "EXPORT_FAILED")
	}

	c.Set(fiber.HeaderContentType, exportContentTypes[req.Format])
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Send(data)
}
