package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
)

// Export formats
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

var clickExportHeader = []string{
	"id",
	"code",
	"timestamp",
	"ip",
	"referer",
	"browser",
	"browser_version",
	"os",
	"os_version",
	"device",
	"device_model",
	"country",
	"region",
	"user_agent",
}

// ClickExportFlow renders the stored click history of one link as a downloadable file
type ClickExportFlow interface {
	// ExportClicks returns the file name and content for format csv or xlsx
	ExportClicks(ctx context.Context, code, format string) (string, []byte, error)
}

type ClickExportFlowImpl struct {
	linkRepo  repository.ShortLinkRepository
	clickRepo repository.ShortLinkClickRepository
	logger    *zap.Logger
}

func NewClickExportFlow(linkRepo repository.ShortLinkRepository, clickRepo repository.ShortLinkClickRepository, logger *zap.Logger) ClickExportFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickExportFlowImpl{linkRepo: linkRepo, clickRepo: clickRepo, logger: logger}
}

func (f *ClickExportFlowImpl) ExportClicks(ctx context.Context, code, format string) (string, []byte, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatXLSX {
		return "", nil, newValidationError("format must be csv or xlsx", ErrUnsupportedExportFormat)
	}

	row, err := f.linkRepo.ByCode(ctx, code)
	if err != nil {
		return "", nil, NewBusinessError("SHORT_LINK_LOOKUP_FAILED", "Failed to lookup short link", err)
	}
	if row == nil {
		return "", nil, ErrShortLinkNotFound
	}

	clicks, err := f.clickRepo.ListByShortLinkID(ctx, row.ID)
	if err != nil {
		return "", nil, NewBusinessError("LIST_CLICKS_FAILED", "Failed to list clicks", err)
	}

	var (
		filename string
		content  []byte
	)
	switch format {
	case ExportFormatXLSX:
		filename = fmt.Sprintf("clicks_%s.xlsx", row.Code)
		content, err = clicksXLSX(row, clicks)
	default:
		filename = fmt.Sprintf("clicks_%s.csv", row.Code)
		content, err = clicksCSV(clicks)
	}
	if err != nil {
		return "", nil, err
	}

	f.logger.Info("clicks exported",
		zap.String("code", row.Code),
		zap.String("format", format),
		zap.Int("rows", len(clicks)),
	)
	return filename, content, nil
}

func clickRecord(c *models.ShortLinkClick) []string {
	return []string{
		strconv.FormatUint(uint64(c.ID), 10),
		c.Code,
		c.Timestamp.UTC().Format(time.RFC3339),
		c.IP,
		c.Referer,
		c.Browser,
		utils.Deref(c.BrowserVersion, ""),
		c.OS,
		utils.Deref(c.OSVersion, ""),
		c.Device,
		utils.Deref(c.DeviceModel, ""),
		utils.Deref(c.Country, ""),
		utils.Deref(c.Region, ""),
		c.UserAgent,
	}
}

func clicksCSV(clicks []*models.ShortLinkClick) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	if err := w.Write(clickExportHeader); err != nil {
		return nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to write CSV header", err)
	}
	for _, c := range clicks {
		if err := w.Write(clickRecord(c)); err != nil {
			return nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to write CSV row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, NewBusinessError("CSV_WRITE_ERROR", "Failed to flush CSV", err)
	}
	return buf.Bytes(), nil
}

// clicksXLSX writes one sheet with the raw clicks and a second with daily totals
func clicksXLSX(link *models.ShortLink, clicks []*models.ShortLinkClick) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	name := sanitizeSheetName(link.Code)
	if err := xl.SetSheetName(xl.GetSheetName(0), name); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to name sheet", err)
	}
	header := clickExportHeader
	_ = xl.SetSheetRow(name, "A1", &header)
	for ri, c := range clicks {
		record := clickRecord(c)
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(name, cellRef, &record)
	}

	daily := truncateSheetName(name + "_daily")
	if daily == name {
		daily = "daily"
	}
	if _, err := xl.NewSheet(daily); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to create sheet", err)
	}
	dailyHeader := []string{"date", "visits", "visitors"}
	_ = xl.SetSheetRow(daily, "A1", &dailyHeader)
	for ri, d := range VisitsAndVisitorsByDay(clicks) {
		record := []any{d.Date, d.Visits, d.Visitors}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(daily, cellRef, &record)
	}

	referers := ClicksByReferer(clicks)
	keys := make([]string, 0, len(referers))
	for k := range referers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	_ = xl.SetSheetRow(daily, "E1", &[]string{"referer", "clicks"})
	for ri, k := range keys {
		record := []any{k, referers[k]}
		cellRef, _ := excelize.CoordinatesToCellName(5, ri+2)
		_ = xl.SetSheetRow(daily, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return buf.Bytes(), nil
}

func sanitizeSheetName(name string) string {
	// Excel sheet names cannot contain: : \\ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := replacer.Replace(name)
	return truncateSheetName(strings.TrimSpace(safe))
}

func truncateSheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	if name == "" {
		return "Sheet"
	}
	return name
}
