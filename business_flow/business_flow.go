package businessflow

import (
	"strings"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/models"
)

// ClickContext holds the request attributes recorded with a click
type ClickContext struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Referer   string `json:"referer"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClickContext fills missing values with the stored defaults
func NewClickContext(ipAddress, userAgent, referer string) ClickContext {
	return ClickContext{
		IPAddress: orDefault(ipAddress, models.UnknownClickValue),
		UserAgent: orDefault(userAgent, models.UnknownClickValue),
		Referer:   orDefault(referer, models.DirectReferer),
	}
}

// SetRequestID sets the request ID
func (cc *ClickContext) SetRequestID(requestID string) {
	cc.RequestID = requestID
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// BuildShortURL joins the public base URL and a code
func BuildShortURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/" + code
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// ToShortLinkDTO converts a short link model to its API representation
func ToShortLinkDTO(row *models.ShortLink, baseURL string) dto.ShortLinkDTO {
	return dto.ShortLinkDTO{
		ShortCode:    row.Code,
		ShortURL:     BuildShortURL(baseURL, row.Code),
		OriginalURL:  row.TargetURL,
		CustomAlias:  row.CustomAlias,
		IsActive:     row.IsActive,
		ClickCount:   row.ClickCount,
		CreatedAt:    row.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:    formatTimePtr(row.ExpiresAt),
		LastAccessed: formatTimePtr(row.LastAccessedAt),
	}
}

// ToClickDTO converts a stored click event to its API representation
func ToClickDTO(c *models.ShortLinkClick) dto.ClickDTO {
	return dto.ClickDTO{
		Timestamp:      c.Timestamp.UTC().Format(time.RFC3339),
		IP:             c.IP,
		UserAgent:      c.UserAgent,
		Referer:        c.Referer,
		Browser:        c.Browser,
		BrowserVersion: c.BrowserVersion,
		OS:             c.OS,
		OSVersion:      c.OSVersion,
		Device:         c.Device,
		DeviceModel:    c.DeviceModel,
		Country:        c.Country,
		Region:         c.Region,
	}
}
