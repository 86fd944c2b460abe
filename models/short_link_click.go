package models

import "time"

// Device classes stored on click rows
const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceUnknown = "Unknown"
)

// Default click context values used when the request carries none
const (
	UnknownClickValue = "unknown"
	DirectReferer     = "direct"
)

// ShortLinkClick represents a single click event on a short link
// We keep a reference to short_links via ShortLinkID
// Browser, OS, Device and geo fields are derived once at ingest time
type ShortLinkClick struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ShortLinkID    uint      `gorm:"index:idx_short_link_clicks_short_link_id;not null" json:"short_link_id"`
	Code           string    `gorm:"size:20;index:idx_short_link_clicks_code" json:"code"`
	Timestamp      time.Time `gorm:"not null;index:idx_short_link_clicks_timestamp" json:"timestamp"`
	IP             string    `gorm:"size:64" json:"ip"`
	UserAgent      string    `gorm:"type:text" json:"user_agent"`
	Referer        string    `gorm:"type:text" json:"referer"`
	Browser        string    `gorm:"size:64" json:"browser"`
	OS             string    `gorm:"column:os;size:64" json:"os"`
	Device         string    `gorm:"size:16" json:"device"`
	BrowserVersion *string   `gorm:"size:64" json:"browser_version,omitempty"`
	OSVersion      *string   `gorm:"column:os_version;size:64" json:"os_version,omitempty"`
	DeviceModel    *string   `gorm:"size:128" json:"device_model,omitempty"`
	Country        *string   `gorm:"size:8" json:"country,omitempty"`
	Region         *string   `gorm:"size:64" json:"region,omitempty"`
}

// TableName returns the table name for ShortLinkClick
func (ShortLinkClick) TableName() string { return "short_link_clicks" }

// ShortLinkClickFilter provides filter fields for click queries
type ShortLinkClickFilter struct {
	ShortLinkID  *uint
	ShortLinkIDs []uint
	Code         *string
	IP           *string
	Since        *time.Time
	Until        *time.Time
}
