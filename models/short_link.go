package models

import "time"

// ShortLink maps a short code to its target URL
// Code is either generated or a user supplied alias (IsCustom)
// Rows are never hard-deleted; IsActive=false marks soft delete or expiry
// ClickCount only grows, even after click history is truncated
type ShortLink struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Code           string     `gorm:"size:20;not null;uniqueIndex:uk_short_links_code" json:"code"`
	TargetURL      string     `gorm:"column:target_url;type:text;not null;index:idx_short_links_target_url" json:"target_url"`
	CustomAlias    *string    `gorm:"size:20;index:idx_short_links_custom_alias" json:"custom_alias,omitempty"`
	IsCustom       bool       `gorm:"not null;default:false" json:"is_custom"`
	OwnerID        *string    `gorm:"size:128;index:idx_short_links_owner_id" json:"owner_id,omitempty"`
	ExpiresAt      *time.Time `gorm:"index:idx_short_links_expires_at" json:"expires_at,omitempty"`
	IsActive       bool       `gorm:"not null;default:true;index:idx_short_links_is_active" json:"is_active"`
	ClickCount     int64      `gorm:"not null;default:0;index:idx_short_links_click_count" json:"click_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_short_links_created_at" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for ShortLink
func (ShortLink) TableName() string { return "short_links" }

// ShortLinkFilter provides filter fields for repository queries
type ShortLinkFilter struct {
	ID            *uint
	Code          *string
	TargetURL     *string
	CustomAlias   *string
	OwnerID       *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ExpiresBefore *time.Time
}
