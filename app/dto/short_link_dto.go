package dto

// CreateShortLinkRequest is the body of POST /api/v1/url/shorten
type CreateShortLinkRequest struct {
	OriginalURL   string  `json:"originalUrl" validate:"required,max=2048"`
	CustomAlias   *string `json:"customAlias,omitempty" validate:"omitempty,max=20"`
	ExpiresInDays *int    `json:"expiresInDays,omitempty" validate:"omitempty,gte=0,lte=3650"`
	OwnerID       *string `json:"ownerId,omitempty" validate:"omitempty,max=128"`
}

// CreateShortLinkResponse is returned for new and de-duplicated links
type CreateShortLinkResponse struct {
	ShortCode   string  `json:"shortCode"`
	ShortURL    string  `json:"shortUrl"`
	OriginalURL string  `json:"originalUrl"`
	ExpiresAt   *string `json:"expiresAt"`
	CreatedAt   string  `json:"createdAt"`
}

// ShortLinkInfoResponse describes a resolvable link
type ShortLinkInfoResponse struct {
	ShortCode   string `json:"shortCode"`
	ShortURL    string `json:"shortUrl"`
	OriginalURL string `json:"originalUrl"`
}

// ShortLinkDTO is the listing representation of a link
type ShortLinkDTO struct {
	ShortCode    string  `json:"shortCode"`
	ShortURL     string  `json:"shortUrl"`
	OriginalURL  string  `json:"originalUrl"`
	CustomAlias  *string `json:"customAlias,omitempty"`
	IsActive     bool    `json:"isActive"`
	ClickCount   int64   `json:"clickCount"`
	CreatedAt    string  `json:"createdAt"`
	ExpiresAt    *string `json:"expiresAt"`
	LastAccessed *string `json:"lastAccessed"`
}

// ClickDTO is one stored click event
type ClickDTO struct {
	Timestamp      string  `json:"timestamp"`
	IP             string  `json:"ip"`
	UserAgent      string  `json:"userAgent"`
	Referer        string  `json:"referer"`
	Browser        string  `json:"browser"`
	BrowserVersion *string `json:"browserVersion,omitempty"`
	OS             string  `json:"os"`
	OSVersion      *string `json:"osVersion,omitempty"`
	Device         string  `json:"device"`
	DeviceModel    *string `json:"deviceModel,omitempty"`
	Country        *string `json:"country,omitempty"`
	Region         *string `json:"region,omitempty"`
}
