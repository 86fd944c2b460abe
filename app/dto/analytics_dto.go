package dto

// DayVisits is the per day visit and distinct visitor count
type DayVisits struct {
	Date     string `json:"date"`
	Visits   int    `json:"visits"`
	Visitors int    `json:"visitors"`
}

// LinkAnalyticsResponse is the full analytics report of one link
type LinkAnalyticsResponse struct {
	ShortCode              string         `json:"shortCode"`
	ShortURL               string         `json:"shortUrl"`
	OriginalURL            string         `json:"originalUrl"`
	IsActive               bool           `json:"isActive"`
	ClickCount             int64          `json:"clickCount"`
	UniqueVisitors         int            `json:"uniqueVisitors"`
	CreatedAt              string         `json:"createdAt"`
	ExpiresAt              *string        `json:"expiresAt"`
	LastAccessed           *string        `json:"lastAccessed"`
	Clicks                 []ClickDTO     `json:"clicks"`
	ClicksByDay            map[string]int `json:"clicksByDay"`
	ClicksByReferer        map[string]int `json:"clicksByReferer"`
	ClicksByBrowser        map[string]int `json:"clicksByBrowser"`
	ClicksByOS             map[string]int `json:"clicksByOS"`
	ClicksByDevice         map[string]int `json:"clicksByDevice"`
	ClicksByCountry        map[string]int `json:"clicksByCountry"`
	ClicksByRegion         map[string]int `json:"clicksByRegion"`
	VisitsAndVisitorsByDay []DayVisits    `json:"visitsAndVisitorsByDay"`
}

// DashboardRequest scopes the dashboard to one owner when OwnerID is set
type DashboardRequest struct {
	OwnerID *string `validate:"omitempty,max=128"`
}

// DashboardResponse summarises active links
type DashboardResponse struct {
	TotalUrls       int64          `json:"totalUrls"`
	TotalClicks     int64          `json:"totalClicks"`
	RecentUrls      []ShortLinkDTO `json:"recentUrls"`
	ClicksByDay     map[string]int `json:"clicksByDay"`
	ClicksByReferer map[string]int `json:"clicksByReferer"`
	TopUrls         []ShortLinkDTO `json:"topUrls"`
}

// ExportClicksRequest selects the export encoding
type ExportClicksRequest struct {
	Format string `query:"format" validate:"omitempty,oneof=csv xlsx"`
}
