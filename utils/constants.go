package utils

import (
	"time"
)

// Context keys shared by handlers and flows
type contextKey string

const (
	RequestIDKey  contextKey = "request_id"
	UserAgentKey  contextKey = "user_agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	TimeoutKey    contextKey = "timeout"
	CancelFuncKey contextKey = "cancel_func"
)

// Short link constants
const (
	// ShortCodeLength is the number of symbols kept from a generated code
	ShortCodeLength = 7

	// MaxGenerateAttempts bounds timestamp-derived candidates before falling back to random codes
	MaxGenerateAttempts = 10

	MinAliasLength = 3
	MaxAliasLength = 20

	// DefaultHistoryLimit is the number of click events kept per link
	DefaultHistoryLimit = 1000

	// LinkCacheTTL is how long a resolved link stays cached (24 hours)
	LinkCacheTTL = 24 * time.Hour

	// LinkCacheKeyPrefix prefixes the cached resolution of a code
	LinkCacheKeyPrefix = "url:"

	// QRCacheKeyPrefix prefixes the cached QR image of a code; only invalidated here
	QRCacheKeyPrefix = "qr:"

	// DashboardRecentLimit is the size of the dashboard's recent window
	DashboardRecentLimit = 100

	// DashboardTopLimit is the size of the dashboard's top list
	DashboardTopLimit = 10
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// LinkCacheKey returns the cache key of a code's resolution
func LinkCacheKey(code string) string {
	return LinkCacheKeyPrefix + code
}

// QRCacheKey returns the cache key of a code's QR image
func QRCacheKey(code string) string {
	return QRCacheKeyPrefix + code
}
