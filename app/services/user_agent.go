package services

import (
	"strings"

	"github.com/mileusna/useragent"

	"github.com/amirphl/Kusanagi/models"
)

// UserAgentInfo is the classification of a raw User-Agent header
type UserAgentInfo struct {
	Browser        string
	OS             string
	Device         string
	BrowserVersion *string
	OSVersion      *string
	DeviceModel    *string
}

// UserAgentClassifier turns raw User-Agent strings into browser, OS and device classes
type UserAgentClassifier interface {
	Classify(raw string) UserAgentInfo
}

type userAgentClassifier struct{}

func NewUserAgentClassifier() UserAgentClassifier {
	return userAgentClassifier{}
}

// Classify never fails; anything it cannot recognise becomes Unknown
func (userAgentClassifier) Classify(raw string) UserAgentInfo {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, models.UnknownClickValue) {
		return UserAgentInfo{
			Browser: models.DeviceUnknown,
			OS:      models.DeviceUnknown,
			Device:  models.DeviceUnknown,
		}
	}

	ua := useragent.Parse(trimmed)

	info := UserAgentInfo{
		Browser:        orUnknown(ua.Name),
		OS:             orUnknown(ua.OS),
		BrowserVersion: nonEmpty(ua.Version),
		OSVersion:      nonEmpty(ua.OSVersion),
		DeviceModel:    nonEmpty(ua.Device),
	}

	switch {
	case ua.Tablet:
		info.Device = models.DeviceTablet
	case ua.Mobile:
		info.Device = models.DeviceMobile
	case ua.Desktop:
		info.Device = models.DeviceDesktop
	default:
		info.Device = guessDevice(trimmed, ua.OS)
	}

	return info
}

// guessDevice classifies agents the parser could not place, such as bots and CLI clients
func guessDevice(raw, os string) string {
	lowerOS := strings.ToLower(os)
	if strings.Contains(lowerOS, "android") || strings.Contains(lowerOS, "ios") {
		return models.DeviceMobile
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "mobile"),
		strings.Contains(lower, "android"),
		strings.Contains(lower, "iphone"),
		strings.Contains(lower, "ipod"):
		return models.DeviceMobile
	case strings.Contains(lower, "tablet"), strings.Contains(lower, "ipad"):
		return models.DeviceTablet
	default:
		return models.DeviceDesktop
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.DeviceUnknown
	}
	return s
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
