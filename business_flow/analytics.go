package businessflow

import (
	"sort"
	"strings"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
)

// Aggregations over stored click events. They are pure and never touch the store.

func countBy(clicks []*models.ShortLinkClick, key func(*models.ShortLinkClick) string) map[string]int {
	out := make(map[string]int)
	for _, c := range clicks {
		out[key(c)]++
	}
	return out
}

func isVisitorIP(ip string) bool {
	return ip != "" && ip != models.UnknownClickValue
}

// ClicksByDay groups clicks by UTC calendar day (YYYY-MM-DD)
func ClicksByDay(clicks []*models.ShortLinkClick) map[string]int {
	return countBy(clicks, func(c *models.ShortLinkClick) string {
		return utils.DayKey(c.Timestamp)
	})
}

// ClicksByReferer groups clicks by referer, empty meaning direct
func ClicksByReferer(clicks []*models.ShortLinkClick) map[string]int {
	return countBy(clicks, func(c *models.ShortLinkClick) string {
		return orDefault(c.Referer, models.DirectReferer)
	})
}

// ClicksByBrowser re-parses the raw user agent of clicks stored without a browser
func ClicksByBrowser(clicks []*models.ShortLinkClick, classifier services.UserAgentClassifier) map[string]int {
	return countBy(clicks, func(c *models.ShortLinkClick) string {
		return derivedOrParsed(c.Browser, c.UserAgent, classifier, func(i services.UserAgentInfo) string { return i.Browser })
	})
}

func ClicksByOS(clicks []*models.ShortLinkClick, classifier services.UserAgentClassifier) map[string]int {
	return countBy(clicks, func(c *models.ShortLinkClick) string {
		return derivedOrParsed(c.OS, c.UserAgent, classifier, func(i services.UserAgentInfo) string { return i.OS })
	})
}

func ClicksByDevice(clicks []*models.ShortLinkClick, classifier services.UserAgentClassifier) map[string]int {
	return countBy(clicks, func(c *models.ShortLinkClick) string {
		return derivedOrParsed(c.Device, c.UserAgent, classifier, func(i services.UserAgentInfo) string { return i.Device })
	})
}

func ClicksByCountry(clicks []*models.ShortLinkClick) map[string]int {
	return countBy(clicks, func(c *models.ShortLinkClick) string {
		return orDefault(utils.Deref(c.Country, ""), models.DeviceUnknown)
	})
}

func ClicksByRegion(clicks []*models.ShortLinkClick) map[string]int {
	return countBy(clicks, func(c *models.ShortLinkClick) string {
		return orDefault(utils.Deref(c.Region, ""), models.DeviceUnknown)
	})
}

// UniqueVisitors counts distinct client IPs, ignoring empty and unknown ones
func UniqueVisitors(clicks []*models.ShortLinkClick) int {
	seen := make(map[string]struct{})
	for _, c := range clicks {
		if isVisitorIP(c.IP) {
			seen[c.IP] = struct{}{}
		}
	}
	return len(seen)
}

// VisitsAndVisitorsByDay returns per day visits and distinct IPs, ordered by day
func VisitsAndVisitorsByDay(clicks []*models.ShortLinkClick) []dto.DayVisits {
	visits := make(map[string]int)
	visitors := make(map[string]map[string]struct{})
	for _, c := range clicks {
		day := utils.DayKey(c.Timestamp)
		visits[day]++
		if _, ok := visitors[day]; !ok {
			visitors[day] = make(map[string]struct{})
		}
		if isVisitorIP(c.IP) {
			visitors[day][c.IP] = struct{}{}
		}
	}

	out := make([]dto.DayVisits, 0, len(visits))
	for day, n := range visits {
		out = append(out, dto.DayVisits{Date: day, Visits: n, Visitors: len(visitors[day])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func derivedOrParsed(stored, rawUA string, classifier services.UserAgentClassifier, pick func(services.UserAgentInfo) string) string {
	if strings.TrimSpace(stored) != "" {
		return stored
	}
	if classifier != nil && strings.TrimSpace(rawUA) != "" {
		if v := pick(classifier.Classify(rawUA)); v != "" {
			return v
		}
	}
	return models.DeviceUnknown
}
