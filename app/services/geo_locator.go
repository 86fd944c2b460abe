package services

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"github.com/amirphl/Kusanagi/models"
)

// GeoLocation is the coarse location of a client IP
type GeoLocation struct {
	Country string
	Region  string
}

// GeoLocator resolves client IPs to a country and region.
// Lookup returns false when nothing is known about the address.
type GeoLocator interface {
	Lookup(ip string) (GeoLocation, bool)
	Close() error
}

// ShouldLocate reports whether ip is worth a lookup: empty, unknown,
// loopback and unspecified addresses are skipped
func ShouldLocate(ip string) bool {
	ip = strings.TrimSpace(ip)
	if ip == "" || strings.EqualFold(ip, models.UnknownClickValue) {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return !addr.IsLoopback() && !addr.IsUnspecified()
}

// MaxMindGeoLocator reads a local MaxMind City database
type MaxMindGeoLocator struct {
	reader *geoip2.Reader
}

// NewMaxMindGeoLocator opens the database at path
func NewMaxMindGeoLocator(path string) (*MaxMindGeoLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %s: %w", path, err)
	}
	return &MaxMindGeoLocator{reader: reader}, nil
}

func (g *MaxMindGeoLocator) Lookup(ip string) (GeoLocation, bool) {
	if !ShouldLocate(ip) {
		return GeoLocation{}, false
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return GeoLocation{}, false
	}

	record, err := g.reader.City(parsed)
	if err != nil {
		return GeoLocation{}, false
	}

	loc := GeoLocation{Country: record.Country.IsoCode}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].IsoCode
		if name, ok := record.Subdivisions[0].Names["en"]; ok && name != "" {
			loc.Region = name
		}
	}
	if loc.Country == "" && loc.Region == "" {
		return GeoLocation{}, false
	}
	return loc, true
}

func (g *MaxMindGeoLocator) Close() error {
	return g.reader.Close()
}

// NoopGeoLocator is used when no database is configured
type NoopGeoLocator struct{}

func (NoopGeoLocator) Lookup(string) (GeoLocation, bool) { return GeoLocation{}, false }

func (NoopGeoLocator) Close() error { return nil }

// NewGeoLocator opens the MaxMind database at path, or returns a no-op locator when path is empty
func NewGeoLocator(path string) (GeoLocator, error) {
	if strings.TrimSpace(path) == "" {
		return NoopGeoLocator{}, nil
	}
	return NewMaxMindGeoLocator(path)
}
