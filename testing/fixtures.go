package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// ShortLinkOption customises a fixture before it is inserted
type ShortLinkOption func(*models.ShortLink)

func WithCode(code string) ShortLinkOption {
	return func(l *models.ShortLink) { l.Code = code }
}

func WithTarget(url string) ShortLinkOption {
	return func(l *models.ShortLink) { l.TargetURL = url }
}

func WithAlias(alias string) ShortLinkOption {
	return func(l *models.ShortLink) {
		l.Code = alias
		l.CustomAlias = utils.ToPtr(alias)
		l.IsCustom = true
	}
}

func WithOwner(owner string) ShortLinkOption {
	return func(l *models.ShortLink) { l.OwnerID = utils.ToPtr(owner) }
}

func WithExpiresAt(t time.Time) ShortLinkOption {
	return func(l *models.ShortLink) { l.ExpiresAt = utils.ToPtr(t.UTC()) }
}

func WithClickCount(n int64) ShortLinkOption {
	return func(l *models.ShortLink) { l.ClickCount = n }
}

func WithCreatedAt(t time.Time) ShortLinkOption {
	return func(l *models.ShortLink) { l.CreatedAt = t.UTC() }
}

// Inactive marks the fixture inactive after insert; the column default would override false on create
func Inactive() ShortLinkOption {
	return func(l *models.ShortLink) { l.IsActive = false }
}

// CreateTestShortLink inserts an active link with a random code unless options say otherwise
func (tf *TestFixtures) CreateTestShortLink(opts ...ShortLinkOption) (*models.ShortLink, error) {
	link := &models.ShortLink{
		Code:      fmt.Sprintf("t%06d", rand.Intn(1000000)),
		TargetURL: fmt.Sprintf("https://example.com/page/%d", rand.Intn(1000000)),
		IsActive:  true,
	}
	for _, opt := range opts {
		opt(link)
	}

	wantActive := link.IsActive
	link.IsActive = true
	if err := tf.DB.DB.Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to create short link %s: %w", link.Code, err)
	}
	if !wantActive {
		if err := tf.DB.DB.Model(link).Update("is_active", false).Error; err != nil {
			return nil, fmt.Errorf("failed to deactivate short link %s: %w", link.Code, err)
		}
		link.IsActive = false
	}
	return link, nil
}

// CreateTestClick inserts a click event without touching the link counter
func (tf *TestFixtures) CreateTestClick(link *models.ShortLink, ip string, at time.Time) (*models.ShortLinkClick, error) {
	click := &models.ShortLinkClick{
		ShortLinkID: link.ID,
		Code:        link.Code,
		Timestamp:   at.UTC(),
		IP:          ip,
		UserAgent:   models.UnknownClickValue,
		Referer:     models.DirectReferer,
		Browser:     models.DeviceUnknown,
		OS:          models.DeviceUnknown,
		Device:      models.DeviceUnknown,
	}
	if err := tf.DB.DB.Create(click).Error; err != nil {
		return nil, fmt.Errorf("failed to create click for %s: %w", link.Code, err)
	}
	return click, nil
}
