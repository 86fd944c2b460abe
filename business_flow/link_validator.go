package businessflow

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/amirphl/Kusanagi/utils"
)

var (
	maliciousURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)data:`),
		regexp.MustCompile(`(?i)vbscript:`),
		regexp.MustCompile(`(?i)onload=`),
		regexp.MustCompile(`(?i)onerror=`),
	}

	localURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://localhost`),
		regexp.MustCompile(`(?i)^https?://127\.0\.0\.1`),
		regexp.MustCompile(`(?i)^https?://0\.0\.0\.0`),
		regexp.MustCompile(`(?i)^https?://192\.168\.`),
		regexp.MustCompile(`(?i)^https?://10\.`),
		regexp.MustCompile(`(?i)^https?://172\.(1[6-9]|2[0-9]|3[0-1])\.`),
	}

	aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

	reservedAliases = map[string]struct{}{
		"api":       {},
		"admin":     {},
		"analytics": {},
		"health":    {},
		"shorten":   {},
		"redirect":  {},
	}
)

// LinkValidator checks target URLs and custom aliases before anything is persisted
type LinkValidator struct {
	validate   *validator.Validate
	production bool
}

// NewLinkValidator rejects local and internal targets only when production is set
func NewLinkValidator(validate *validator.Validate, production bool) *LinkValidator {
	if validate == nil {
		validate = validator.New()
	}
	return &LinkValidator{validate: validate, production: production}
}

// ValidateURL returns a validation BusinessError describing the first violated rule
func (v *LinkValidator) ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return newValidationError("URL is required", ErrURLRequired)
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return newValidationError("Invalid URL format. Must include http:// or https://", ErrInvalidURL)
	}
	if err := v.validate.Var(raw, "http_url"); err != nil {
		return newValidationError("Invalid URL format. Must include http:// or https://", ErrInvalidURL)
	}

	for _, p := range maliciousURLPatterns {
		if p.MatchString(raw) {
			return newValidationError("URL contains potentially malicious content", ErrMaliciousURL)
		}
	}

	if v.production {
		for _, p := range localURLPatterns {
			if p.MatchString(raw) {
				return newValidationError("Local/internal URLs are not allowed in production", ErrLocalURLNotAllowed)
			}
		}
	}

	return nil
}

// ValidateAlias checks length, charset and reserved words; uniqueness is checked against the store
func (v *LinkValidator) ValidateAlias(alias string) error {
	if alias == "" {
		return newValidationError("Alias is required", ErrInvalidAlias)
	}
	if len(alias) < utils.MinAliasLength || len(alias) > utils.MaxAliasLength {
		return newValidationError("Alias must be between 3 and 20 characters", ErrInvalidAlias)
	}
	if !aliasPattern.MatchString(alias) {
		return newValidationError("Alias can only contain letters, numbers, and hyphens", ErrInvalidAlias)
	}
	if _, reserved := reservedAliases[strings.ToLower(alias)]; reserved {
		return newValidationError("This alias is reserved", ErrAliasReserved)
	}
	return nil
}
