package validation

import (
	"net"
	"net/url"
	"strings"

	apperrors "go-image-identifier/internal/errors"
	"go-image-identifier/pkg/models"
)

// ReferenceKind describes how an image reference can be resolved
type ReferenceKind string

const (
	KindEmpty     ReferenceKind = "empty"
	KindTransient ReferenceKind = "transient"
	KindRemote    ReferenceKind = "remote"
	KindLocal     ReferenceKind = "local"
)

// URLValidator handles URL validation logic
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL validates if the provided URL can be fetched remotely
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Host) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// KindOf decides how ref should be resolved. Anything that is neither a
// transient reference nor a fetchable URL is treated as a local path.
func (v *URLValidator) KindOf(ref models.ImageReference) ReferenceKind {
	switch {
	case strings.TrimSpace(ref.String()) == "":
		return KindEmpty
	case ref.IsTransient():
		return KindTransient
	case v.isRemoteURL(ref.String()):
		return KindRemote
	default:
		return KindLocal
	}
}

// isRemoteURL reports whether ref has the shape of a fetchable URL. Host
// restrictions are left to ValidateImageURL so a blocked host is reported as
// such instead of being read as a local path.
func (v *URLValidator) isRemoteURL(ref string) bool {
	parsed, err := url.Parse(ref)
	return err == nil && parsed.Host != "" && v.isSchemeAllowed(parsed.Scheme)
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	name := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		name = h
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) || strings.EqualFold(name, allowed) {
			return true
		}
	}
	return false
}
