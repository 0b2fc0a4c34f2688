package validation

import (
	"testing"

	apperrors "go-image-identifier/internal/errors"
	"go-image-identifier/pkg/models"
)

func TestValidateImageURL(t *testing.T) {
	validator := NewURLValidator()

	tests := []struct {
		name    string
		url     string
		wantMsg string // empty means valid
	}{
		{"plain http", "http://example.com/image.jpg", ""},
		{"https with path", "https://subdomain.example.com/path/to/image.gif", ""},
		{"ip host", "http://192.168.1.1/image.jpg", ""},
		{"uppercase scheme", "HTTPS://example.com/a.png", ""},
		{"empty", "", "URL cannot be empty"},
		{"whitespace", " \t\n", "URL cannot be empty"},
		{"missing scheme", "://missing-scheme", "Invalid URL format"},
		{"relative path", "images/cat.png", "URL scheme not allowed"},
		{"ftp", "ftp://example.com/image.jpg", "URL scheme not allowed"},
		{"file url", "file:///tmp/cat.png", "URL scheme not allowed"},
		{"data url", "data:image/png;base64,iVBORw0KGgo=", "URL scheme not allowed"},
		{"no host", "http:///path", "URL must have a valid host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateImageURL(tt.url)
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("Expected %q to pass validation, got error: %v", tt.url, err)
				}
				return
			}

			appErr, ok := err.(*apperrors.AppError)
			if !ok {
				t.Fatalf("Expected AppError, got: %T (%v)", err, err)
			}
			if appErr.Type != apperrors.ErrorTypeValidation {
				t.Errorf("Expected validation error, got %s", appErr.Type)
			}
			if appErr.Message != tt.wantMsg {
				t.Errorf("Expected %q, got %q", tt.wantMsg, appErr.Message)
			}
		})
	}
}

func TestValidateImageURL_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"https"}, []string{"example.com", "trusted.com"})

	if err := validator.ValidateImageURL("https://trusted.com/image.png"); err != nil {
		t.Errorf("Expected allowed host to pass, got %v", err)
	}

	err := validator.ValidateImageURL("https://untrusted.com/image.png")
	if appErr, ok := err.(*apperrors.AppError); !ok || appErr.Message != "URL host not allowed" {
		t.Errorf("Expected 'URL host not allowed', got %v", err)
	}

	err = validator.ValidateImageURL("http://example.com/image.png")
	if appErr, ok := err.(*apperrors.AppError); !ok || appErr.Message != "URL scheme not allowed" {
		t.Errorf("Expected 'URL scheme not allowed', got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	validator := NewURLValidator()

	tests := []struct {
		ref  models.ImageReference
		want ReferenceKind
	}{
		{"", KindEmpty},
		{"   ", KindEmpty},
		{"blob:7f1c2a9e-0000-4000-8000-000000000000", KindTransient},
		{"http://x/img.png", KindRemote},
		{"https://acct.blob.core.windows.net/images/cat.jpg", KindRemote},
		{"/home/user/cat.png", KindLocal},
		{"file:///home/user/cat.png", KindLocal},
		{"not a url at all", KindLocal},
	}

	for _, tt := range tests {
		if got := validator.KindOf(tt.ref); got != tt.want {
			t.Errorf("KindOf(%q) = %s, want %s", tt.ref, got, tt.want)
		}
	}
}

func TestKindOf_RestrictedHostStaysRemote(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"http", "https"}, []string{"images.example.com"})

	if got := validator.KindOf("https://elsewhere.example.com/cat.png"); got != KindRemote {
		t.Errorf("Expected blocked host to route as %s, got %s", KindRemote, got)
	}
	if err := validator.ValidateImageURL("https://elsewhere.example.com/cat.png"); err == nil {
		t.Error("Expected blocked host to fail validation")
	}
	if err := validator.ValidateImageURL("https://IMAGES.example.com:8443/cat.png"); err != nil {
		t.Errorf("Expected allowed host with port to pass, got %v", err)
	}
}
