package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-image-identifier/pkg/models"
)

func TestDecodeImage(t *testing.T) {
	img, format, err := DecodeImage(testPNG(t, 3, 2))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if format != "png" {
		t.Errorf("Expected png format, got %s", format)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("Unexpected bounds %v", img.Bounds())
	}

	for _, data := range [][]byte{nil, []byte("plain text, not pixels")} {
		if _, _, err := DecodeImage(data); !errors.Is(err, ErrUndecodable) {
			t.Errorf("Expected ErrUndecodable for %q, got %v", data, err)
		}
	}
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("12345"), 5)
	if err != nil || string(data) != "12345" {
		t.Errorf("Expected exact-limit read to succeed, got %q, %v", data, err)
	}

	if _, err := ReadLimited(strings.NewReader("123456"), 5); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
}

func TestUploadStore(t *testing.T) {
	store := NewUploadStore()

	data := testPNG(t, 1, 1)
	ref1, err := store.Put(&models.ImageFile{Name: "a.png", Data: data})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ref2, _ := store.Put(&models.ImageFile{Name: "a.png", Data: data})

	if !ref1.IsTransient() {
		t.Errorf("Expected transient reference, got %s", ref1)
	}
	if ref1 == ref2 {
		t.Error("Expected each upload to get a distinct reference")
	}

	upload, ok := store.Get(ref1)
	if !ok {
		t.Fatal("Expected upload to be found")
	}
	if upload.Name != "a.png" || upload.ContentType != "image/png" {
		t.Errorf("Unexpected upload %+v", upload)
	}

	if _, err := store.Put(nil); err == nil {
		t.Error("Expected error for nil file")
	}

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Expected empty store after Clear, got %d", store.Len())
	}
	if _, ok := store.Get(ref1); ok {
		t.Error("Expected cleared reference to stop resolving")
	}
}

func TestLocalImageFetcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.png")
	if err := os.WriteFile(path, testPNG(t, 4, 4), 0o644); err != nil {
		t.Fatalf("Failed to write image: %v", err)
	}

	fetcher := NewLocalImageFetcher(1 << 20)

	for _, ref := range []string{path, "file://" + path} {
		img, err := fetcher.FetchImage(context.Background(), ref)
		if err != nil {
			t.Errorf("FetchImage(%s) failed: %v", ref, err)
			continue
		}
		if img.Bounds().Dx() != 4 {
			t.Errorf("Unexpected width %d", img.Bounds().Dx())
		}
	}

	if !IsLocalFile(path) || !IsLocalFile("file://"+path) {
		t.Error("Expected IsLocalFile to accept path and file URL")
	}
	if IsLocalFile(dir) || IsLocalFile(filepath.Join(dir, "missing.png")) {
		t.Error("Expected IsLocalFile to reject directories and missing files")
	}

	file, err := fetcher.OpenImageFile(" " + path + " ")
	if err != nil {
		t.Fatalf("OpenImageFile failed: %v", err)
	}
	if file.Name != "cat.png" {
		t.Errorf("Expected base name, got %s", file.Name)
	}

	if _, err := fetcher.OpenImageFile(""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestSplitBlobURL(t *testing.T) {
	tests := []struct {
		url       string
		container string
		blob      string
		wantErr   bool
	}{
		{"https://acct.blob.core.windows.net/images/cats/tabby.jpg", "images", "cats/tabby.jpg", false},
		{"https://acct.blob.core.windows.net/images", "", "", true},
		{"https://acct.blob.core.windows.net/", "", "", true},
	}

	for _, tt := range tests {
		container, blob, err := SplitBlobURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("SplitBlobURL(%s) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if container != tt.container || blob != tt.blob {
			t.Errorf("SplitBlobURL(%s) = %s, %s", tt.url, container, blob)
		}
	}
}
