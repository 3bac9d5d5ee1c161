package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/env"
)

var ErrDisabled = errors.New("object storage is disabled")

// Uploaded describes a stored object.
type Uploaded struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Uploader stores objects under slash separated keys.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (*Uploaded, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	Name() string
}

// NewUploaderFromEnv picks the driver named by STORAGE_DRIVER (s3, cloudinary, none).
func NewUploaderFromEnv(ctx context.Context) (Uploader, error) {
	switch driver := strings.ToLower(env.GetEnv("STORAGE_DRIVER", "none")); driver {
	case "s3":
		cfg, err := LoadS3Config()
		if err != nil {
			return nil, err
		}
		return NewS3Uploader(ctx, cfg)
	case "cloudinary":
		return NewCloudinaryUploader(
			env.GetEnv("CLOUDINARY_CLOUD_NAME", ""),
			env.GetEnv("CLOUDINARY_API_KEY", ""),
			env.GetEnv("CLOUDINARY_API_SECRET", ""),
			env.GetEnv("CLOUDINARY_FOLDER", "spin8"),
		)
	case "none", "":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
}

// ReceiptKey is receipts/YYYY/MM/<id>.html in UTC.
func ReceiptKey(id string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("receipts/%04d/%02d/%s.html", at.Year(), int(at.Month()), id)
}

// Photo kinds accepted by PhotoKey.
const (
	PhotoInstructor = "instructor"
	PhotoMember     = "member"
)

func ValidPhotoKind(kind string) bool {
	return kind == PhotoInstructor || kind == PhotoMember
}

// PhotoKey is photos/<kind>/<uuid>.jpg.
func PhotoKey(kind string) string {
	return fmt.Sprintf("photos/%s/%s.jpg", kind, uuid.New().String())
}

// None is the disabled driver.
type None struct{}

func (None) Upload(context.Context, string, io.Reader, string) (*Uploaded, error) {
	return nil, ErrDisabled
}

func (None) Delete(context.Context, string) error { return ErrDisabled }

func (None) PublicURL(string) string { return "" }

func (None) Name() string { return "none" }

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(key, ".jpg"), strings.HasSuffix(key, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
