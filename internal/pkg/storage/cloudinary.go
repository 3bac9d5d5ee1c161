package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v2/log"
)

// CloudinaryUploader stores images as image assets and everything else as
// raw assets.
type CloudinaryUploader struct {
	cld       *cloudinary.Cloudinary
	cloudName string
	folder    string
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret, folder string) (*CloudinaryUploader, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for STORAGE_DRIVER=cloudinary")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld, cloudName: cloudName, folder: strings.Trim(folder, "/")}, nil
}

func (u *CloudinaryUploader) Name() string { return "cloudinary" }

func (u *CloudinaryUploader) Upload(ctx context.Context, key string, body io.Reader, _ string) (*Uploaded, error) {
	resourceType := cloudinaryResourceType(key)
	res, err := u.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		PublicID:     u.publicID(key),
		ResourceType: resourceType,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload %s: %w", key, err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload %s: %s", key, res.Error.Message)
	}
	log.Infof("[Storage] uploaded %s to cloudinary as %s", key, res.PublicID)
	return &Uploaded{Key: key, URL: res.SecureURL}, nil
}

func (u *CloudinaryUploader) Delete(ctx context.Context, key string) error {
	invalidate := true
	res, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     u.publicID(key),
		ResourceType: cloudinaryResourceType(key),
		Invalidate:   &invalidate,
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", key, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy %s: %s", key, res.Error.Message)
	}
	return nil
}

func (u *CloudinaryUploader) PublicURL(key string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/%s/upload/%s", u.cloudName, cloudinaryResourceType(key), u.publicIDWithExt(key))
}

// publicID drops the extension for images; cloudinary appends the format.
func (u *CloudinaryUploader) publicID(key string) string {
	id := key
	if cloudinaryResourceType(key) == "image" {
		id = strings.TrimSuffix(key, path.Ext(key))
	}
	if u.folder == "" {
		return id
	}
	return u.folder + "/" + id
}

func (u *CloudinaryUploader) publicIDWithExt(key string) string {
	if cloudinaryResourceType(key) == "image" {
		return u.publicID(key) + path.Ext(key)
	}
	return u.publicID(key)
}

func cloudinaryResourceType(key string) string {
	if strings.HasPrefix(contentTypeFor(key), "image/") {
		return "image"
	}
	return "raw"
}
