package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const (
	DefaultPhotoSize  = 800
	photoJPEGQuality  = 85
	maxPhotoUploadLen = 10 << 20
)

var (
	ErrPhotoTooLarge   = fmt.Errorf("photo exceeds %d bytes", maxPhotoUploadLen)
	ErrPhotoUnreadable = errors.New("photo is not a supported image")
)

// PreparePhoto decodes an uploaded image, applies its EXIF orientation,
// shrinks it to fit maxSize x maxSize and re-encodes it as JPEG.
func PreparePhoto(r io.Reader, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultPhotoSize
	}

	raw, err := io.ReadAll(io.LimitReader(r, maxPhotoUploadLen+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if len(raw) > maxPhotoUploadLen {
		return nil, ErrPhotoTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhotoUnreadable, err)
	}

	b := img.Bounds()
	if b.Dx() > maxSize || b.Dy() > maxSize {
		img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(photoJPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	return buf.Bytes(), nil
}
