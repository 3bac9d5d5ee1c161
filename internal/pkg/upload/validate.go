package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned for files that are not a decodable photo.
var ErrUnsupportedType = errors.New("only JPG, PNG, GIF and BMP photos are supported")

// Extensions and sniffed types the photo pipeline can decode.
var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
}

// SniffLen is how many leading bytes ValidatePhotoBySniff needs.
const SniffLen = 512

// ValidatePhotoBySniff checks the filename extension and the first bytes of
// the upload against the photo whitelist and returns the detected type.
func ValidatePhotoBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedType
	}

	detected := http.DetectContentType(head)
	if strings.HasPrefix(detected, "text/") || strings.HasPrefix(detected, "application/xhtml") || detected == "image/svg+xml" {
		return "", errors.New("markup content is not allowed")
	}
	if allowedMime[detected] {
		return detected, nil
	}
	return "", ErrUnsupportedType
}
