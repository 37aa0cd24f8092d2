package blob

import (
	"fmt"
	"path"
	"strings"
	"time"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageExtension returns the file extension for an allowed image content type.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := imageExtensions[contentType]
	return ext, ok
}

// ImageKey builds images/YYYY/MM/<id><ext>.
func ImageKey(now time.Time, id, ext string) string {
	now = now.UTC()
	return fmt.Sprintf("images/%04d/%02d/%s%s", now.Year(), int(now.Month()), id, ext)
}

// CleanKey rejects keys that escape the bucket namespace.
func CleanKey(key string) (string, bool) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "\\") {
		return "", false
	}
	cleaned := path.Clean(key)
	if cleaned != key || strings.HasPrefix(cleaned, "..") {
		return "", false
	}
	return cleaned, true
}
