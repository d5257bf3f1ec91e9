package assets

import (
	"path"
	"strings"
)

// Built-in layout names.
const (
	LayoutOffice      = "office"
	LayoutCertificate = "certificate"
	LayoutOfferLetter = "offer-letter"
)

// Blob is a binary asset with its media type.
type Blob struct {
	Name      string // file name the blob was read from
	Data      []byte
	MediaType string
}

// ImageExtensions lists background and image template extensions in lookup order.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".svg", ".webp"}

// TemplateExtensions lists caller template extensions in lookup order.
var TemplateExtensions = append([]string{".docx"}, ImageExtensions...)

// MediaTypeDocx is the media type of word-processing packages.
const MediaTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// MediaType returns the media type for a template or image file name.
// Returns "" for unsupported extensions.
func MediaType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".docx":
		return MediaTypeDocx
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	}
	return ""
}

// IsImage reports whether the media type is one of the supported images.
func IsImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}
