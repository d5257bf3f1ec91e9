// Package qr generates verification QR codes for documents.
package qr

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrEncode indicates the QR payload could not be encoded.
var ErrEncode = errors.New("qr encoding failed")

// Size bounds in pixels.
const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 2048
)

// Generator builds QR codes pointing at a verification URL.
type Generator struct {
	baseURL string
	size    int
}

// NewGenerator creates a Generator for baseURL.
// size is clamped to [MinSize, MaxSize]; 0 means DefaultSize.
func NewGenerator(baseURL string, size int) *Generator {
	switch {
	case size == 0:
		size = DefaultSize
	case size < MinSize:
		size = MinSize
	case size > MaxSize:
		size = MaxSize
	}
	return &Generator{baseURL: strings.TrimSpace(baseURL), size: size}
}

// Enabled reports whether a verification base URL is configured.
func (g *Generator) Enabled() bool {
	return g != nil && g.baseURL != ""
}

// VerifyURL returns the verification address for certificateID.
// The id is appended as an escaped path segment.
func (g *Generator) VerifyURL(certificateID string) string {
	return strings.TrimRight(g.baseURL, "/") + "/" + url.PathEscape(certificateID)
}

// PNG encodes the verification URL for certificateID as a PNG image.
func (g *Generator) PNG(certificateID string) ([]byte, error) {
	png, err := qrcode.Encode(g.VerifyURL(certificateID), qrcode.Medium, g.size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return png, nil
}
