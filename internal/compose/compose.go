// Package compose assembles the printable HTML page for a document.
//
// Three html/template layouts are supported: office (converted document
// body in an A4 portrait shell), certificate (landscape background with two
// centered lines) and offer-letter (portrait background with positioned
// letter blocks). Image layouts overlay an optional QR code with the
// certificate id printed beneath it. Every image is inlined as a data URI so
// the page renders without network access.
package compose

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// Sentinel errors for page composition.
var (
	ErrUnknownLayout = errors.New("unknown layout")
	ErrLayoutParse   = errors.New("layout parsing failed")
	ErrLayoutRender  = errors.New("layout rendering failed")
)

// Layout names understood by the Composer.
const (
	LayoutOffice      = "office"
	LayoutCertificate = "certificate"
	LayoutOfferLetter = "offer-letter"
)

// LayoutLoader supplies layout sources by name.
type LayoutLoader interface {
	LoadLayout(name string) (string, error)
}

// Page holds everything a layout can print.
type Page struct {
	Title string

	// Office layout.
	Body template.HTML

	// Image layouts.
	Background    template.URL
	QRCode        template.URL
	CertificateID string

	// Certificate lines.
	Name        string
	Credentials string
	Institution string

	// Offer-letter blocks.
	Date           string
	RecipientLines []string
	Heading        string
	Paragraph      string
	Position       string
	StartDate      string
	EndDate        string
	Closing        string
	SignatoryName  string
	SignatoryTitle string
	Organization   string
}

// Composer renders pages from parsed layouts.
type Composer struct {
	layouts map[string]*template.Template
}

// New parses the office, certificate and offer-letter layouts.
// Returns ErrLayoutParse if a layout is missing or invalid.
func New(loader LayoutLoader) (*Composer, error) {
	c := &Composer{layouts: make(map[string]*template.Template, 3)}
	for _, name := range []string{LayoutOffice, LayoutCertificate, LayoutOfferLetter} {
		src, err := loader.LoadLayout(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLayoutParse, name, err)
		}
		tmpl, err := template.New(name).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLayoutParse, name, err)
		}
		c.layouts[name] = tmpl
	}
	return c, nil
}

// Compose renders page with the named layout into a standalone document.
func (c *Composer) Compose(ctx context.Context, layout string, page *Page) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	tmpl, ok := c.layouts[layout]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLayout, layout)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrLayoutRender, layout, err)
	}
	return buf.String(), nil
}

// DataURI encodes data as a base64 data URI trusted for src attributes.
func DataURI(mediaType string, data []byte) template.URL {
	return template.URL("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)) // #nosec G203 -- base64 payload
}

// QRSource turns a caller QR payload into an image source.
// Accepts a data:image URI or raw base64 PNG; anything else yields ok=false.
func QRSource(payload string) (template.URL, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", false
	}

	if strings.HasPrefix(payload, "data:") {
		meta, data, found := strings.Cut(payload, ",")
		if !found || !strings.HasPrefix(meta, "data:image/") || !strings.HasSuffix(meta, ";base64") {
			return "", false
		}
		if _, err := base64.StdEncoding.DecodeString(data); err != nil {
			return "", false
		}
		return template.URL(payload), true // #nosec G203 -- validated base64 image
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(raw) == 0 {
		return "", false
	}
	return DataURI("image/png", raw), true
}
