package certgen

import "github.com/alnah/go-certgen/internal/compose"

// TemplateKind distinguishes background images from office documents.
type TemplateKind int

// Template kinds.
const (
	TemplateImage TemplateKind = iota
	TemplateOffice
)

// String returns a readable name for logs.
func (k TemplateKind) String() string {
	if k == TemplateOffice {
		return "office"
	}
	return "image"
}

// Layout is the page policy of a render.
type Layout int

// Layouts.
const (
	LayoutCertificateImage Layout = iota + 1
	LayoutOfferLetterImage
	LayoutOfficeDocument
)

// A4 paper in inches, portrait.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	cmPerInch         = 2.54
)

type layoutPolicy struct {
	name      string
	compose   string
	landscape bool
	marginCM  float64
}

var layoutPolicies = map[Layout]layoutPolicy{
	LayoutCertificateImage: {name: "certificate-image", compose: compose.LayoutCertificate, landscape: true},
	LayoutOfferLetterImage: {name: "offer-letter-image", compose: compose.LayoutOfferLetter},
	LayoutOfficeDocument:   {name: "office-document", compose: compose.LayoutOffice, marginCM: 2},
}

// LayoutFor selects the layout for a document type and template kind.
// Office templates always print portrait with margins; image templates
// print full bleed, landscape only for certificates.
func LayoutFor(doc DocumentType, kind TemplateKind) Layout {
	if kind == TemplateOffice {
		return LayoutOfficeDocument
	}
	if doc == DocumentOfferLetter {
		return LayoutOfferLetterImage
	}
	return LayoutCertificateImage
}

func (l Layout) policy() layoutPolicy {
	if p, ok := layoutPolicies[l]; ok {
		return p
	}
	return layoutPolicies[LayoutCertificateImage]
}

// String returns the layout name.
func (l Layout) String() string {
	return l.policy().name
}

// ComposeLayout returns the compose layout used to build the page.
func (l Layout) ComposeLayout() string {
	return l.policy().compose
}

// Landscape reports whether the page prints in landscape.
func (l Layout) Landscape() bool {
	return l.policy().landscape
}

// MarginInches returns the page margin applied to all sides.
func (l Layout) MarginInches() float64 {
	return l.policy().marginCM / cmPerInch
}
