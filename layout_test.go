package certgen

import (
	"math"
	"testing"

	"github.com/alnah/go-certgen/internal/compose"
)

func TestLayoutFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		doc           DocumentType
		kind          TemplateKind
		want          Layout
		wantLandscape bool
		wantMarginCM  float64
		wantCompose   string
	}{
		{
			name:          "certificate on image is landscape full bleed",
			doc:           DocumentCertificate,
			kind:          TemplateImage,
			want:          LayoutCertificateImage,
			wantLandscape: true,
			wantCompose:   compose.LayoutCertificate,
		},
		{
			name:        "offer letter on image is portrait full bleed",
			doc:         DocumentOfferLetter,
			kind:        TemplateImage,
			want:        LayoutOfferLetterImage,
			wantCompose: compose.LayoutOfferLetter,
		},
		{
			name:         "certificate on office document is portrait with margins",
			doc:          DocumentCertificate,
			kind:         TemplateOffice,
			want:         LayoutOfficeDocument,
			wantMarginCM: 2,
			wantCompose:  compose.LayoutOffice,
		},
		{
			name:         "offer letter on office document is portrait with margins",
			doc:          DocumentOfferLetter,
			kind:         TemplateOffice,
			want:         LayoutOfficeDocument,
			wantMarginCM: 2,
			wantCompose:  compose.LayoutOffice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := LayoutFor(tt.doc, tt.kind)
			if got != tt.want {
				t.Fatalf("LayoutFor(%s, %s) = %s, want %s", tt.doc, tt.kind, got, tt.want)
			}
			if got.Landscape() != tt.wantLandscape {
				t.Errorf("Landscape() = %v, want %v", got.Landscape(), tt.wantLandscape)
			}
			if margin := got.MarginInches() * cmPerInch; math.Abs(margin-tt.wantMarginCM) > 1e-9 {
				t.Errorf("margin = %.3fcm, want %.3fcm", margin, tt.wantMarginCM)
			}
			if got.ComposeLayout() != tt.wantCompose {
				t.Errorf("ComposeLayout() = %q, want %q", got.ComposeLayout(), tt.wantCompose)
			}
		})
	}
}

func TestLayout_UnknownFallsBackToCertificate(t *testing.T) {
	t.Parallel()

	var l Layout
	if l.String() != LayoutCertificateImage.String() {
		t.Errorf("zero layout String() = %q, want %q", l.String(), LayoutCertificateImage.String())
	}
	if !l.Landscape() {
		t.Error("zero layout should use the certificate policy")
	}
}

func TestTemplateKind_String(t *testing.T) {
	t.Parallel()

	if TemplateImage.String() != "image" || TemplateOffice.String() != "office" {
		t.Errorf("got %q and %q", TemplateImage, TemplateOffice)
	}
}
