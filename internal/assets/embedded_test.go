package assets

import (
	"errors"
	"html/template"
	"strings"
	"testing"
)

func TestEmbeddedLoader_LoadLayout(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	for _, name := range []string{LayoutOffice, LayoutCertificate, LayoutOfferLetter} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := loader.LoadLayout(name)
			if err != nil {
				t.Fatalf("LoadLayout(%q) error = %v", name, err)
			}
			if _, err := template.New(name).Parse(got); err != nil {
				t.Errorf("built-in layout %q does not parse: %v", name, err)
			}
			if !strings.Contains(got, "@page") {
				t.Errorf("layout %q has no @page rule", name)
			}
		})
	}

	t.Run("unknown layout", func(t *testing.T) {
		t.Parallel()

		_, err := loader.LoadLayout("nonexistent")
		if !errors.Is(err, ErrLayoutNotFound) {
			t.Errorf("LoadLayout() error = %v, want ErrLayoutNotFound", err)
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		t.Parallel()

		_, err := loader.LoadLayout("../layouts/office")
		if !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("LoadLayout() error = %v, want ErrInvalidAssetName", err)
		}
	})
}

func TestEmbeddedLoader_LoadBackground(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	for _, name := range []string{LayoutCertificate, LayoutOfferLetter} {
		blob, err := loader.LoadBackground(name)
		if err != nil {
			t.Fatalf("LoadBackground(%q) error = %v", name, err)
		}
		if blob.MediaType != "image/svg+xml" {
			t.Errorf("LoadBackground(%q).MediaType = %q", name, blob.MediaType)
		}
		if !strings.Contains(string(blob.Data), "<svg") {
			t.Errorf("LoadBackground(%q) is not an svg document", name)
		}
	}

	if _, err := loader.LoadBackground(LayoutOffice); !errors.Is(err, ErrBackgroundNotFound) {
		t.Errorf("LoadBackground(office) error = %v, want ErrBackgroundNotFound", err)
	}
}

func TestEmbeddedLoader_LoadMailTemplate(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	for _, name := range []string{LayoutCertificate, LayoutOfferLetter} {
		got, err := loader.LoadMailTemplate(name)
		if err != nil {
			t.Fatalf("LoadMailTemplate(%q) error = %v", name, err)
		}
		if !strings.HasPrefix(got, "Subject: ") {
			t.Errorf("mail template %q does not start with a subject line", name)
		}
	}

	if _, err := loader.LoadMailTemplate("missing"); !errors.Is(err, ErrMailTemplateNotFound) {
		t.Errorf("LoadMailTemplate() error = %v, want ErrMailTemplateNotFound", err)
	}
}

func TestEmbeddedLoader_LoadTemplate(t *testing.T) {
	t.Parallel()

	_, err := NewEmbeddedLoader().LoadTemplate("anything")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("LoadTemplate() error = %v, want ErrTemplateNotFound", err)
	}
}
