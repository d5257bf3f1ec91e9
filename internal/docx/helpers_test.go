package docx

import (
	"archive/zip"
	"bytes"
	"sort"
	"testing"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" ` +
	`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`

// wrapBody wraps paragraphs in a minimal document element.
func wrapBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`
}

// para builds a single-run paragraph.
func para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

// buildPackage zips the given parts, adding a content-types entry.
func buildPackage(t *testing.T, parts map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, err := w.Create("[Content_Types].xml")
	if err != nil {
		t.Fatalf("creating content types: %v", err)
	}
	_, _ = ct.Write([]byte(`<?xml version="1.0"?><Types/>`))

	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		if _, err := f.Write([]byte(parts[name])); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func mustOpen(t *testing.T, data []byte) *Package {
	t.Helper()

	pkg, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return pkg
}
