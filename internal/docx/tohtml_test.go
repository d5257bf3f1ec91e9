package docx

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestToHTML - Block Structure
// ---------------------------------------------------------------------------

func TestToHTML_Blocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []string
		not  []string
	}{
		{
			name: "plain paragraph",
			body: para("Hello world"),
			want: []string{"<p>Hello world</p>"},
		},
		{
			name: "title and heading styles",
			body: `<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Offer Letter</w:t></w:r></w:p>` +
				`<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Terms</w:t></w:r></w:p>`,
			want: []string{"<h1>Offer Letter</h1>", "<h2>Terms</h2>"},
		},
		{
			name: "centered paragraph",
			body: `<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:t>Centered</w:t></w:r></w:p>`,
			want: []string{`<p style="text-align:center">Centered</p>`},
		},
		{
			name: "empty paragraphs dropped",
			body: `<w:p></w:p><w:p><w:r><w:t>  </w:t></w:r></w:p>` + para("kept"),
			want: []string{"<p>kept</p>"},
			not:  []string{"<p></p>", "<p>  </p>"},
		},
		{
			name: "text is html escaped",
			body: para("R&amp;D &lt;team&gt;"),
			want: []string{"<p>R&amp;D &lt;team&gt;</p>"},
		},
		{
			name: "bullet list",
			body: `<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/></w:numPr></w:pPr><w:r><w:t>one</w:t></w:r></w:p>` +
				`<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/></w:numPr></w:pPr><w:r><w:t>two</w:t></w:r></w:p>` +
				para("after"),
			want: []string{"<ul>\n<li>one</li>\n<li>two</li>\n</ul>\n<p>after</p>"},
		},
		{
			name: "table",
			body: `<w:tbl><w:tr><w:tc>` + para("A1") + `</w:tc><w:tc>` + para("B1") + `</w:tc></w:tr></w:tbl>`,
			want: []string{"<table>", "<tr><td><p>A1</p>\n</td><td><p>B1</p>\n</td></tr>", "</table>"},
		},
		{
			name: "line break and tab",
			body: `<w:p><w:r><w:t>a</w:t><w:br/><w:t>b</w:t><w:tab/><w:t>c</w:t></w:r></w:p>`,
			want: []string{"<p>a<br>b&emsp;c</p>"},
		},
		{
			name: "deleted and instruction text skipped",
			body: `<w:p><w:r><w:instrText>PAGE</w:instrText></w:r>` +
				`<w:del><w:r><w:delText>gone</w:delText></w:r></w:del>` +
				`<w:r><w:t>visible</w:t></w:r></w:p>`,
			want: []string{"<p>visible</p>"},
			not:  []string{"PAGE", "gone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pkg := mustOpen(t, buildPackage(t, map[string]string{MainPart: wrapBody(tt.body)}))
			got, err := ToHTML(pkg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q in:\n%s", w, got)
				}
			}
			for _, n := range tt.not {
				if strings.Contains(got, n) {
					t.Errorf("unexpected %q in:\n%s", n, got)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestToHTML - Inline Formatting
// ---------------------------------------------------------------------------

func TestToHTML_RunFormatting(t *testing.T) {
	t.Parallel()

	body := `<w:p>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>bold</w:t></w:r>` +
		`<w:r><w:t xml:space="preserve"> </w:t></w:r>` +
		`<w:r><w:rPr><w:i/><w:u w:val="single"/></w:rPr><w:t>both</w:t></w:r>` +
		`<w:r><w:rPr><w:b w:val="0"/></w:rPr><w:t>off</w:t></w:r>` +
		`<w:r><w:rPr><w:strike/></w:rPr><w:t>old</w:t></w:r>` +
		`</w:p>`

	pkg := mustOpen(t, buildPackage(t, map[string]string{MainPart: wrapBody(body)}))
	got, err := ToHTML(pkg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "<p><strong>bold</strong> <em><u>both</u></em>off<s>old</s></p>"
	if !strings.Contains(got, want) {
		t.Errorf("got %q, want it to contain %q", got, want)
	}
}

func TestToHTML_Hyperlinks(t *testing.T) {
	t.Parallel()

	body := `<w:p><w:hyperlink r:id="rId5"><w:r><w:t>portal</w:t></w:r></w:hyperlink>` +
		`<w:r><w:t xml:space="preserve"> and </w:t></w:r>` +
		`<w:hyperlink w:anchor="terms"><w:r><w:t>terms</w:t></w:r></w:hyperlink></w:p>`
	rels := `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" ` +
		`Target="https://example.com/portal?a=1&amp;b=2" TargetMode="External"/>` +
		`</Relationships>`

	pkg := mustOpen(t, buildPackage(t, map[string]string{
		MainPart:                       wrapBody(body),
		"word/_rels/document.xml.rels": rels,
	}))
	got, err := ToHTML(pkg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, w := range []string{
		`<a href="https://example.com/portal?a=1&amp;b=2">portal</a>`,
		`<a href="#terms">terms</a>`,
	} {
		if !strings.Contains(got, w) {
			t.Errorf("missing %q in %q", w, got)
		}
	}
}

func TestToHTML_EmbeddedImage(t *testing.T) {
	t.Parallel()

	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	body := `<w:p><w:r><w:drawing><wp:inline><wp:extent cx="952500" cy="476250"/>` +
		`<a:graphic><a:graphicData><a:blip r:embed="rIdLogo"/></a:graphicData></a:graphic>` +
		`</wp:inline></w:drawing></w:r></w:p>`
	rels := `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rIdLogo" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" ` +
		`Target="media/logo.png"/></Relationships>`

	pkg := mustOpen(t, buildPackage(t, map[string]string{
		MainPart:                       wrapBody(body),
		"word/_rels/document.xml.rels": rels,
		"word/media/logo.png":          string(png),
	}))
	got, err := ToHTML(pkg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `<img src="data:image/png;base64,` + base64.StdEncoding.EncodeToString(png) + `" width="100" height="50">`
	if !strings.Contains(got, want) {
		t.Errorf("got %q, want it to contain %q", got, want)
	}
}

func TestToHTML_MalformedXML(t *testing.T) {
	t.Parallel()

	pkg := mustOpen(t, buildPackage(t, map[string]string{MainPart: "<w:document><w:body><w:p>"}))
	if _, err := ToHTML(pkg); !errors.Is(err, ErrConversion) {
		t.Errorf("expected ErrConversion, got %v", err)
	}
}

func TestImageMediaType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"media/a.PNG":  "image/png",
		"media/a.jpeg": "image/jpeg",
		"media/a.jpg":  "image/jpeg",
		"media/a.gif":  "image/gif",
		"media/a.svg":  "image/svg+xml",
		"media/a.emf":  "image/png",
	}
	for name, want := range tests {
		if got := imageMediaType(name); got != want {
			t.Errorf("imageMediaType(%q) = %q, want %q", name, got, want)
		}
	}
}
