package docx

import (
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRenderPart - Simple Fields
// ---------------------------------------------------------------------------

func TestRenderPart_Fields(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"name":   "Asha Rao",
		"course": "Cloud Fundamentals",
		"year":   3,
		"nested": map[string]any{"city": "Chennai"},
		"markup": `R&D <lab> "x"`,
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "single field",
			input: "<w:t>{{name}}</w:t>",
			want:  "<w:t>Asha Rao</w:t>",
		},
		{
			name:  "spaces inside tag",
			input: "<w:t>{{ name }}</w:t>",
			want:  "<w:t>Asha Rao</w:t>",
		},
		{
			name:  "non string value",
			input: "<w:t>Year {{year}}</w:t>",
			want:  "<w:t>Year 3</w:t>",
		},
		{
			name:  "dotted lookup",
			input: "<w:t>{{nested.city}}</w:t>",
			want:  "<w:t>Chennai</w:t>",
		},
		{
			name:  "values are xml escaped",
			input: "<w:t>{{markup}}</w:t>",
			want:  "<w:t>R&amp;D &lt;lab&gt; &quot;x&quot;</w:t>",
		},
		{
			name:  "text without fields untouched",
			input: "<w:t>static</w:t>",
			want:  "<w:t>static</w:t>",
		},
	}

	r := NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.RenderPart(tt.input, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderPart_NullGetter(t *testing.T) {
	t.Parallel()

	t.Run("missing keys render empty", func(t *testing.T) {
		t.Parallel()

		input := "<w:t>{{name}}|{{department}}|{{nested.missing}}|{{nil}}</w:t>"
		got, err := NewRenderer().RenderPart(input, map[string]any{"name": "A", "nil": nil})
		if err != nil {
			t.Fatalf("missing keys must not fail: %v", err)
		}
		if want := "<w:t>A|||</w:t>"; got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()

		got, err := NewRenderer().RenderPart("<w:t>{{a}}{{b}}</w:t>", nil)
		if err != nil {
			t.Fatalf("nil context must not fail: %v", err)
		}
		if got != "<w:t></w:t>" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("custom null getter", func(t *testing.T) {
		t.Parallel()

		r := NewRenderer(WithNullGetter(func(name string) string { return "[" + name + "]" }))
		got, err := r.RenderPart("<w:t>{{who}}</w:t>", map[string]any{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "<w:t>[who]</w:t>" {
			t.Errorf("got %q", got)
		}
	})
}

func TestRenderPart_Linebreaks(t *testing.T) {
	t.Parallel()

	data := map[string]any{"address": "12 Main St\nChennai"}

	got, err := NewRenderer().RenderPart(`<w:t xml:space="preserve">{{address}}</w:t>`, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "12 Main St</w:t><w:br/><w:t") {
		t.Errorf("newline not converted to line break: %q", got)
	}

	got, err = NewRenderer(WithLinebreaks(false)).RenderPart(`<w:t>{{address}}</w:t>`, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "<w:br/>") {
		t.Errorf("line break inserted with linebreaks disabled: %q", got)
	}
}

// ---------------------------------------------------------------------------
// TestRenderPart - Sections
// ---------------------------------------------------------------------------

func TestRenderPart_LineLoop(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"skills": []map[string]any{{"label": "Go"}, {"label": "SQL"}},
		"tags":   []string{"a", "b", "c"},
		"show":   true,
		"hide":   false,
		"empty":  []string{},
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "list of maps",
			input: "<w:p><w:t>{{#skills}}{{label}}, {{/skills}}</w:t></w:p>",
			want:  "<w:p><w:t>Go, SQL, </w:t></w:p>",
		},
		{
			name:  "list of scalars via dot",
			input: "<w:t>{{#tags}}[{{.}}]{{/tags}}</w:t>",
			want:  "<w:t>[a][b][c]</w:t>",
		},
		{
			name:  "truthy condition",
			input: "<w:t>{{#show}}yes{{/show}}</w:t>",
			want:  "<w:t>yes</w:t>",
		},
		{
			name:  "falsy condition",
			input: "<w:t>{{#hide}}yes{{/hide}}</w:t>",
			want:  "<w:t></w:t>",
		},
		{
			name:  "missing section removed",
			input: "<w:t>a{{#nothing}}b{{/nothing}}c</w:t>",
			want:  "<w:t>ac</w:t>",
		},
		{
			name:  "inverted section on empty list",
			input: "<w:t>{{^empty}}none{{/empty}}</w:t>",
			want:  "<w:t>none</w:t>",
		},
		{
			name:  "outer scope visible inside loop",
			input: "<w:t>{{#tags}}{{.}}-{{show}} {{/tags}}</w:t>",
			want:  "<w:t>a-true b-true c-true </w:t>",
		},
	}

	r := NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.RenderPart(tt.input, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderPart_ParagraphLoop(t *testing.T) {
	t.Parallel()

	input := para("Header") +
		para("{{#items}}") +
		para("Item {{name}}") +
		para("{{/items}}") +
		para("Footer")
	data := map[string]any{
		"items": []map[string]any{{"name": "one"}, {"name": "two"}},
	}

	got, err := NewRenderer().RenderPart(input, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := para("Header") + para("Item one") + para("Item two") + para("Footer")
	if got != want {
		t.Errorf("paragraph loop:\n got %q\nwant %q", got, want)
	}

	t.Run("disabled keeps tag paragraphs", func(t *testing.T) {
		t.Parallel()

		got, err := NewRenderer(WithParagraphLoop(false)).RenderPart(input, data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == want {
			t.Error("tag paragraphs removed with paragraph loop disabled")
		}
		if !strings.Contains(got, "Item one") || !strings.Contains(got, "Item two") {
			t.Errorf("loop body not repeated: %q", got)
		}
	})

	t.Run("empty list removes block", func(t *testing.T) {
		t.Parallel()

		got, err := NewRenderer().RenderPart(input, map[string]any{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := para("Header") + para("Footer"); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestRender_Package(t *testing.T) {
	t.Parallel()

	pkg := mustOpen(t, buildPackage(t, map[string]string{
		MainPart:           wrapBody(para("Dear {{name}}")),
		"word/header1.xml": `<w:hdr>` + para("{{organization}}") + `</w:hdr>`,
	}))

	err := NewRenderer().Render(pkg, map[string]any{"name": "Asha", "organization": "Acme"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	body, _ := pkg.Part(MainPart)
	if !strings.Contains(string(body), "Dear Asha") {
		t.Errorf("body not rendered: %s", body)
	}
	header, _ := pkg.Part("word/header1.xml")
	if !strings.Contains(string(header), "Acme") {
		t.Errorf("header not rendered: %s", header)
	}
}

// ---------------------------------------------------------------------------
// TestRenderPart - Content Errors
// ---------------------------------------------------------------------------

func TestRenderPart_ContentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "unclosed tag", input: "<w:t>{{name</w:t>"},
		{name: "empty tag", input: "<w:t>{{ }}</w:t>"},
		{name: "unclosed section", input: "{{#items}}x"},
		{name: "unopened close", input: "x{{/items}}"},
		{name: "mismatched close", input: "{{#a}}x{{/b}}"},
		{name: "raw xml tag", input: "{{%image}}"},
		{name: "partial", input: "{{>partial}}"},
		{name: "delimiter change", input: "{{=<% %>=}}"},
		{name: "angular expression", input: "{{@rawXml}}"},
		{name: "section without name", input: "{{#}}{{/}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRenderer().RenderPart(tt.input, map[string]any{})
			if !errors.Is(err, ErrTemplateContent) {
				t.Errorf("expected ErrTemplateContent, got %v", err)
			}
		})
	}
}

func TestRender_ErrorLeavesPackageUntouched(t *testing.T) {
	t.Parallel()

	original := wrapBody(para("{{#open}}"))
	pkg := mustOpen(t, buildPackage(t, map[string]string{MainPart: original}))

	if err := NewRenderer().Render(pkg, nil); !errors.Is(err, ErrTemplateContent) {
		t.Fatalf("expected ErrTemplateContent, got %v", err)
	}
	body, _ := pkg.Part(MainPart)
	if string(body) != original {
		t.Errorf("package modified on failure")
	}
}
