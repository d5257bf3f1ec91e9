package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strings"
	"text/template"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// ErrBodyRender indicates a mail template could not be rendered.
var ErrBodyRender = errors.New("mail body rendering failed")

const subjectPrefix = "Subject:"

// htmlShell wraps the converted markdown fragment.
const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body style="font-family: Arial, Helvetica, sans-serif; font-size: 14px; line-height: 1.5; color: #222;">
%s</body>
</html>
`

// TemplateLoader supplies mail templates by name.
type TemplateLoader interface {
	LoadMailTemplate(name string) (string, error)
}

// BodyData is the context of mail templates.
type BodyData struct {
	Name          string
	Title         string
	CertificateID string
	FileURL       string
	DocumentType  string
	Organization  string
	SignatoryName string
	StartDate     string
	EndDate       string
}

// markdownSafe returns a copy whose free-text fields render as literal text
// in markdown. CertificateID is a validated id and FileURL is built by the
// service, so both are left as is.
func (d *BodyData) markdownSafe() *BodyData {
	safe := *d
	for _, f := range []*string{
		&safe.Name, &safe.Title, &safe.DocumentType, &safe.Organization,
		&safe.SignatoryName, &safe.StartDate, &safe.EndDate,
	} {
		*f = escapeMarkdown(*f)
	}
	return &safe
}

// escapeMarkdown backslash-escapes ASCII punctuation and folds line breaks,
// so the value cannot open links, emphasis or blocks.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\r' || r == '\n':
			b.WriteByte(' ')
		case r < 0x80 && (unicode.IsPunct(r) || unicode.IsSymbol(r)):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Body is a rendered subject with text and HTML alternatives.
type Body struct {
	Subject string
	Text    string
	HTML    string
}

// BodyRenderer turns markdown mail templates into message bodies.
//
// A template starts with a "Subject: ..." line followed by a blank line and
// a markdown body. Both are executed with text/template first; the body is
// then converted to HTML with goldmark. Raw HTML in the markdown is dropped.
type BodyRenderer struct {
	loader TemplateLoader
	md     goldmark.Markdown
}

// NewBodyRenderer creates a BodyRenderer reading templates from loader.
func NewBodyRenderer(loader TemplateLoader) *BodyRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	return &BodyRenderer{loader: loader, md: md}
}

// Render executes the named template with data.
func (r *BodyRenderer) Render(name string, data *BodyData) (*Body, error) {
	if data == nil {
		data = &BodyData{}
	}

	src, err := r.loader.LoadMailTemplate(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBodyRender, err)
	}

	tmpl, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrBodyRender, name, err)
	}

	// The text part keeps the data verbatim; the HTML part is converted from
	// a second execution with escaped data.
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("%w: executing %s: %v", ErrBodyRender, name, err)
	}

	subject, text := splitSubject(out.String())
	if subject == "" {
		return nil, fmt.Errorf("%w: %s has no subject line", ErrBodyRender, name)
	}

	var safeOut bytes.Buffer
	if err := tmpl.Execute(&safeOut, data.markdownSafe()); err != nil {
		return nil, fmt.Errorf("%w: executing %s: %v", ErrBodyRender, name, err)
	}
	_, markdown := splitSubject(safeOut.String())

	var fragment bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &fragment); err != nil {
		return nil, fmt.Errorf("%w: converting %s: %v", ErrBodyRender, name, err)
	}

	return &Body{
		Subject: subject,
		Text:    text,
		HTML:    fmt.Sprintf(htmlShell, html.EscapeString(subject), fragment.String()),
	}, nil
}

// splitSubject separates the leading subject line from the body.
// Line breaks in the subject are folded into spaces.
func splitSubject(content string) (string, string) {
	content = strings.TrimLeft(content, "\r\n")
	first, rest, _ := strings.Cut(content, "\n")
	first = strings.TrimRight(first, "\r")
	if !strings.HasPrefix(first, subjectPrefix) {
		return "", content
	}
	subject := strings.Join(strings.Fields(strings.TrimPrefix(first, subjectPrefix)), " ")
	return subject, strings.TrimLeft(rest, "\r\n")
}
