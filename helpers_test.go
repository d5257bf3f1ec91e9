package certgen

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alnah/go-certgen/internal/callback"
	"github.com/alnah/go-certgen/internal/mailer"
)

// fakePDF is returned by fakeRenderer.
var fakePDF = []byte("%PDF-1.7\n% fake\n%%EOF")

// renderCall records one fakeRenderer.Render invocation.
type renderCall struct {
	HTML   string
	Layout Layout
}

// fakeRenderer implements Renderer and pdfRenderer without a browser.
type fakeRenderer struct {
	mu     sync.Mutex
	calls  []renderCall
	closed int
	err    error
	panic  any
}

func (f *fakeRenderer) Render(ctx context.Context, html string, layout Layout) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, renderCall{HTML: html, Layout: layout})
	f.mu.Unlock()

	if f.panic != nil {
		panic(f.panic)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return fakePDF, nil
}

func (f *fakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeRenderer) Calls() []renderCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]renderCall(nil), f.calls...)
}

// fakeMailer implements mailer.Mailer.
type fakeMailer struct {
	mu   sync.Mutex
	sent []*mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg *mailer.Message) (*mailer.Receipt, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return &mailer.Receipt{MessageID: "<msg-1@school.example>", Provider: "fake"}, nil
}

func (f *fakeMailer) Provider() string { return "fake" }

func (f *fakeMailer) Sent() []*mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*mailer.Message(nil), f.sent...)
}

// recordingNotifier implements Notifier and keeps every payload.
type recordingNotifier struct {
	mu       sync.Mutex
	payloads []*callback.Payload
	targets  []string
	err      error
	panic    any
}

func (n *recordingNotifier) Notify(_ context.Context, target string, p *callback.Payload) error {
	n.mu.Lock()
	n.payloads = append(n.payloads, p)
	n.targets = append(n.targets, target)
	n.mu.Unlock()

	if n.panic != nil {
		panic(n.panic)
	}
	return n.err
}

func (n *recordingNotifier) Payloads() []*callback.Payload {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*callback.Payload(nil), n.payloads...)
}

// validRequest returns a certificate request that passes Validate.
func validRequest() *Request {
	return &Request{
		StudentData: &StudentData{
			Name:            "Asha Rao",
			Email:           "asha@student.example",
			RegisterNumber:  "REG-042",
			Department:      "Computer Science",
			Year:            "3",
			InstitutionName: "City College",
			City:            "Chennai",
			State:           "Tamil Nadu",
			Pincode:         "600001",
		},
		CourseData: CourseData{
			Title:     "Cloud Fundamentals",
			StartDate: "2026-01-05",
			EndDate:   "2026-03-27",
		},
		CertificateID: "CERT-001",
		CallbackURL:   "http://lms.example/callback",
	}
}

// buildDocx zips a minimal word-processing package around body.
func buildDocx(t *testing.T, body string) []byte {
	t.Helper()

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body + `</w:body></w:document>`

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types/>`,
		"word/document.xml":   document,
	} {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// wpara builds a single-run paragraph.
func wpara(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

var errBoom = errors.New("boom")

// Compile-time interface checks.
var (
	_ pdfRenderer   = (*fakeRenderer)(nil)
	_ Renderer      = (*fakeRenderer)(nil)
	_ Notifier      = (*recordingNotifier)(nil)
	_ mailer.Mailer = (*fakeMailer)(nil)
)
