package certgen

import (
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/assets"
	"github.com/alnah/go-certgen/internal/callback"
	"github.com/alnah/go-certgen/internal/compose"
	"github.com/alnah/go-certgen/internal/dateutil"
	"github.com/alnah/go-certgen/internal/docx"
	"github.com/alnah/go-certgen/internal/logging"
	"github.com/alnah/go-certgen/internal/mailer"
	"github.com/alnah/go-certgen/internal/metrics"
	"github.com/alnah/go-certgen/internal/storage"
)

// Default stage timeouts.
const (
	DefaultMailTimeout     = 30 * time.Second
	DefaultCallbackTimeout = callback.DefaultTimeout
)

// Job statuses reported to metrics.
const (
	statusSent   = "sent"
	statusFailed = "failed"
)

// Renderer turns a composed page into PDF bytes.
// Implemented by RendererPool.
type Renderer interface {
	Render(ctx context.Context, html string, layout Layout) ([]byte, error)
}

// Store persists artifacts and returns their public location.
// Implemented by storage.LocalStore.
type Store interface {
	Save(ctx context.Context, id string, data []byte) (*storage.Artifact, error)
}

// Notifier delivers the terminal outcome of a job.
// Implemented by callback.Notifier.
type Notifier interface {
	Notify(ctx context.Context, target string, p *callback.Payload) error
}

// PageComposer builds printable pages.
// Implemented by compose.Composer.
type PageComposer interface {
	Compose(ctx context.Context, layout string, page *compose.Page) (string, error)
}

// Resolver picks the template of a request.
// Implemented by TemplateResolver.
type Resolver interface {
	Resolve(ctx context.Context, req *Request) (*ResolvedTemplate, error)
}

// MailBodyRenderer renders mail subjects and bodies per document type.
// Implemented by mailer.BodyRenderer.
type MailBodyRenderer interface {
	Render(name string, data *mailer.BodyData) (*mailer.Body, error)
}

// QRCoder generates verification QR codes.
// Implemented by qr.Generator.
type QRCoder interface {
	Enabled() bool
	PNG(certificateID string) ([]byte, error)
}

// DocumentSettings are the organization details printed on documents.
type DocumentSettings struct {
	Organization   string
	SignatoryName  string
	SignatoryTitle string
}

// Generator runs the generation pipeline of one request and reports its
// outcome to the caller's callback URL exactly once.
type Generator struct {
	renderer   Renderer
	mailer     mailer.Mailer
	store      Store
	notifier   Notifier
	resolver   Resolver
	composer   PageComposer
	bodies     MailBodyRenderer
	qr         QRCoder
	dates      *dateutil.Formatter
	document   DocumentSettings
	logger     *zap.Logger
	now        func() time.Time
	mailTO     time.Duration
	callbackTO time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithRenderer sets the PDF renderer.
func WithRenderer(r Renderer) Option {
	return func(g *Generator) { g.renderer = r }
}

// WithMailer sets the mail provider.
func WithMailer(m mailer.Mailer) Option {
	return func(g *Generator) { g.mailer = m }
}

// WithStore sets the artifact store.
func WithStore(s Store) Option {
	return func(g *Generator) { g.store = s }
}

// WithNotifier sets the callback notifier.
func WithNotifier(n Notifier) Option {
	return func(g *Generator) { g.notifier = n }
}

// WithResolver sets the template resolver.
func WithResolver(r Resolver) Option {
	return func(g *Generator) { g.resolver = r }
}

// WithComposer overrides the page composer.
// Defaults to the embedded layouts.
func WithComposer(c PageComposer) Option {
	return func(g *Generator) { g.composer = c }
}

// WithMailBodies overrides the mail body renderer.
// Defaults to the embedded mail templates.
func WithMailBodies(b MailBodyRenderer) Option {
	return func(g *Generator) { g.bodies = b }
}

// WithQR enables QR generation for requests without a QR payload.
func WithQR(q QRCoder) Option {
	return func(g *Generator) { g.qr = q }
}

// WithDateFormatter sets the format of printed dates.
func WithDateFormatter(f *dateutil.Formatter) Option {
	return func(g *Generator) {
		if f != nil {
			g.dates = f
		}
	}
}

// WithDocumentSettings sets the organization details printed on documents.
func WithDocumentSettings(d DocumentSettings) Option {
	return func(g *Generator) { g.document = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = logging.OrNop(l) }
}

// WithMailTimeout bounds the mail stage. Non-positive values are ignored.
func WithMailTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.mailTO = d
		}
	}
}

// WithCallbackTimeout bounds the callback stage. Non-positive values are ignored.
func WithCallbackTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.callbackTO = d
		}
	}
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator.
// Renderer, mailer, store, notifier and resolver are required.
// Returns ErrMissingDependency if one is absent.
func NewGenerator(opts ...Option) (*Generator, error) {
	g := &Generator{
		logger:     zap.NewNop(),
		now:        time.Now,
		mailTO:     DefaultMailTimeout,
		callbackTO: DefaultCallbackTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}

	switch {
	case g.renderer == nil:
		return nil, fmt.Errorf("%w: renderer", ErrMissingDependency)
	case g.mailer == nil:
		return nil, fmt.Errorf("%w: mailer", ErrMissingDependency)
	case g.store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	case g.notifier == nil:
		return nil, fmt.Errorf("%w: notifier", ErrMissingDependency)
	case g.resolver == nil:
		return nil, fmt.Errorf("%w: resolver", ErrMissingDependency)
	}

	if g.dates == nil {
		dates, err := dateutil.NewFormatter(dateutil.DefaultDateFormat)
		if err != nil {
			return nil, err
		}
		g.dates = dates
	}
	if g.composer == nil {
		c, err := compose.New(assets.NewEmbeddedLoader())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompose, err)
		}
		g.composer = c
	}
	if g.bodies == nil {
		g.bodies = mailer.NewBodyRenderer(assets.NewEmbeddedLoader())
	}

	return g, nil
}

// delivery is the outcome of a successful job.
type delivery struct {
	messageID   string
	fileURL     string
	email       string
	generatedAt time.Time
}

// Process generates, stores and mails the document of req, then posts the
// outcome to req.CallbackURL. Exactly one callback is sent whatever happens,
// panics included. The returned error is the fatal job error, if any;
// callback failures are logged only.
func (g *Generator) Process(ctx context.Context, req *Request) (err error) {
	start := time.Now()
	doc := req.DocumentType()
	logger := g.logger.With(
		zap.String("certificate_id", req.CertificateID),
		zap.String("document_type", doc.String()))

	metrics.JobsActive.Inc()

	var out *delivery
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrInternal, r)
			logger.Error("generation panicked", zap.Any("panic", r), zap.Stack("stack"))
		}

		status := statusSent
		if err != nil {
			status = statusFailed
			logger.Error("generation failed", zap.Error(err))
		} else {
			logger.Info("document delivered",
				zap.String("file_url", out.fileURL),
				zap.String("message_id", out.messageID),
				zap.Duration("duration", time.Since(start)))
		}

		g.report(ctx, req, out, err, logger)

		metrics.JobsActive.Dec()
		metrics.JobsTotal.WithLabelValues(doc.String(), status).Inc()
		metrics.JobDuration.WithLabelValues(doc.String()).Observe(time.Since(start).Seconds())
	}()

	out, err = g.generate(ctx, req, logger)
	return err
}

// generate runs every stage up to and including the email.
func (g *Generator) generate(ctx context.Context, req *Request, logger *zap.Logger) (*delivery, error) {
	if req.StudentData == nil {
		return nil, fmt.Errorf("%w: studentData", ErrMissingField)
	}
	doc := req.DocumentType()

	var tmpl *ResolvedTemplate
	err := observe(metrics.StageTemplate, func() (err error) {
		tmpl, err = g.resolver.Resolve(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	layout := LayoutFor(doc, tmpl.Kind)
	logger.Debug("template resolved",
		zap.String("template", tmpl.Source),
		zap.Stringer("kind", tmpl.Kind),
		zap.Stringer("layout", layout))

	var page string
	err = observe(metrics.StageCompose, func() (err error) {
		page, err = g.buildPage(ctx, req, tmpl, layout, logger)
		return err
	})
	if err != nil {
		return nil, err
	}

	var pdf []byte
	err = observe(metrics.StageRender, func() (err error) {
		pdf, err = g.renderer.Render(ctx, page, layout)
		return err
	})
	if err != nil {
		return nil, err
	}

	var artifact *storage.Artifact
	err = observe(metrics.StageStore, func() (err error) {
		artifact, err = g.store.Save(ctx, req.CertificateID, pdf)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	generatedAt := g.now()

	var receipt *mailer.Receipt
	err = observe(metrics.StageMail, func() (err error) {
		receipt, err = g.sendMail(ctx, req, artifact, pdf)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &delivery{
		messageID:   receipt.MessageID,
		fileURL:     artifact.URL,
		email:       strings.TrimSpace(req.StudentData.Email),
		generatedAt: generatedAt,
	}, nil
}

// buildPage composes the printable page for the resolved template.
func (g *Generator) buildPage(ctx context.Context, req *Request, tmpl *ResolvedTemplate, layout Layout, logger *zap.Logger) (string, error) {
	var page *compose.Page
	if tmpl.Kind == TemplateOffice {
		body, err := g.officeBody(req, tmpl, logger)
		if err != nil {
			return "", err
		}
		page = &compose.Page{Title: documentTitle(req), Body: body}
	} else {
		page = g.imagePage(req, tmpl, logger)
	}

	html, err := g.composer.Compose(ctx, layout.ComposeLayout(), page)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompose, err)
	}
	return html, nil
}

// officeBody repairs, fills and converts an office template.
// A failed repair is logged and the unrepaired package is used.
func (g *Generator) officeBody(req *Request, tmpl *ResolvedTemplate, logger *zap.Logger) (template.HTML, error) {
	pkg, err := docx.Open(tmpl.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateContent, err)
	}

	if err := docx.RepairPackage(pkg, docx.DefaultDelimiters); err != nil {
		metrics.RepairFailures.Inc()
		logger.Warn("template repair failed, using original markup", zap.Error(err))
	}

	fields := BuildFields(req, g.dates, g.now())
	if err := docx.NewRenderer().Render(pkg, fields); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateContent, err)
	}

	body, err := docx.ToHTML(pkg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	return template.HTML(body), nil // #nosec G203 -- produced by the converter, text escaped
}

// imagePage fills the positioned blocks of an image layout.
func (g *Generator) imagePage(req *Request, tmpl *ResolvedTemplate, logger *zap.Logger) *compose.Page {
	s := req.StudentData
	page := &compose.Page{
		Title:         documentTitle(req),
		Background:    compose.DataURI(tmpl.MediaType, tmpl.Data),
		QRCode:        g.qrSource(req, logger),
		CertificateID: req.CertificateID,
		Name:          strings.TrimSpace(s.Name),
	}

	if req.DocumentType() == DocumentCertificate {
		page.Credentials = joinNonEmpty(", ", s.RegisterNumber.String(), s.Department.String(), s.Year.String())
		page.Institution = joinNonEmpty(", ", s.InstitutionName.String(), s.City.String(), s.State.String())
		return page
	}

	position := strings.TrimSpace(req.CourseData.Title)
	place := joinNonEmpty(", ", s.City.String(), s.State.String())
	page.Date = g.dates.Format(g.now())
	page.RecipientLines = nonEmpty(
		s.RegisterNumber.String(),
		s.Department.String(),
		s.InstitutionName.String(),
		joinNonEmpty(" - ", place, s.Pincode.String()),
	)
	page.Heading = "Offer Letter"
	page.Paragraph = offerParagraph(position, g.document.Organization)
	page.Position = position
	page.StartDate = g.dates.Reformat(req.CourseData.StartDate.String())
	page.EndDate = g.dates.Reformat(req.CourseData.EndDate.String())
	page.Closing = "We look forward to working with you."
	page.SignatoryName = g.document.SignatoryName
	page.SignatoryTitle = g.document.SignatoryTitle
	page.Organization = g.document.Organization
	return page
}

// qrSource returns the caller QR when valid, else a generated one.
// QR problems never fail the job; the code is left out instead.
func (g *Generator) qrSource(req *Request, logger *zap.Logger) template.URL {
	if req.QRCode != "" {
		if src, ok := compose.QRSource(req.QRCode); ok {
			return src
		}
		logger.Warn("qr code payload is not an image, ignoring it")
	}

	if g.qr == nil || !g.qr.Enabled() {
		return ""
	}
	png, err := g.qr.PNG(req.CertificateID)
	if err != nil {
		logger.Warn("qr generation failed", zap.Error(err))
		return ""
	}
	return compose.DataURI("image/png", png)
}

// sendMail emails the artifact to the student.
func (g *Generator) sendMail(ctx context.Context, req *Request, artifact *storage.Artifact, pdf []byte) (*mailer.Receipt, error) {
	doc := req.DocumentType()
	body, err := g.bodies.Render(doc.String(), &mailer.BodyData{
		Name:          strings.TrimSpace(req.StudentData.Name),
		Title:         strings.TrimSpace(req.CourseData.Title),
		CertificateID: req.CertificateID,
		FileURL:       artifact.URL,
		DocumentType:  doc.String(),
		Organization:  g.document.Organization,
		SignatoryName: g.document.SignatoryName,
		StartDate:     g.dates.Reformat(req.CourseData.StartDate.String()),
		EndDate:       g.dates.Reformat(req.CourseData.EndDate.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMailSend, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.mailTO)
	defer cancel()

	receipt, err := g.mailer.Send(ctx, &mailer.Message{
		To:      mail.Address{Name: strings.TrimSpace(req.StudentData.Name), Address: strings.TrimSpace(req.StudentData.Email)},
		Subject: body.Subject,
		Text:    body.Text,
		HTML:    body.HTML,
		Attachments: []mailer.Attachment{{
			Filename:    req.CertificateID + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	})
	if err != nil {
		metrics.MailsTotal.WithLabelValues(g.mailer.Provider(), statusFailed).Inc()
		return nil, fmt.Errorf("%w: %v", ErrMailSend, err)
	}
	metrics.MailsTotal.WithLabelValues(g.mailer.Provider(), statusSent).Inc()
	return receipt, nil
}

// report posts the terminal outcome. It never panics and never returns an
// error: delivery problems are logged by the notifier and here.
func (g *Generator) report(ctx context.Context, req *Request, out *delivery, jobErr error, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("callback panicked", zap.Any("panic", r))
		}
	}()

	var payload *callback.Payload
	if jobErr != nil || out == nil {
		if jobErr == nil {
			jobErr = ErrInternal
		}
		payload = callback.Failure(req.CertificateID, jobErr)
	} else {
		payload = callback.Success(req.CertificateID, callback.Metadata{
			MessageID:   out.messageID,
			GeneratedAt: out.generatedAt.UTC().Format(time.RFC3339),
			Email:       out.email,
			FileURL:     out.fileURL,
		})
	}

	// The outcome is reported even when the job context was cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.callbackTO)
	defer cancel()

	_ = observe(metrics.StageCallback, func() error {
		if err := g.notifier.Notify(ctx, req.CallbackURL, payload); err != nil {
			logger.Warn("callback not delivered", zap.Error(err))
		}
		return nil
	})
}

// observe times fn as a pipeline stage.
func observe(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return err
}

func documentTitle(req *Request) string {
	if req.DocumentType() == DocumentOfferLetter {
		return "Offer Letter " + req.CertificateID
	}
	return "Certificate " + req.CertificateID
}

func offerParagraph(position, organization string) string {
	var b strings.Builder
	b.WriteString("We are pleased to offer you")
	if position != "" {
		b.WriteString(" the position of ")
		b.WriteString(position)
	} else {
		b.WriteString(" a position")
	}
	if organization != "" {
		b.WriteString(" at ")
		b.WriteString(organization)
	}
	b.WriteString(". Please find the details of your engagement below.")
	return b.String()
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
