package certgen

import "errors"

// Sentinel errors for request validation.
var (
	ErrMissingField         = errors.New("missing required field")
	ErrInvalidCertificateID = errors.New("invalid certificate id")
	ErrInvalidCallbackURL   = errors.New("invalid callback url")
)

// Sentinel errors for the document stages.
var (
	ErrTemplateResolve = errors.New("template resolution failed")
	ErrTemplateContent = errors.New("template content error")
	ErrHTMLConversion  = errors.New("HTML conversion failed")
	ErrCompose         = errors.New("page composition failed")
)

// Sentinel errors for PDF rendering.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrPoolClosed     = errors.New("renderer pool closed")
)

// Sentinel errors for delivery and lifecycle.
var (
	ErrStore             = errors.New("artifact storage failed")
	ErrMailSend          = errors.New("mail delivery failed")
	ErrShuttingDown      = errors.New("service is shutting down")
	ErrMissingDependency = errors.New("missing generator dependency")
	ErrInternal          = errors.New("internal error")
)
