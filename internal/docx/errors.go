package docx

import "errors"

// Sentinel errors for template operations.
var (
	ErrInvalidPackage    = errors.New("invalid document package")
	ErrMissingPart       = errors.New("document part not found")
	ErrInvalidDelimiters = errors.New("invalid merge-field delimiters")
	ErrRepair            = errors.New("template repair failed")

	// ErrTemplateContent reports merge-field syntax the renderer cannot honour,
	// such as unclosed sections or unsupported control tags.
	ErrTemplateContent = errors.New("template content error")

	ErrConversion = errors.New("document conversion failed")
)
