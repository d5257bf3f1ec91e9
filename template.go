package certgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/assets"
	"github.com/alnah/go-certgen/internal/fileutil"
	"github.com/alnah/go-certgen/internal/logging"
	"github.com/alnah/go-certgen/internal/metrics"
)

// MaxTemplateSize caps caller template files in bytes.
const MaxTemplateSize = 32 << 20

// Fallback sources reported to the template fallback metric.
const (
	fallbackURL = "url"
	fallbackID  = "id"
)

var errUnsupportedTemplate = errors.New("unsupported template extension")

// ResolvedTemplate is the template chosen for one request.
type ResolvedTemplate struct {
	Source    string // file path, template id or built-in name
	Kind      TemplateKind
	Data      []byte
	MediaType string
}

// TemplateSource supplies named templates and built-in backgrounds.
// Implemented by assets.AssetResolver.
type TemplateSource interface {
	LoadTemplate(id string) (*assets.Blob, error)
	LoadBackground(name string) (*assets.Blob, error)
}

// TemplateResolver picks the template of a request.
//
// Order: templateUrl inside the base directory, then templateId from the
// template source, then the built-in background of the document type.
// Misses before the last step are logged and fall through.
type TemplateResolver struct {
	baseDir string
	source  TemplateSource
	logger  *zap.Logger
}

// NewTemplateResolver creates a resolver reading caller paths under baseDir.
// Returns assets.ErrInvalidBasePath if baseDir is not a readable directory.
func NewTemplateResolver(baseDir string, source TemplateSource, logger *zap.Logger) (*TemplateResolver, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: template source", ErrMissingDependency)
	}
	abs, err := assets.ResolveBaseDir(baseDir)
	if err != nil {
		return nil, err
	}
	return &TemplateResolver{baseDir: abs, source: source, logger: logging.OrNop(logger)}, nil
}

// Resolve returns the template for req.
// Returns ErrTemplateResolve only when the built-in default is missing.
func (r *TemplateResolver) Resolve(ctx context.Context, req *Request) (*ResolvedTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.TemplateURL != "" {
		tmpl, err := r.fromPath(req.TemplateURL)
		if err == nil {
			return tmpl, nil
		}
		metrics.TemplateFallbacks.WithLabelValues(fallbackURL).Inc()
		r.logger.Warn("caller template unavailable, falling back",
			zap.String("certificate_id", req.CertificateID),
			zap.String("template_url", req.TemplateURL),
			zap.Error(err))
	}

	if req.TemplateID != "" {
		blob, err := r.source.LoadTemplate(req.TemplateID)
		if err == nil {
			return fromBlob("template:"+req.TemplateID, blob), nil
		}
		metrics.TemplateFallbacks.WithLabelValues(fallbackID).Inc()
		r.logger.Warn("template id unavailable, falling back",
			zap.String("certificate_id", req.CertificateID),
			zap.String("template_id", req.TemplateID),
			zap.Error(err))
	}

	doc := req.DocumentType()
	blob, err := r.source.LoadBackground(doc.String())
	if err != nil {
		return nil, fmt.Errorf("%w: default for %s: %v", ErrTemplateResolve, doc, err)
	}
	return fromBlob("builtin:"+doc.String(), blob), nil
}

// fromPath reads a caller template contained in the base directory.
func (r *TemplateResolver) fromPath(ref string) (*ResolvedTemplate, error) {
	if fileutil.IsURL(ref) {
		return nil, errors.New("remote templates are not fetched")
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	if err := assets.VerifyContainment(r.baseDir, path); err != nil {
		return nil, err
	}

	mediaType := assets.MediaType(path)
	if mediaType == "" {
		return nil, fmt.Errorf("%w: %s", errUnsupportedTemplate, filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > MaxTemplateSize {
		return nil, fmt.Errorf("template too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path) // #nosec G304 -- contained in base dir
	if err != nil {
		return nil, err
	}
	return newResolved(path, data, mediaType), nil
}

func fromBlob(source string, blob *assets.Blob) *ResolvedTemplate {
	mediaType := blob.MediaType
	if mediaType == "" {
		mediaType = assets.MediaType(blob.Name)
	}
	return newResolved(source, blob.Data, mediaType)
}

func newResolved(source string, data []byte, mediaType string) *ResolvedTemplate {
	kind := TemplateImage
	if mediaType == assets.MediaTypeDocx {
		kind = TemplateOffice
	}
	return &ResolvedTemplate{Source: source, Kind: kind, Data: data, MediaType: mediaType}
}
