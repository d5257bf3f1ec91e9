package certgen

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/hints"
	"github.com/alnah/go-certgen/internal/logging"
	"github.com/alnah/go-certgen/internal/process"
)

// DefaultRenderTimeout bounds page load and PDF printing.
const DefaultRenderTimeout = 60 * time.Second

// pdfRenderer turns a composed page into PDF bytes.
// Close releases the browser; the next Render launches a new one.
type pdfRenderer interface {
	Render(ctx context.Context, html string, layout Layout) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ pdfRenderer = (*rodRenderer)(nil)

// RendererConfig configures headless Chrome.
type RendererConfig struct {
	Timeout    time.Duration
	BrowserBin string // empty uses ROD_BROWSER_BIN, then rod's lookup
	NoSandbox  bool   // forced on in CI and containers
	Recycle    bool   // close the browser after every render
}

// rodRenderer renders through one headless Chrome process via go-rod.
// Rod downloads Chromium on first run if no browser is found.
type rodRenderer struct {
	cfg      RendererConfig
	logger   *zap.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func newRodRenderer(cfg RendererConfig, logger *zap.Logger) *rodRenderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRenderTimeout
	}
	return &rodRenderer{cfg: cfg, logger: logging.OrNop(logger)}
}

// browserBin returns the configured Chrome binary, if any.
func (r *rodRenderer) browserBin() string {
	if r.cfg.BrowserBin != "" {
		return r.cfg.BrowserBin
	}
	return os.Getenv("ROD_BROWSER_BIN")
}

// noSandbox reports whether Chrome must run without its sandbox.
func (r *rodRenderer) noSandbox() bool {
	return r.cfg.NoSandbox || hints.InCI() || hints.IsInContainer() || os.Getenv("ROD_BROWSER_BIN") != ""
}

// ensureBrowser lazily launches and connects to the browser. The launch,
// including any Chromium download, is bounded by ctx.
func (r *rodRenderer) ensureBrowser(ctx context.Context) error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New().Context(ctx).Headless(true)
	if bin := r.browserBin(); bin != "" {
		l = l.Bin(bin)
	}
	if r.noSandbox() {
		l = l.NoSandbox(true)
	}

	type launchResult struct {
		url string
		err error
	}
	launched := make(chan launchResult, 1)
	go func() {
		u, err := l.Launch()
		launched <- launchResult{u, err}
	}()

	var u string
	select {
	case res := <-launched:
		if res.err != nil {
			l.Kill()
			return fmt.Errorf("%w: %v%s", ErrBrowserConnect, res.err, hints.ForBrowserConnect())
		}
		u = res.url
	case <-ctx.Done():
		// Launch returns once its context is done; reap whatever it started.
		go func() {
			if res := <-launched; res.err == nil {
				r.kill(l)
			}
		}()
		return fmt.Errorf("%w: launching browser: %w%s", ErrBrowserConnect, ctx.Err(), hints.ForTimeout("render.timeout"))
	}

	browser := rod.New().Context(ctx).ControlURL(u)
	if err := browser.Connect(); err != nil {
		r.kill(l)
		return fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}

	r.launcher = l
	// Detach from the launch deadline; each render binds its own context.
	r.browser = browser.Context(context.Background())
	r.logger.Debug("browser launched", zap.Int("pid", l.PID()))
	return nil
}

// Render injects html into a blank page and prints it to PDF.
// Nothing is fetched from the network; images must be data URIs.
// The timeout covers the browser launch as well as the page work.
func (r *rodRenderer) Render(ctx context.Context, html string, layout Layout) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if err := r.ensureBrowser(ctx); err != nil {
		return nil, err
	}

	page, err := r.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v%s", ErrPageLoad, err, hints.ForTimeout("render.timeout"))
	}

	reader, err := page.PDF(buildPDFOptions(layout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

// Close tears down the browser and its process tree.
func (r *rodRenderer) Close() error {
	if r.browser == nil {
		return nil
	}

	err := r.browser.Close()
	r.kill(r.launcher)
	r.browser = nil
	r.launcher = nil
	return err
}

// kill stops the launched Chrome and any child left behind.
func (r *rodRenderer) kill(l *launcher.Launcher) {
	if l == nil {
		return
	}
	pid := l.PID()
	if err := process.KillTree(pid); err != nil {
		r.logger.Debug("browser process tree already gone", zap.Int("pid", pid), zap.Error(err))
	}
	// Fallback for platforms where the group kill misses the main process.
	l.Kill()
	l.Cleanup()
}

// buildPDFOptions prints A4 with the layout orientation and margin.
func buildPDFOptions(layout Layout) *proto.PagePrintToPDF {
	margin := layout.MarginInches()
	return &proto.PagePrintToPDF{
		Landscape:       layout.Landscape(),
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(margin),
		MarginBottom:    floatPtr(margin),
		MarginLeft:      floatPtr(margin),
		MarginRight:     floatPtr(margin),
		PrintBackground: true,
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
