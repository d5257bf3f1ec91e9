// Package certgen generates certificates and offer letters as PDF files.
//
// # Pipeline
//
// A Request goes through these stages:
//
//  1. Template resolution: caller path, template id, then the built-in
//     background of the document type (TemplateResolver)
//  2. Office templates: merge-field repair, field rendering and conversion
//     to HTML (internal/docx)
//  3. Page composition from html/template layouts (internal/compose)
//  4. PDF rendering via headless Chrome (go-rod), bounded by RendererPool
//  5. Storage of {certificateId}.pdf (internal/storage)
//  6. Email with the PDF attached (internal/mailer)
//  7. One callback to the caller with the outcome (internal/callback)
//
// # Layouts
//
// The page policy is chosen by LayoutFor from the document type and the
// template kind. Image certificates print A4 landscape without margins,
// image offer letters A4 portrait without margins, and office documents
// A4 portrait with 2cm margins.
//
// # Usage
//
// Build the Generator from its collaborators and hand requests to a
// Dispatcher:
//
//	pool := certgen.NewRendererPool(certgen.ResolvePoolSize(0), certgen.RendererConfig{Recycle: true}, logger)
//	defer pool.Close()
//
//	gen, err := certgen.NewGenerator(
//	    certgen.WithRenderer(pool),
//	    certgen.WithMailer(m),
//	    certgen.WithStore(store),
//	    certgen.WithNotifier(callback.New()),
//	    certgen.WithResolver(resolver),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d := certgen.NewDispatcher(gen, logger)
//	if err := d.Submit(req); err != nil {
//	    // ErrShuttingDown
//	}
//
// Process sends exactly one callback per request, "sent" or "failed",
// including when a stage panics.
package certgen
