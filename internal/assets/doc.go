// Package assets provides page layouts, default backgrounds, mail templates
// and caller templates for document generation.
//
// # Loader Architecture
//
// The package implements a layered loading system:
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in assets)
//	    ├── FilesystemLoader  - loads from custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// EmbeddedLoader provides the built-in layouts (office, certificate,
// offer-letter), one background per document type and the mail templates.
// It holds no caller templates.
//
// FilesystemLoader allows operators to override any built-in asset and to
// publish templates addressed by id, with path traversal protection and
// symlink resolution.
//
// AssetResolver is the loader used by the service. It tries the custom
// FilesystemLoader first, falling back to EmbeddedLoader if the asset is
// not found.
//
// # Directory Structure
//
//	{basePath}/
//	├── layouts/
//	│   └── {name}.html              # html/template page layouts
//	├── backgrounds/
//	│   └── {name}.{png,jpg,svg,...} # full-bleed backgrounds per document type
//	├── mail/
//	│   └── {name}.md                # subject line + markdown body
//	└── templates/
//	    └── {id}.{docx,png,jpg,...}  # templates selected by templateId
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
