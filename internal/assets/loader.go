package assets

// AssetLoader defines the contract for loading generation assets.
type AssetLoader interface {
	// LoadLayout loads an html/template page layout by name (without .html).
	// Returns ErrLayoutNotFound if the layout doesn't exist.
	LoadLayout(name string) (string, error)

	// LoadBackground loads the background image for a document type.
	// Returns ErrBackgroundNotFound if no background exists.
	LoadBackground(name string) (*Blob, error)

	// LoadMailTemplate loads a mail template by name (without .md).
	// Returns ErrMailTemplateNotFound if the template doesn't exist.
	LoadMailTemplate(name string) (string, error)

	// LoadTemplate loads a caller template by id, trying each supported
	// extension in order.
	// Returns ErrTemplateNotFound if no file matches.
	LoadTemplate(id string) (*Blob, error)
}
