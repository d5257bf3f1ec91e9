package assets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed layouts/*.html
var layouts embed.FS

//go:embed backgrounds/*
var backgrounds embed.FS

//go:embed mail/*.md
var mailTemplates embed.FS

// EmbeddedLoader loads assets from embedded filesystem.
// Implements AssetLoader interface.
type EmbeddedLoader struct{}

// NewEmbeddedLoader creates an EmbeddedLoader.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{}
}

// LoadLayout loads a page layout from embedded assets by name.
func (e *EmbeddedLoader) LoadLayout(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}

	content, err := layouts.ReadFile("layouts/" + name + ".html")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrLayoutNotFound, name)
	}

	return string(content), nil
}

// LoadBackground loads a built-in background by document type.
func (e *EmbeddedLoader) LoadBackground(name string) (*Blob, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}

	blob, err := firstMatch(backgrounds.ReadFile, "backgrounds/"+name, ImageExtensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBackgroundNotFound, name)
	}
	return blob, nil
}

// LoadMailTemplate loads a mail template from embedded assets by name.
func (e *EmbeddedLoader) LoadMailTemplate(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}

	content, err := mailTemplates.ReadFile("mail/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMailTemplateNotFound, name)
	}

	return string(content), nil
}

// LoadTemplate always fails: caller templates only live on disk.
func (e *EmbeddedLoader) LoadTemplate(id string) (*Blob, error) {
	if err := ValidateAssetName(id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
}

// firstMatch reads stem+ext for each extension and returns the first hit.
// Returns fs.ErrNotExist when nothing matches.
func firstMatch(read func(string) ([]byte, error), stem string, exts []string) (*Blob, error) {
	for _, ext := range exts {
		data, err := read(stem + ext)
		if err == nil {
			return &Blob{Name: stem + ext, Data: data, MediaType: MediaType(ext)}, nil
		}
		if !isNotExist(err) {
			return nil, err
		}
	}
	return nil, fs.ErrNotExist
}

// Compile-time interface check.
var _ AssetLoader = (*EmbeddedLoader)(nil)
