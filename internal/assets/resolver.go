package assets

import (
	"errors"
)

// AssetResolver combines custom and embedded loaders with fallback logic.
// When a custom loader is configured, it tries custom first, then falls back
// to embedded if the asset is not found in the custom location.
type AssetResolver struct {
	custom   AssetLoader // nil if no custom path configured
	embedded AssetLoader
}

// NewAssetResolver creates an AssetResolver.
// If customBasePath is empty, only embedded assets are used.
// Returns error if customBasePath is set but invalid.
func NewAssetResolver(customBasePath string) (*AssetResolver, error) {
	resolver := &AssetResolver{
		embedded: NewEmbeddedLoader(),
	}

	if customBasePath != "" {
		fsLoader, err := NewFilesystemLoader(customBasePath)
		if err != nil {
			return nil, err
		}
		resolver.custom = fsLoader
	}

	return resolver, nil
}

// LoadLayout loads a page layout, trying the custom loader first.
func (r *AssetResolver) LoadLayout(name string) (string, error) {
	return withFallback(r, func(loader AssetLoader) (string, error) {
		return loader.LoadLayout(name)
	})
}

// LoadBackground loads a background, trying the custom loader first.
func (r *AssetResolver) LoadBackground(name string) (*Blob, error) {
	return withFallback(r, func(loader AssetLoader) (*Blob, error) {
		return loader.LoadBackground(name)
	})
}

// LoadMailTemplate loads a mail template, trying the custom loader first.
func (r *AssetResolver) LoadMailTemplate(name string) (string, error) {
	return withFallback(r, func(loader AssetLoader) (string, error) {
		return loader.LoadMailTemplate(name)
	})
}

// LoadTemplate loads a caller template by id from the custom loader.
func (r *AssetResolver) LoadTemplate(id string) (*Blob, error) {
	return withFallback(r, func(loader AssetLoader) (*Blob, error) {
		return loader.LoadTemplate(id)
	})
}

// withFallback implements the custom-first, fallback-to-embedded logic.
func withFallback[T any](r *AssetResolver, loadFn func(AssetLoader) (T, error)) (T, error) {
	if r.custom == nil {
		return loadFn(r.embedded)
	}

	content, err := loadFn(r.custom)
	if err == nil {
		return content, nil
	}

	// Only fall back for "not found" errors, not validation or I/O errors
	if !isNotFoundError(err) {
		return content, err
	}

	return loadFn(r.embedded)
}

// isNotFoundError checks if the error indicates the asset was not found.
func isNotFoundError(err error) bool {
	return errors.Is(err, ErrLayoutNotFound) ||
		errors.Is(err, ErrBackgroundNotFound) ||
		errors.Is(err, ErrMailTemplateNotFound) ||
		errors.Is(err, ErrTemplateNotFound)
}

// HasCustomLoader returns true if a custom asset loader is configured.
func (r *AssetResolver) HasCustomLoader() bool {
	return r.custom != nil
}

// Compile-time interface check.
var _ AssetLoader = (*AssetResolver)(nil)
