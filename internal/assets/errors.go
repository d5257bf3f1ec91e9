package assets

import "errors"

// Sentinel errors for asset operations.
var (
	// ErrLayoutNotFound indicates the requested page layout does not exist.
	ErrLayoutNotFound = errors.New("layout not found")

	// ErrBackgroundNotFound indicates no background exists for the name.
	ErrBackgroundNotFound = errors.New("background not found")

	// ErrMailTemplateNotFound indicates the requested mail template does not exist.
	ErrMailTemplateNotFound = errors.New("mail template not found")

	// ErrTemplateNotFound indicates no template file matches the id.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidAssetName indicates the asset name contains invalid characters
	// such as path separators or traversal sequences.
	ErrInvalidAssetName = errors.New("invalid asset name")

	// ErrInvalidBasePath indicates the configured base path is not a valid directory.
	ErrInvalidBasePath = errors.New("invalid base path")

	// ErrAssetRead indicates an I/O error occurred while reading an asset file.
	ErrAssetRead = errors.New("failed to read asset")

	// ErrPathTraversal indicates an attempt to access files outside the base path.
	ErrPathTraversal = errors.New("path traversal detected")
)
