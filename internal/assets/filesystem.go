package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemLoader loads assets from a directory on the filesystem.
// Implements AssetLoader interface.
type FilesystemLoader struct {
	basePath string
}

// NewFilesystemLoader creates a FilesystemLoader for the given base path.
// Returns ErrInvalidBasePath if the path is not a valid, readable directory.
func NewFilesystemLoader(basePath string) (*FilesystemLoader, error) {
	absPath, err := ResolveBaseDir(basePath)
	if err != nil {
		return nil, err
	}
	return &FilesystemLoader{basePath: absPath}, nil
}

// ResolveBaseDir cleans, absolutizes and resolves symlinks in dir, then
// checks it is a readable directory.
// Returns ErrInvalidBasePath otherwise.
func ResolveBaseDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}

	// Resolve symlinks so containment checks compare real paths
	if realPath, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = realPath
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: directory does not exist: %s", ErrInvalidBasePath, absPath)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, absPath)
	}
	if _, err := os.ReadDir(absPath); err != nil {
		return "", fmt.Errorf("%w: cannot read directory: %v", ErrInvalidBasePath, err)
	}

	return absPath, nil
}

// BasePath returns the resolved base directory.
func (f *FilesystemLoader) BasePath() string {
	return f.basePath
}

// LoadLayout loads a page layout from {basePath}/layouts/{name}.html.
func (f *FilesystemLoader) LoadLayout(name string) (string, error) {
	content, err := f.readText("layouts", name, ".html")
	if err != nil {
		return "", notFoundAs(err, ErrLayoutNotFound, name)
	}
	return content, nil
}

// LoadMailTemplate loads a mail template from {basePath}/mail/{name}.md.
func (f *FilesystemLoader) LoadMailTemplate(name string) (string, error) {
	content, err := f.readText("mail", name, ".md")
	if err != nil {
		return "", notFoundAs(err, ErrMailTemplateNotFound, name)
	}
	return content, nil
}

// LoadBackground loads {basePath}/backgrounds/{name}.{png,jpg,jpeg,svg,webp}.
func (f *FilesystemLoader) LoadBackground(name string) (*Blob, error) {
	blob, err := f.readBlob("backgrounds", name, ImageExtensions)
	if err != nil {
		return nil, notFoundAs(err, ErrBackgroundNotFound, name)
	}
	return blob, nil
}

// LoadTemplate loads {basePath}/templates/{id}.{docx,png,jpg,jpeg,svg,webp}.
func (f *FilesystemLoader) LoadTemplate(id string) (*Blob, error) {
	blob, err := f.readBlob("templates", id, TemplateExtensions)
	if err != nil {
		return nil, notFoundAs(err, ErrTemplateNotFound, id)
	}
	return blob, nil
}

func (f *FilesystemLoader) readText(dir, name, ext string) (string, error) {
	blob, err := f.readBlob(dir, name, []string{ext})
	if err != nil {
		return "", err
	}
	return string(blob.Data), nil
}

func (f *FilesystemLoader) readBlob(dir, name string, exts []string) (*Blob, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}

	stem := filepath.Join(f.basePath, dir, name)
	return firstMatch(func(filePath string) ([]byte, error) {
		if err := VerifyContainment(f.basePath, filePath); err != nil {
			return nil, err
		}
		return os.ReadFile(filePath) // #nosec G304 -- path validated above
	}, stem, exts)
}

// notFoundAs maps a missing file onto the loader's sentinel and any other
// failure onto ErrAssetRead. Validation errors pass through.
func notFoundAs(err, sentinel error, name string) error {
	switch {
	case errors.Is(err, ErrInvalidAssetName), errors.Is(err, ErrPathTraversal):
		return err
	case isNotExist(err):
		return fmt.Errorf("%w: %q", sentinel, name)
	default:
		return fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// VerifyContainment ensures filePath resolves inside basePath.
// basePath must already be absolute and symlink-free (see ResolveBaseDir).
// Symlinks in filePath are resolved so they cannot point outside.
func VerifyContainment(basePath, filePath string) error {
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve path", ErrPathTraversal)
	}

	// A missing file keeps its cleaned path; the read fails later.
	if realPath, err := filepath.EvalSymlinks(absFilePath); err == nil {
		absFilePath = realPath
	}

	// Separator suffix blocks /base/path vs /base/pathevil
	if !strings.HasPrefix(absFilePath, basePath+string(filepath.Separator)) {
		return fmt.Errorf("%w: path escapes base directory", ErrPathTraversal)
	}

	return nil
}

// Compile-time interface check.
var _ AssetLoader = (*FilesystemLoader)(nil)
