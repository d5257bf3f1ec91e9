package assets

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeAsset creates dir/rel with content, making parent directories.
func writeAsset(t *testing.T, dir, rel, content string) {
	t.Helper()

	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}

func TestNewFilesystemLoader(t *testing.T) {
	t.Parallel()

	t.Run("valid directory", func(t *testing.T) {
		t.Parallel()

		loader, err := NewFilesystemLoader(t.TempDir())
		if err != nil {
			t.Fatalf("NewFilesystemLoader() error = %v", err)
		}
		if !filepath.IsAbs(loader.BasePath()) {
			t.Errorf("BasePath() = %q, want absolute", loader.BasePath())
		}
	})

	t.Run("empty path returns error", func(t *testing.T) {
		t.Parallel()

		_, err := NewFilesystemLoader("")
		if !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("NewFilesystemLoader(\"\") error = %v, want ErrInvalidBasePath", err)
		}
	})

	t.Run("nonexistent directory returns error", func(t *testing.T) {
		t.Parallel()

		_, err := NewFilesystemLoader("/nonexistent/path/abc123xyz")
		if !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("NewFilesystemLoader() error = %v, want ErrInvalidBasePath", err)
		}
	})

	t.Run("file instead of directory returns error", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		writeAsset(t, tmpDir, "file.txt", "test")

		_, err := NewFilesystemLoader(filepath.Join(tmpDir, "file.txt"))
		if !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("NewFilesystemLoader() error = %v, want ErrInvalidBasePath", err)
		}
	})
}

func TestFilesystemLoader_LoadTemplate(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeAsset(t, tmpDir, "templates/internship.docx", "PK-docx")
	writeAsset(t, tmpDir, "templates/internship.png", "png")
	writeAsset(t, tmpDir, "templates/badge.webp", "webp")

	loader, err := NewFilesystemLoader(tmpDir)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() error = %v", err)
	}

	t.Run("docx preferred over images", func(t *testing.T) {
		t.Parallel()

		blob, err := loader.LoadTemplate("internship")
		if err != nil {
			t.Fatalf("LoadTemplate() error = %v", err)
		}
		if blob.MediaType != MediaTypeDocx || string(blob.Data) != "PK-docx" {
			t.Errorf("LoadTemplate() = %q (%s), want docx", blob.Data, blob.MediaType)
		}
	})

	t.Run("image template", func(t *testing.T) {
		t.Parallel()

		blob, err := loader.LoadTemplate("badge")
		if err != nil {
			t.Fatalf("LoadTemplate() error = %v", err)
		}
		if blob.MediaType != "image/webp" {
			t.Errorf("MediaType = %q, want image/webp", blob.MediaType)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()

		_, err := loader.LoadTemplate("unknown")
		if !errors.Is(err, ErrTemplateNotFound) {
			t.Errorf("LoadTemplate() error = %v, want ErrTemplateNotFound", err)
		}
	})

	t.Run("traversal id rejected", func(t *testing.T) {
		t.Parallel()

		_, err := loader.LoadTemplate("../templates/internship")
		if !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("LoadTemplate() error = %v, want ErrInvalidAssetName", err)
		}
	})
}

func TestFilesystemLoader_LoadLayoutAndMail(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeAsset(t, tmpDir, "layouts/certificate.html", "<p>{{.Name}}</p>")
	writeAsset(t, tmpDir, "mail/certificate.md", "Subject: hi\n\nbody")

	loader, err := NewFilesystemLoader(tmpDir)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() error = %v", err)
	}

	got, err := loader.LoadLayout("certificate")
	if err != nil || got != "<p>{{.Name}}</p>" {
		t.Errorf("LoadLayout() = %q, %v", got, err)
	}
	if _, err := loader.LoadLayout("office"); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("LoadLayout(office) error = %v, want ErrLayoutNotFound", err)
	}

	mail, err := loader.LoadMailTemplate("certificate")
	if err != nil || mail != "Subject: hi\n\nbody" {
		t.Errorf("LoadMailTemplate() = %q, %v", mail, err)
	}
	if _, err := loader.LoadBackground("certificate"); !errors.Is(err, ErrBackgroundNotFound) {
		t.Errorf("LoadBackground() error = %v, want ErrBackgroundNotFound", err)
	}
}

func TestFilesystemLoader_SymlinkEscape(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	outside := t.TempDir()
	writeAsset(t, outside, "secret.docx", "secret")

	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "templates"), 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(base, "templates", "leak.docx")
	if err := os.Symlink(filepath.Join(outside, "secret.docx"), link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	loader, err := NewFilesystemLoader(base)
	if err != nil {
		t.Fatalf("NewFilesystemLoader() error = %v", err)
	}

	_, err = loader.LoadTemplate("leak")
	if !errors.Is(err, ErrPathTraversal) {
		t.Errorf("LoadTemplate() error = %v, want ErrPathTraversal", err)
	}
}

func TestVerifyContainment(t *testing.T) {
	t.Parallel()

	base, err := ResolveBaseDir(t.TempDir())
	if err != nil {
		t.Fatalf("ResolveBaseDir() error = %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "inside", path: filepath.Join(base, "a", "b.docx"), wantErr: nil},
		{name: "parent", path: filepath.Join(base, "..", "b.docx"), wantErr: ErrPathTraversal},
		{name: "prefix sibling", path: base + "evil/b.docx", wantErr: ErrPathTraversal},
		{name: "base itself", path: base, wantErr: ErrPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := VerifyContainment(base, tt.path); !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyContainment(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}
