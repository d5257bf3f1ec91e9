package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// MainPart is the body of a word-processing package.
const MainPart = "word/document.xml"

// Zip bomb guards: a single decompressed entry, the whole decompressed
// package and the number of entries are each bounded.
const (
	MaxPartSize    = 32 << 20
	MaxPackageSize = 128 << 20
	MaxEntries     = 4096
)

type sizeLimits struct {
	part    int64
	total   int64
	entries int
}

var defaultLimits = sizeLimits{part: MaxPartSize, total: MaxPackageSize, entries: MaxEntries}

// Package is an in-memory office document package.
type Package struct {
	parts map[string][]byte
}

// Open reads a package from raw bytes.
// Returns ErrInvalidPackage if the data is not a zip, lacks word/document.xml
// or decompresses past the size limits.
func Open(data []byte) (*Package, error) {
	return open(data, defaultLimits)
}

func open(data []byte, limits sizeLimits) (*Package, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	if len(reader.File) > limits.entries {
		return nil, fmt.Errorf("%w: %d entries exceed the limit of %d", ErrInvalidPackage, len(reader.File), limits.entries)
	}

	pkg := &Package{parts: make(map[string][]byte, len(reader.File))}
	remaining := limits.total
	for _, file := range reader.File {
		content, err := readZipFile(file, min(limits.part, remaining))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPackage, file.Name, err)
		}
		remaining -= int64(len(content))
		pkg.parts[normalizeName(file.Name)] = content
	}

	if _, ok := pkg.parts[MainPart]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingPart, MainPart)
	}
	return pkg, nil
}

// Part returns the content of the named entry.
func (p *Package) Part(name string) ([]byte, bool) {
	data, ok := p.parts[normalizeName(name)]
	return data, ok
}

// SetPart replaces the named entry, adding it if absent.
func (p *Package) SetPart(name string, data []byte) {
	p.parts[normalizeName(name)] = data
}

// TemplatedParts lists the parts that may hold merge fields: the body,
// then headers and footers in name order.
func (p *Package) TemplatedParts() []string {
	parts := []string{MainPart}
	var extra []string
	for name := range p.parts {
		if isHeaderOrFooter(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(parts, extra...)
}

// relationships maps relationship ids of a part to their targets,
// resolved against the part directory.
func (p *Package) relationships(part string) map[string]relationship {
	dir, file := path.Split(part)
	relsPath := dir + "_rels/" + file + ".rels"
	data, ok := p.Part(relsPath)
	if !ok {
		return nil
	}
	return parseRelationships(data, dir)
}

// readZipFile decompresses file, failing past limit bytes.
func readZipFile(file *zip.File, limit int64) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("decompressed size exceeds %d bytes", limit)
	}
	return data, nil
}

func normalizeName(name string) string {
	return strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/")
}

func isHeaderOrFooter(name string) bool {
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	base := strings.TrimPrefix(name, "word/")
	if strings.Contains(base, "/") {
		return false
	}
	return strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer")
}
