package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/seedbank/internal/apperr"
	"github.com/starford/seedbank/internal/models"
	"github.com/starford/seedbank/internal/parser"
)

// FS gives traversal-safe access to files under a root directory.
type FS struct {
	root string // absolute path
}

// NewFS creates a new FS rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// Abs resolves rel against the root and rejects any result that escapes it.
func (f *FS) Abs(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// Read returns the raw bytes of the file at rel.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}

// Write atomically replaces the file at rel and returns its absolute path.
func (f *FS) Write(rel string, content []byte) (string, error) {
	abs, err := f.Abs(rel)
	if err != nil {
		return "", err
	}
	if err := WriteAtomic(abs, content, 0o644); err != nil {
		return "", err
	}
	return abs, nil
}

// WriteAtomic writes content to path via tmp file → fsync → rename, so
// readers see either the old or the new content, never a partial file.
func WriteAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".seedbank-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Library implements Provider over a flat directory of <id><ext> documents.
type Library struct {
	fs  *FS
	ext string
}

var _ Provider = (*Library)(nil)

// NewLibrary opens the seed library at root. ext is the document extension
// including the dot, e.g. ".md". A root that does not exist yet is an empty
// library; a root that is not a directory is an error.
func NewLibrary(root, ext string) (*Library, error) {
	if ext == "" {
		ext = ".md"
	}
	fs, err := NewFS(root)
	if err == nil {
		return &Library{fs: fs, ext: ext}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	abs, absErr := filepath.Abs(root)
	if absErr != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", absErr)
	}
	return &Library{fs: &FS{root: abs}, ext: ext}, nil
}

// Root returns the absolute library directory.
func (l *Library) Root() string { return l.fs.Root() }

// Location returns where the document for id is expected.
func (l *Library) Location(id string) string {
	return filepath.Join(l.fs.Root(), id+l.ext)
}

// List returns metadata for every seed document, sorted by identifier.
// Subdirectories and files with other extensions are ignored.
func (l *Library) List() ([]models.SeedMeta, error) {
	entries, err := l.entries()
	if err != nil {
		return nil, err
	}
	out := make([]models.SeedMeta, 0, len(entries))
	for _, e := range entries {
		id, _ := l.seedID(e.Name())
		data, err := l.fs.Read(e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, models.SeedMeta{
			ID:       id,
			Path:     filepath.Join(l.fs.Root(), e.Name()),
			Checksum: checksum(data),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// IDs returns the identifiers of every seed in the library, sorted. Unlike
// List it reads only the directory, not the documents.
func (l *Library) IDs() ([]string, error) {
	entries, err := l.entries()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id, _ := l.seedID(e.Name())
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// entries returns the seed documents in the library directory. A missing
// directory has none.
func (l *Library) entries() ([]os.DirEntry, error) {
	all, err := os.ReadDir(l.fs.Root())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	out := all[:0]
	for _, e := range all {
		if _, ok := l.seedID(e.Name()); ok && !e.IsDir() {
			out = append(out, e)
		}
	}
	return out, nil
}

// Load reads and parses the seed document for id.
func (l *Library) Load(id string) (*models.Seed, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, l.notFound(id)
	}
	rel := id + l.ext
	data, err := l.fs.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, l.notFound(id)
		}
		return nil, err
	}
	h := parser.ParseHeader(string(data))
	return &models.Seed{
		ID:       id,
		Path:     l.Location(id),
		Content:  data,
		Body:     h.Body,
		Metadata: h.Metadata,
		Checksum: checksum(data),
	}, nil
}

// seedID strips the extension from a library file name.
func (l *Library) seedID(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, l.ext) {
		return "", false
	}
	id := strings.TrimSuffix(name, l.ext)
	return id, id != ""
}

func (l *Library) notFound(id string) error {
	available, err := l.IDs()
	if err != nil {
		return fmt.Errorf("seed %s: %w", id, err)
	}
	return &apperr.SeedNotFoundError{
		ID:        id,
		Location:  l.Location(id),
		Available: available,
	}
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
