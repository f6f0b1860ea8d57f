package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/starford/seedbank/internal/apperr"
)

func tempLibrary(t *testing.T, files map[string]string) *Library {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	lib, err := NewLibrary(dir, ".md")
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	return lib
}

func TestLoad_ParsesHeader(t *testing.T) {
	lib := tempLibrary(t, map[string]string{
		"04_agent_connect.md": "---\nname: Agent Connect\n---\n## What It Is\nRouting.\n",
	})
	seed, err := lib.Load("04_agent_connect")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if seed.Name() != "Agent Connect" {
		t.Errorf("name = %q", seed.Name())
	}
	if seed.Body != "## What It Is\nRouting.\n" {
		t.Errorf("body = %q", seed.Body)
	}
	if seed.Checksum == "" {
		t.Error("expected checksum")
	}
}

func TestLoad_NameFallsBackToID(t *testing.T) {
	lib := tempLibrary(t, map[string]string{"02_harness_trace.md": "# No header\n"})
	seed, err := lib.Load("02_harness_trace")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if seed.Name() != "02_harness_trace" {
		t.Errorf("name = %q", seed.Name())
	}
}

func TestLoad_NotFoundListsAvailable(t *testing.T) {
	lib := tempLibrary(t, map[string]string{
		"01_a.md":    "a",
		"02_b.md":    "b",
		"notes.txt":  "ignored",
		"sub/03.md":  "ignored",
		".hidden.md": "ignored",
	})
	_, err := lib.Load("99_does_not_exist")
	if !errors.Is(err, apperr.ErrSeedNotFound) {
		t.Fatalf("err = %v, want ErrSeedNotFound", err)
	}
	var nf *apperr.SeedNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *SeedNotFoundError, got %T", err)
	}
	if want := []string{"01_a", "02_b"}; !reflect.DeepEqual(nf.Available, want) {
		t.Errorf("available = %v, want %v", nf.Available, want)
	}
	if nf.Location != filepath.Join(lib.Root(), "99_does_not_exist.md") {
		t.Errorf("location = %q", nf.Location)
	}
}

func TestLoad_TraversalIsNotFound(t *testing.T) {
	lib := tempLibrary(t, map[string]string{"01_a.md": "a"})
	for _, id := range []string{"../01_a", "sub/x", ""} {
		if _, err := lib.Load(id); !errors.Is(err, apperr.ErrSeedNotFound) {
			t.Errorf("Load(%q) err = %v, want ErrSeedNotFound", id, err)
		}
	}
}

func TestList_SortedWithChecksums(t *testing.T) {
	lib := tempLibrary(t, map[string]string{"b.md": "b", "a.md": "a"})
	metas, err := lib.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 || metas[0].ID != "a" || metas[1].ID != "b" {
		t.Fatalf("metas = %+v", metas)
	}
	if metas[0].Checksum == metas[1].Checksum {
		t.Error("different content should have different checksums")
	}
}

func TestWriteAndRead(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	abs, err := fs.Write("out/report.md", []byte("# Report\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if abs != filepath.Join(fs.Root(), "out", "report.md") {
		t.Errorf("abs = %q", abs)
	}
	got, err := fs.Read("out/report.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "# Report\n" {
		t.Errorf("content = %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := fs.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if _, err := fs.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestWriteAtomic_NoLeftovers(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "state.json")
	if err := WriteAtomic(target, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(target, []byte("new"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(target)
	if string(got) != "new" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".seedbank-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "seedbank-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestNewLibrary_MissingDirIsEmpty(t *testing.T) {
	root := filepath.Join(t.TempDir(), "seeds")
	lib, err := NewLibrary(root, ".md")
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	metas, err := lib.List()
	if err != nil || len(metas) != 0 {
		t.Errorf("List = %v, %v; want empty", metas, err)
	}

	_, err = lib.Load("04_agent_connect")
	var nf *apperr.SeedNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want SeedNotFoundError", err)
	}
	if nf.Location != filepath.Join(root, "04_agent_connect.md") || len(nf.Available) != 0 {
		t.Errorf("not found = %+v", nf)
	}
}

func TestNewLibrary_FileRootFails(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.md")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLibrary(f, ".md"); err == nil {
		t.Error("expected error for non-directory root")
	}
}

func TestIDs_SkipsOtherFilesAndDirs(t *testing.T) {
	lib := tempLibrary(t, map[string]string{
		"02_b.md":         "b",
		"01_a.md":         "a",
		"notes.txt":       "x",
		".hidden.md":      "x",
		"sub.md/inner.md": "x",
	})
	ids, err := lib.IDs()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"01_a", "02_b"}) {
		t.Errorf("ids = %v", ids)
	}
}
