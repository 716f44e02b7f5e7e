package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "icvm.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
path = "programs/boost.ic"
inputs = [1, 2]
step-limit = 100000

[server]
listen = ":9000"

[journal]
path = "runs.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Program.Path != "programs/boost.ic" {
		t.Errorf("program path = %q, want programs/boost.ic", m.Program.Path)
	}
	if !reflect.DeepEqual(m.Program.Inputs, []int64{1, 2}) {
		t.Errorf("inputs = %v, want [1 2]", m.Program.Inputs)
	}
	if m.Program.StepLimit != 100000 {
		t.Errorf("step limit = %d, want 100000", m.Program.StepLimit)
	}
	if m.Server.Listen != ":9000" {
		t.Errorf("listen = %q, want :9000", m.Server.Listen)
	}

	wantProg := filepath.Join(m.Dir, "programs/boost.ic")
	if m.ProgramPath() != wantProg {
		t.Errorf("ProgramPath = %q, want %q", m.ProgramPath(), wantProg)
	}
	wantDB := filepath.Join(m.Dir, "runs.db")
	if m.JournalPath() != wantDB {
		t.Errorf("JournalPath = %q, want %q", m.JournalPath(), wantDB)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
path = "p.ic"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Server.Listen != DefaultListen {
		t.Errorf("listen = %q, want default %q", m.Server.Listen, DefaultListen)
	}
	if m.JournalPath() != "" {
		t.Errorf("JournalPath = %q, want empty", m.JournalPath())
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for missing icvm.toml")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[program\npath=")
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[program]\npath = \"p.ic\"\n")

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m == nil {
		t.Fatal("manifest not found from nested directory")
	}
	if m.Program.Path != "p.ic" {
		t.Errorf("program path = %q, want p.ic", m.Program.Path)
	}
}

func TestFindAndLoadAbsent(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil manifest, got %+v", m)
	}
}
