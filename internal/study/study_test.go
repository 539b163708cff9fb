package study_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/pondstat-cli/internal/study"
	"github.com/KaramelBytes/pondstat-cli/internal/utils"
)

func TestSaveLoadRecordsArtifacts(t *testing.T) {
	tdir := t.TempDir()
	s := study.New("pond2025", "summer campaign", filepath.Join(tdir, "pond2025"))
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.OutputPath("lag.csv")
	if err != nil {
		t.Fatalf("output path: %v", err)
	}
	if err := os.WriteFile(out, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	a := s.Record(out, "lag", "Nitrate vs Ta_2m", 33)
	if a.Path != "lag.csv" {
		t.Fatalf("expected relative path, got %q", a.Path)
	}
	if a.ID == "" {
		t.Fatalf("expected artifact id")
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := study.Load(s.RootDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "pond2025" || loaded.Description != "summer campaign" {
		t.Fatalf("unexpected study: %+v", loaded)
	}
	if len(loaded.Artifacts) != 1 || loaded.Artifacts[0].Rows != 33 {
		t.Fatalf("artifacts not persisted: %+v", loaded.Artifacts)
	}
	if got, ok := loaded.Artifact(a.ID); !ok || got.Kind != "lag" {
		t.Fatalf("artifact lookup by id failed")
	}
	if _, ok := loaded.Artifact("lag.csv"); !ok {
		t.Fatalf("artifact lookup by path failed")
	}

	next, err := s.OutputPath("lag.csv")
	if err != nil {
		t.Fatalf("output path: %v", err)
	}
	if filepath.Base(next) != "lag__2.csv" {
		t.Fatalf("expected suffixed path, got %s", next)
	}
}

func TestLoadMissingStudy(t *testing.T) {
	if _, err := study.Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing study.json")
	}
}

func TestListAndValidateName(t *testing.T) {
	tdir := t.TempDir()
	for _, name := range []string{"b", "a"} {
		if err := study.New(name, "", filepath.Join(tdir, name)).Save(); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(tdir, "not-a-study"), 0o755); err != nil {
		t.Fatal(err)
	}
	names, err := study.List(tdir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected studies: %v", names)
	}
	if names, err := study.List(filepath.Join(tdir, "missing")); err != nil || len(names) != 0 {
		t.Fatalf("missing dir should list nothing: %v %v", names, err)
	}

	for _, bad := range []string{"", "..", "a/b"} {
		if err := study.ValidateName(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
	if err := study.ValidateName("pond2025"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindStudyRoot(t *testing.T) {
	tdir := t.TempDir()
	root := filepath.Join(tdir, "s")
	if err := study.New("s", "", root).Save(); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "raw", "rf")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := utils.FindStudyRoot(nested)
	if err != nil {
		t.Fatalf("find root: %v", err)
	}
	if got != root {
		t.Fatalf("expected %s, got %s", root, got)
	}
}

func TestOutputPathSubdirectories(t *testing.T) {
	s := study.New("s", "", filepath.Join(t.TempDir(), "s"))
	out, err := s.OutputPath(filepath.Join("raw", "pond.csv"))
	if err != nil {
		t.Fatalf("output path: %v", err)
	}
	if filepath.Base(filepath.Dir(out)) != "raw" {
		t.Fatalf("expected raw/ subdirectory, got %s", out)
	}
	if a := s.Record(out, "raw", "", 0); a.Path != "raw/pond.csv" {
		t.Fatalf("unexpected recorded path %q", a.Path)
	}
	if _, err := s.OutputPath("../escape.csv"); err == nil {
		t.Fatalf("expected error for path outside the study")
	}
}
