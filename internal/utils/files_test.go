package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "lag.csv")
	got, err := UniquePath(p)
	if err != nil || got != p {
		t.Fatalf("free path should be unchanged: %s %v", got, err)
	}
	for _, name := range []string{"lag.csv", "lag__2.csv"} {
		if err := SafeWriteFile(filepath.Join(dir, name), []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	got, err = UniquePath(p)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "lag__3.csv" {
		t.Fatalf("expected lag__3.csv, got %s", got)
	}
}

func TestSafeWriteFileReplacesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "study.json")
	if err := SafeWriteFile(p, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := SafeWriteFile(p, []byte("two")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "two" {
		t.Fatalf("unexpected content %q %v", b, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
	if err := SafeWriteFile(filepath.Join(dir, "missing", "x"), nil); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
