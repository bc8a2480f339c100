package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aledsdavies/stripcomments/internal/cache"
	"github.com/aledsdavies/stripcomments/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDriverRunStripsProjectFiles(t *testing.T) {
	root := t.TempDir()
	inputRoot := filepath.Join(root, "input")
	outputRoot := filepath.Join(root, "output")

	writeFile(t, filepath.Join(inputRoot, "demo", "main.swift"), "let x = 1 // comment\n")
	writeFile(t, filepath.Join(inputRoot, "demo", "sub", "util.swift"), "let y = 2 /* block */\n")

	cfg := config.Config{
		InputRoot:   inputRoot,
		OutputRoot:  outputRoot,
		MaxParallel: 2,
		Include:     []string{"*.swift"},
	}

	d := New(cache.New(), nil)
	summary, err := d.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Projects) != 1 || summary.Projects[0].FileCount != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	mainOut, err := os.ReadFile(filepath.Join(outputRoot, "demo", "main.swift"))
	if err != nil {
		t.Fatalf("reading stripped output: %v", err)
	}
	if string(mainOut) != "let x = 1\n" {
		t.Errorf("main.swift output = %q, want %q", mainOut, "let x = 1\n")
	}

	utilOut, err := os.ReadFile(filepath.Join(outputRoot, "demo", "sub_util.swift"))
	if err != nil {
		t.Fatalf("reading flattened nested output: %v", err)
	}
	if string(utilOut) != "let y = 2\n" {
		t.Errorf("sub_util.swift output = %q, want %q", utilOut, "let y = 2\n")
	}
}

func TestDriverRunSkipsUnmatchedFiles(t *testing.T) {
	root := t.TempDir()
	inputRoot := filepath.Join(root, "input")
	outputRoot := filepath.Join(root, "output")

	writeFile(t, filepath.Join(inputRoot, "demo", "main.swift"), "let x = 1\n")
	writeFile(t, filepath.Join(inputRoot, "demo", "README.md"), "not swift\n")

	cfg := config.Config{
		InputRoot:  inputRoot,
		OutputRoot: outputRoot,
		Include:    []string{"*.swift"},
	}

	d := New(cache.New(), nil)
	summary, err := d.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Projects[0].FileCount != 1 {
		t.Fatalf("expected only the .swift file to be processed, got %+v", summary.Projects[0])
	}
}

func TestDriverRunReusesCacheOnSecondPass(t *testing.T) {
	root := t.TempDir()
	inputRoot := filepath.Join(root, "input")
	outputRoot := filepath.Join(root, "output")
	writeFile(t, filepath.Join(inputRoot, "demo", "main.swift"), "let x = 1 // c\n")

	cfg := config.Config{
		InputRoot:  inputRoot,
		OutputRoot: outputRoot,
		Include:    []string{"*.swift"},
	}

	idx := cache.New()
	d := New(idx, nil)
	if _, err := d.Run(context.Background(), cfg); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 cache entry after first run, got %d", idx.Len())
	}

	if err := os.RemoveAll(outputRoot); err != nil {
		t.Fatal(err)
	}

	summary, err := d.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Projects[0].FileCount != 1 {
		t.Fatalf("expected the cached file to still count toward the summary, got %+v", summary.Projects[0])
	}
	if _, err := os.Stat(filepath.Join(outputRoot, "demo", "main.swift")); err == nil {
		t.Fatal("expected no output file to be rewritten on a cache hit")
	}
}
