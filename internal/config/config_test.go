package config

import "testing"

func TestParseValidConfig(t *testing.T) {
	doc := []byte(`
schemaVersion: v1
inputRoot: ./input
outputRoot: ./output
maxParallel: 8
include: ["*.swift"]
exclude: ["*.generated.swift"]
validationBundle:
  enabled: true
  maxGroupKB: 150
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse returned unexpected error: %v", err)
	}
	if cfg.InputRoot != "./input" || cfg.OutputRoot != "./output" {
		t.Fatalf("unexpected roots: %+v", cfg)
	}
	if cfg.MaxParallel != 8 {
		t.Fatalf("maxParallel = %d, want 8", cfg.MaxParallel)
	}
	if !cfg.ValidationBundle.Enabled || cfg.ValidationBundle.MaxGroupKB != 150 {
		t.Fatalf("unexpected validation bundle config: %+v", cfg.ValidationBundle)
	}
}

func TestParseFillsDefaults(t *testing.T) {
	doc := []byte(`
schemaVersion: v1
inputRoot: ./input
outputRoot: ./output
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse returned unexpected error: %v", err)
	}
	if len(cfg.Include) == 0 || cfg.Include[0] != "*.swift" {
		t.Fatalf("expected default include pattern, got %+v", cfg.Include)
	}
	if cfg.ValidationBundle.MaxGroupKB != 200 {
		t.Fatalf("expected default maxGroupKB 200, got %d", cfg.ValidationBundle.MaxGroupKB)
	}
}

func TestParseRejectsMissingRequiredField(t *testing.T) {
	doc := []byte(`
schemaVersion: v1
outputRoot: ./output
`)
	if _, err := Parse(doc); err == nil {
		t.Fatal("expected an error for a config missing inputRoot")
	}
}

func TestParseRejectsWrongType(t *testing.T) {
	doc := []byte(`
schemaVersion: v1
inputRoot: ./input
outputRoot: ./output
maxParallel: "eight"
`)
	if _, err := Parse(doc); err == nil {
		t.Fatal("expected an error for maxParallel given as a string")
	}
}

func TestParseRejectsMalformedSemver(t *testing.T) {
	doc := []byte(`
schemaVersion: not-a-version
inputRoot: ./input
outputRoot: ./output
`)
	if _, err := Parse(doc); err == nil {
		t.Fatal("expected an error for an invalid schemaVersion")
	}
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("not: valid: yaml: [")); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}
