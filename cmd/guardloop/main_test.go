package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.txt")
	content := "first question\n\n  second question  \n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	prompts, err := readPrompts(path)
	if err != nil {
		t.Fatalf("readPrompts: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("len(prompts) = %d, want 2", len(prompts))
	}
	if prompts[1] != "second question" {
		t.Errorf("prompts[1] = %q, want trimmed line", prompts[1])
	}
}

func TestReadPrompts_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readPrompts(path); err == nil {
		t.Error("readPrompts on empty file succeeded, want error")
	}
}

func TestRunFlags_FlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guardloop.yaml")
	if err := os.WriteFile(path, []byte("max_iterations: 3\ndomain: general\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	flags := &runFlags{
		configPath:    path,
		maxIterations: 8,
		guardrailID:   "gr-cli",
	}
	cfg, err := flags.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxIterations != 8 {
		t.Errorf("MaxIterations = %d, want flag value 8", cfg.MaxIterations)
	}
	if cfg.Domain != "general" {
		t.Errorf("Domain = %q, want config value general", cfg.Domain)
	}
	if cfg.GuardrailID != "gr-cli" {
		t.Errorf("GuardrailID = %q, want gr-cli", cfg.GuardrailID)
	}
}
