package config

import (
	"errors"
	"os"
	"path"
	"testing"
)

func TestFileGetSetDelete(t *testing.T) {
	dir := path.Join(t.TempDir(), "nested")
	f := NewConfigFileWithDir(dir, "config.yaml")
	// Test 1 - a missing file has no keys.
	keys, err := f.GetAllKeys()
	if err != nil || len(keys) != 0 {
		t.Fatalf("test 1 failed: expected no keys and no error; got %v, %v", keys, err)
	}
	var s string
	if err = f.Get("batch-size", &s); !errors.As(err, &KeyNotFoundError{}) {
		t.Fatalf("test 1 failed: expected KeyNotFoundError; got %v", err)
	}
	// Test 2 - values survive a reload and convert between scalar types.
	if err = f.Set("batch-size", "250"); err != nil {
		t.Fatalf("test 2 failed: %v", err)
	}
	if err = f.Set("source-schema", "PUB"); err != nil {
		t.Fatalf("test 2 failed: %v", err)
	}
	f2 := NewConfigFileWithDir(dir, "config.yaml")
	var n int
	if err = f2.Get("batch-size", &n); err != nil || n != 250 {
		t.Fatalf("test 2 failed: expected 250; got %v, %v", n, err)
	}
	if err = f2.Get("source-schema", &s); err != nil || s != "PUB" {
		t.Fatalf("test 2 failed: expected PUB; got %v, %v", s, err)
	}
	if got := f2.String(); got != "batch-size=250\nsource-schema=PUB\n" {
		t.Fatalf("test 2 failed: unexpected rendering %q", got)
	}
	// Test 3 - delete.
	if err = f2.Delete("batch-size"); err != nil {
		t.Fatalf("test 3 failed: %v", err)
	}
	if err = f2.Delete("batch-size"); !errors.As(err, &KeyNotFoundError{}) {
		t.Fatalf("test 3 failed: expected KeyNotFoundError; got %v", err)
	}
	keys, _ = NewConfigFileWithDir(dir, "config.yaml").GetAllKeys()
	if len(keys) != 1 || keys[0] != "source-schema" {
		t.Fatalf("test 3 failed: unexpected keys %v", keys)
	}
}

func TestFileRejectsBadYaml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(path.Join(dir, "config.yaml"), []byte("key: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	var s string
	if err := NewConfigFileWithDir(dir, "config.yaml").Get("key", &s); err == nil {
		t.Fatal("expected a parse error")
	}
}
