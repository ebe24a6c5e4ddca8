package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskStorePut(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir, "/uploads/", 1024)
	if err != nil {
		t.Fatal(err)
	}

	ref, err := s.Put(context.Background(), "Cat.PNG", strings.NewReader("pixels"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(ref, "/uploads/") || !strings.HasSuffix(ref, ".png") {
		t.Errorf("Unexpected reference %q", ref)
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(ref)))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "pixels" {
		t.Errorf("Expected stored content, got %q", data)
	}
}

func TestDiskStoreTooLarge(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewDiskStore(dir, "/uploads", 4)

	if _, err := s.Put(context.Background(), "a.jpg", strings.NewReader("too big")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected partial upload removed, found %d files", len(entries))
	}
}
