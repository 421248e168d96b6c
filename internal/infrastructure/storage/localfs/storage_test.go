package localfs

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.Save(context.Background(), "cv-1_resume.pdf", strings.NewReader("%PDF-1.4 body")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := store.Open(context.Background(), "cv-1_resume.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)
	if err := store.Save(context.Background(), "a.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "a.pdf" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestOpenMissingKeyIsNotFound(t *testing.T) {
	store, _ := New(t.TempDir())
	_, err := store.Open(context.Background(), "missing.pdf")
	if !domain.IsKind(err, domain.ErrResumeNotFound) {
		t.Fatalf("expected ErrResumeNotFound, got %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	store, _ := New(t.TempDir())
	for _, key := range []string{"", "../etc/passwd", "sub/dir.pdf", ".hidden"} {
		if err := store.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("key %q: expected invalid input, got %v", key, err)
		}
	}
}
