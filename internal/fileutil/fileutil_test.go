package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "tile-left.jpg")

	if err := WriteAtomic(dst, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(dst, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content mismatch: got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestWriteAtomicConcurrent(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.jpg")
	payloads := []string{"aaaa", "bbbbbbbb", "cccccccccccc"}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			if err := WriteAtomic(dst, []byte(strings.Repeat(p, 1000)), 0o644); err != nil {
				t.Error(err)
			}
		}(p)
	}
	wg.Wait()

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	ok := false
	for _, p := range payloads {
		if string(got) == strings.Repeat(p, 1000) {
			ok = true
		}
	}
	if !ok {
		t.Fatalf("interleaved content of %d bytes", len(got))
	}
}

func TestWriteAtomicMissingDir(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "missing", "out.jpg")
	if err := WriteAtomic(dst, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("left"))
	if a != ContentHash([]byte("left")) {
		t.Fatal("hash is not deterministic")
	}
	if a == ContentHash([]byte("right")) {
		t.Fatal("distinct inputs share a hash")
	}
	if s := FormatHash(a); len(s) != 16 {
		t.Fatalf("formatted hash %q", s)
	}
	if LockPath("/a/b.jpg") == LockPath("/a/c.jpg") {
		t.Fatal("lock paths collide")
	}
}
