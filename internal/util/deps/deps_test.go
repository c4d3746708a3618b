package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, p string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestFindDownloaderBundled(t *testing.T) {
	tools := t.TempDir()
	want := BundledDownloader(tools)
	touch(t, want)

	got, err := FindDownloader("", tools)
	if err != nil {
		t.Fatalf("FindDownloader: %v", err)
	}
	if got != want {
		t.Errorf("FindDownloader = %q, want %q", got, want)
	}
}

func TestFindDownloaderCustomMissing(t *testing.T) {
	_, err := FindDownloader(filepath.Join(t.TempDir(), "nope"), "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFindBundledFFmpeg(t *testing.T) {
	tools := t.TempDir()
	if _, ok := FindBundledFFmpeg(tools); ok {
		t.Fatal("found ffmpeg in empty tools dir")
	}
	touch(t, BundledFFmpeg(tools))
	dir, ok := FindBundledFFmpeg(tools)
	if !ok {
		t.Fatal("bundled ffmpeg not found")
	}
	if dir != filepath.Join(tools, "ffmpeg") {
		t.Errorf("dir = %q, want %q", dir, filepath.Join(tools, "ffmpeg"))
	}
}
