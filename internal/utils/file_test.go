package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFileExtension(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"frame_000001.jpg", "jpg"},
		{"photo.JPEG", "jpeg"},
		{"image.webp", "webp"},
		{"noext", ""},
		{"archive.tar.gz", "gz"},
	}
	for _, tc := range cases {
		if got := GetFileExtension(tc.in); got != tc.want {
			t.Errorf("GetFileExtension(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.png", "c.webp", "d.JPEG"} {
		if !IsImageFile(name) {
			t.Errorf("IsImageFile(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"a.txt", "b.mp4", "noext"} {
		if IsImageFile(name) {
			t.Errorf("IsImageFile(%q) = true, want false", name)
		}
	}
}

func TestListFrameFilesSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame_000002.jpg", "frame_000000.jpg", "frame_000001.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := ListFrameFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %v", len(files), files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("files not sorted: %s >= %s", files[i-1], files[i])
		}
	}
}

func TestEnsureDirAndFileExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir on existing dir failed: %v", err)
	}

	path := filepath.Join(dir, "f.txt")
	if FileExists(path) {
		t.Error("FileExists true for missing file")
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists false for existing file")
	}
	if FileExists(dir) {
		t.Error("FileExists true for a directory")
	}
}
