package syncer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

type fakeObject struct {
	content     []byte
	contentType string
}

// fakeStore keeps objects in memory behind the ObjectStore interface
type fakeStore struct {
	objects      map[string]fakeObject
	failDownload bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]fakeObject)}
}

func (fs *fakeStore) put(objectName, content string) {
	fs.objects[objectName] = fakeObject{content: []byte(content)}
}

func (fs *fakeStore) Upload(ctx context.Context, objectName string, data io.Reader, contentType string) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	fs.objects[objectName] = fakeObject{content: content, contentType: contentType}
	return nil
}

func (fs *fakeStore) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if fs.failDownload {
		return nil, fmt.Errorf("download of %s failed", objectName)
	}
	object, ok := fs.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object %s does not exist", objectName)
	}
	return io.NopCloser(bytes.NewReader(object.content)), nil
}

func (fs *fakeStore) ListObjects(ctx context.Context, prefix string, fn func(object ObjectInfo) error) error {
	names := make([]string, 0, len(fs.objects))
	for name := range fs.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := fn(ObjectInfo{Name: name, Size: int64(len(fs.objects[name].content))}); err != nil {
			return err
		}
	}
	return nil
}

func TestDownload(t *testing.T) {
	logger := createTestLogger()
	store := newFakeStore()
	store.put("kapalo/kapalo.sqlite", "sqlite bytes")
	store.put("kapalo/kapalo_imgs/OBS1_P_0001.jpg", "jpg bytes")
	store.put("other/ignored.txt", "ignored")

	syncer := NewSyncer(store, logger)
	dest := t.TempDir()

	report, err := syncer.Download(context.Background(), "kapalo", dest)

	// Check the result
	if err != nil {
		t.Fatalf("Failed to download: %s", err)
	}
	if report.Downloaded != 2 {
		t.Errorf("Expected 2 downloaded objects, got %d", report.Downloaded)
	}
	if report.Skipped != 0 {
		t.Errorf("Expected no skipped objects, got %d", report.Skipped)
	}

	content, err := os.ReadFile(filepath.Join(dest, "kapalo", "kapalo.sqlite"))
	if err != nil {
		t.Fatalf("Failed to read downloaded database: %s", err)
	}
	if string(content) != "sqlite bytes" {
		t.Errorf("Expected downloaded content, got %q", string(content))
	}

	if _, err := os.Stat(filepath.Join(dest, "other", "ignored.txt")); !os.IsNotExist(err) {
		t.Error("Did not expect objects outside the prefix")
	}
}

func TestDownloadSkipsUnchanged(t *testing.T) {
	logger := createTestLogger()
	store := newFakeStore()
	store.put("kapalo/kapalo.sqlite", "sqlite bytes")

	syncer := NewSyncer(store, logger)
	dest := t.TempDir()

	if _, err := syncer.Download(context.Background(), "kapalo", dest); err != nil {
		t.Fatalf("Failed to download: %s", err)
	}

	report, err := syncer.Download(context.Background(), "kapalo", dest)

	// Check the result
	if err != nil {
		t.Fatalf("Failed to download again: %s", err)
	}
	if report.Downloaded != 0 || report.Skipped != 1 {
		t.Errorf("Expected 1 skipped object, got %+v", report)
	}

	// A size change forces a new download
	target := filepath.Join(dest, "kapalo", "kapalo.sqlite")
	if err := os.WriteFile(target, []byte("stale"), 0o644); err != nil {
		t.Fatalf("Failed to truncate local copy: %s", err)
	}
	report, err = syncer.Download(context.Background(), "kapalo", dest)
	if err != nil {
		t.Fatalf("Failed to download after truncation: %s", err)
	}
	if report.Downloaded != 1 {
		t.Errorf("Expected the changed object downloaded again, got %+v", report)
	}
}

func TestDownloadFailure(t *testing.T) {
	logger := createTestLogger()
	store := newFakeStore()
	store.put("kapalo/kapalo.sqlite", "sqlite bytes")
	store.failDownload = true

	syncer := NewSyncer(store, logger)

	if _, err := syncer.Download(context.Background(), "kapalo", t.TempDir()); err == nil {
		t.Fatal("Expected an error when the store fails")
	}
}

func TestUpload(t *testing.T) {
	logger := createTestLogger()
	store := newFakeStore()
	syncer := NewSyncer(store, logger)

	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "exports"), 0o755); err != nil {
		t.Fatalf("Failed to create export directory: %s", err)
	}
	files := map[string]string{
		filepath.Join(src, "index.html"):             "<html></html>",
		filepath.Join(src, "exports", "planars.csv"): "DIP\n45\n",
		filepath.Join(src, "README"):                 "readme",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %s", path, err)
		}
	}

	report, err := syncer.Upload(context.Background(), src, "kapalo-exports")

	// Check the result
	if err != nil {
		t.Fatalf("Failed to upload: %s", err)
	}
	if report.Uploaded != 3 {
		t.Errorf("Expected 3 uploaded files, got %d", report.Uploaded)
	}

	html, ok := store.objects["kapalo-exports/index.html"]
	if !ok {
		t.Fatal("Expected the html file in the store")
	}
	if !strings.HasPrefix(html.contentType, "text/html") {
		t.Errorf("Expected an html content type, got %s", html.contentType)
	}

	plain, ok := store.objects["kapalo-exports/README"]
	if !ok {
		t.Fatal("Expected the extensionless file in the store")
	}
	if plain.contentType != "application/octet-stream" {
		t.Errorf("Expected the fallback content type, got %s", plain.contentType)
	}

	if _, ok := store.objects["kapalo-exports/exports/planars.csv"]; !ok {
		t.Error("Expected nested files uploaded with their relative paths")
	}
}

func TestUploadSkipsUnchanged(t *testing.T) {
	logger := createTestLogger()
	store := newFakeStore()
	syncer := NewSyncer(store, logger)

	src := t.TempDir()
	path := filepath.Join(src, "planars.csv")
	if err := os.WriteFile(path, []byte("DIP\n45\n"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %s", err)
	}

	if _, err := syncer.Upload(context.Background(), src, "kapalo-exports"); err != nil {
		t.Fatalf("Failed to upload: %s", err)
	}

	report, err := syncer.Upload(context.Background(), src, "kapalo-exports")

	// Check the result
	if err != nil {
		t.Fatalf("Failed to upload again: %s", err)
	}
	if report.Uploaded != 0 || report.Skipped != 1 {
		t.Errorf("Expected 1 skipped file, got %+v", report)
	}

	// A size change forces a new upload
	if err := os.WriteFile(path, []byte("DIP\n45\n60\n"), 0o644); err != nil {
		t.Fatalf("Failed to grow file: %s", err)
	}
	report, err = syncer.Upload(context.Background(), src, "kapalo-exports")
	if err != nil {
		t.Fatalf("Failed to upload after change: %s", err)
	}
	if report.Uploaded != 1 {
		t.Errorf("Expected the changed file uploaded again, got %+v", report)
	}
}

func TestObjectPath(t *testing.T) {
	cases := []struct {
		prefix   string
		relative string
		expected string
	}{
		{"kapalo", "kapalo.sqlite", "kapalo/kapalo.sqlite"},
		{"kapalo/", "kapalo.sqlite", "kapalo/kapalo.sqlite"},
		{"", "kapalo.sqlite", "kapalo.sqlite"},
		{"a", filepath.Join("b", "c.txt"), "a/b/c.txt"},
	}

	for _, c := range cases {
		if name := objectPath(c.prefix, c.relative); name != c.expected {
			t.Errorf("Expected %q for (%q, %q), got %q", c.expected, c.prefix, c.relative, name)
		}
	}
}
