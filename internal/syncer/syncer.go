package syncer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ObjectInfo describes one remote object
type ObjectInfo struct {
	Name string
	Size int64
}

// ObjectStore is the storage backend behind remote synchronization. The
// production implementation talks to Google Cloud Storage.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, data io.Reader, contentType string) error
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
	ListObjects(ctx context.Context, prefix string, fn func(object ObjectInfo) error) error
}

// SyncReport counts what a synchronization run did
type SyncReport struct {
	Downloaded int
	Uploaded   int
	Skipped    int
}

// Syncer mirrors kapalo databases and image directories between an object
// store and the local filesystem
type Syncer struct {
	Store  ObjectStore
	Logger *logrus.Logger
}

// NewSyncer creates a Syncer on the given store
func NewSyncer(store ObjectStore, logger *logrus.Logger) *Syncer {
	return &Syncer{
		Store:  store,
		Logger: logger,
	}
}

// Download mirrors every object under prefix into dest. An object whose
// local copy already has the remote size is skipped.
func (s *Syncer) Download(ctx context.Context, prefix, dest string) (SyncReport, error) {
	report := SyncReport{}

	err := s.Store.ListObjects(ctx, prefix, func(object ObjectInfo) error {
		target := filepath.Join(dest, filepath.FromSlash(object.Name))

		if info, statErr := os.Stat(target); statErr == nil && info.Size() == object.Size {
			s.Logger.Infof("Skipping %s, local copy is up to date", object.Name)
			report.Skipped++
			return nil
		}

		if err := s.downloadObject(ctx, object.Name, target); err != nil {
			return err
		}
		s.Logger.Infof("Downloaded %s (%d bytes)", object.Name, object.Size)
		report.Downloaded++
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("downloading prefix %s: %w", prefix, err)
	}

	s.Logger.Infof(
		"Download of %s done: %d downloaded, %d skipped",
		prefix, report.Downloaded, report.Skipped,
	)
	return report, nil
}

func (s *Syncer) downloadObject(ctx context.Context, objectName, target string) error {
	reader, err := s.Store.Download(ctx, objectName)
	if err != nil {
		return fmt.Errorf("opening remote object %s: %w", objectName, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", target, err)
	}
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return file.Close()
}

// Upload pushes every file under src to the store below prefix. A file
// whose remote copy already has the local size is skipped.
func (s *Syncer) Upload(ctx context.Context, src, prefix string) (SyncReport, error) {
	report := SyncReport{}

	remoteSizes := make(map[string]int64)
	err := s.Store.ListObjects(ctx, prefix, func(object ObjectInfo) error {
		remoteSizes[object.Name] = object.Size
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("listing prefix %s: %w", prefix, err)
	}

	err = filepath.WalkDir(src, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}

		relative, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", path, err)
		}
		objectName := objectPath(prefix, relative)

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if size, exists := remoteSizes[objectName]; exists && size == info.Size() {
			s.Logger.Infof("Skipping %s, remote copy is up to date", objectName)
			report.Skipped++
			return nil
		}

		if err := s.uploadFile(ctx, path, objectName); err != nil {
			return err
		}
		s.Logger.Infof("Uploaded %s (%d bytes)", objectName, info.Size())
		report.Uploaded++
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("uploading %s: %w", src, err)
	}

	s.Logger.Infof(
		"Upload of %s done: %d uploaded, %d skipped",
		src, report.Uploaded, report.Skipped,
	)
	return report, nil
}

func (s *Syncer) uploadFile(ctx context.Context, path, objectName string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	if err := s.Store.Upload(ctx, objectName, file, contentType(path)); err != nil {
		return fmt.Errorf("uploading %s: %w", objectName, err)
	}
	return nil
}

// objectPath joins a prefix and a local relative path into a slash
// separated object name
func objectPath(prefix, relative string) string {
	name := filepath.ToSlash(relative)
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

// contentType guesses the MIME type from the file extension
func contentType(path string) string {
	if detected := mime.TypeByExtension(filepath.Ext(path)); detected != "" {
		return detected
	}
	return "application/octet-stream"
}
