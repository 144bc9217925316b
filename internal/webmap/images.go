package webmap

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

// ImageIndex matches outcrop picture ids to the image files of a directory
type ImageIndex struct {
	Dir   string
	paths []string
}

// NewImageIndex globs the jpg files under dir. A missing directory gives an
// empty index that matches nothing.
func NewImageIndex(dir string) *ImageIndex {
	paths, _ := filepath.Glob(filepath.Join(dir, "*.jpg"))
	sort.Strings(paths)
	return &ImageIndex{Dir: dir, paths: paths}
}

// Len reports how many image files the index knows about
func (ii *ImageIndex) Len() int {
	return len(ii.paths)
}

// Match finds the single image whose file name contains the picture id.
// Zero or multiple candidates both count as no match, the caller cannot
// tell which file the id meant.
func (ii *ImageIndex) Match(imageID string) (string, bool) {
	if imageID == "" {
		return "", false
	}

	var matches []string
	for _, path := range ii.paths {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if strings.Contains(stem, imageID) {
			matches = append(matches, path)
		}
	}
	if len(matches) != 1 {
		return "", false
	}
	return matches[0], true
}

// Resizer scales outcrop photographs down to a fixed width so the webmap
// bundle stays small enough to share
type Resizer struct {
	Width  int
	Logger *logrus.Logger
}

// NewResizer creates a Resizer with the given target width
func NewResizer(width int, logger *logrus.Logger) *Resizer {
	return &Resizer{Width: width, Logger: logger}
}

// ResizeFile scales one image to the target width keeping the aspect ratio.
// The output format follows the decoded input format.
func (r *Resizer) ResizeFile(src, dest string) error {
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening image %s: %w", src, err)
	}
	img, format, err := image.Decode(file)
	closeErr := file.Close()
	if err != nil {
		return fmt.Errorf("decoding image %s: %w", src, err)
	}
	if closeErr != nil {
		return closeErr
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return fmt.Errorf("image %s has no pixels", src)
	}
	height := bounds.Dy() * r.Width / bounds.Dx()
	if height < 1 {
		height = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, r.Width, height))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Src, nil)

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating image %s: %w", dest, err)
	}
	switch format {
	case "png":
		err = png.Encode(out, scaled)
	default:
		err = jpeg.Encode(out, scaled, &jpeg.Options{Quality: 95})
	}
	if err != nil {
		out.Close()
		return fmt.Errorf("encoding image %s: %w", dest, err)
	}
	return out.Close()
}

// ResizeDir resizes every image with the extension from origin into dest.
// Existing outputs are kept unless overwrite is set. Returns the number of
// images present in dest afterwards.
func (r *Resizer) ResizeDir(origin, dest, extension string, overwrite bool) (int, error) {
	if extension == "" {
		extension = "jpg"
	}
	paths, err := filepath.Glob(filepath.Join(origin, "*."+extension))
	if err != nil {
		return 0, fmt.Errorf("globbing %s: %w", origin, err)
	}
	sort.Strings(paths)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", dest, err)
	}

	count := 0
	for _, src := range paths {
		target := filepath.Join(dest, filepath.Base(src))
		if !overwrite {
			if _, statErr := os.Stat(target); statErr == nil {
				count++
				continue
			}
		}
		if err := r.ResizeFile(src, target); err != nil {
			return count, err
		}
		count++
	}

	r.Logger.Infof("Resized %d %s images from %s into %s", count, extension, origin, dest)
	return count, nil
}
