// Package frameio loads and stores frame images for the reframing
// pipeline. Video decode/encode is out of scope: an external demuxer
// extracts frames to disk and an external exporter re-encodes them.
package frameio

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/reframe/internal/utils"
	"github.com/menta2k/reframe/pkg/pipeline"
	"github.com/menta2k/reframe/pkg/types"
)

// LoadImage loads an image from a file path with WebP support.
func LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err == nil {
			if img, _, err := image.Decode(f); err == nil {
				return img, nil
			}
		}
	} else if img, _, err := image.Decode(f); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// SaveImage saves an image with the specified format and quality.
func SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// DirectorySource reads an extracted frame sequence from a directory, in
// filename order, stamping timestamps from the sampling rate.
type DirectorySource struct {
	files    []string
	interval float64
	index    int
}

// NewDirectorySource lists the image files under dir. fps is the sampling
// rate the frames were extracted at.
func NewDirectorySource(dir string, fps float64) (*DirectorySource, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w: fps must be positive", types.ErrConfiguration)
	}
	files, err := utils.ListFrameFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("listing frames in %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no frame images found in %s", dir)
	}
	return &DirectorySource{files: files, interval: 1 / fps}, nil
}

// Len returns the number of frames in the sequence.
func (s *DirectorySource) Len() int {
	return len(s.files)
}

// Next implements pipeline.FrameSource.
func (s *DirectorySource) Next(_ context.Context) (pipeline.Frame, error) {
	if s.index >= len(s.files) {
		return pipeline.Frame{}, io.EOF
	}

	img, err := LoadImage(s.files[s.index])
	if err != nil {
		return pipeline.Frame{}, fmt.Errorf("loading %s: %w", s.files[s.index], err)
	}

	frame := pipeline.Frame{
		Timestamp: float64(s.index) * s.interval,
		Index:     s.index,
		Image:     img,
	}
	s.index++
	return frame, nil
}

// DirectorySink writes rendered frames into a directory as numbered
// images.
type DirectorySink struct {
	dir      string
	format   string
	quality  int
	lossless bool
}

// NewDirectorySink creates the output directory if needed.
func NewDirectorySink(dir, format string, quality int, lossless bool) (*DirectorySink, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}
	return &DirectorySink{dir: dir, format: format, quality: quality, lossless: lossless}, nil
}

// Write implements pipeline.FrameSink.
func (s *DirectorySink) Write(_ context.Context, frame pipeline.Frame, rendered image.Image, _ types.CropDecision) error {
	name := fmt.Sprintf("frame_%06d.%s", frame.Index, s.format)
	return SaveImage(rendered, filepath.Join(s.dir, name), s.format, s.quality, s.lossless)
}
