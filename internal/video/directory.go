package video

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
)

// DirectorySource reads pre-extracted frames from a directory of image
// files, ordered by filename. Webcast recordings are split into frames
// upstream; this source only decodes them.
type DirectorySource struct {
	files []string
	fps   float64
}

// NewDirectorySource scans dir for PNG and JPEG frames. Filenames must
// sort in frame order (zero-padded indices).
func NewDirectorySource(dir string, fps float64) (*DirectorySource, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %v", fps)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no frame images in %s", dir)
	}
	sort.Strings(files)

	return &DirectorySource{files: files, fps: fps}, nil
}

func (s *DirectorySource) FrameCount() int { return len(s.files) }

func (s *DirectorySource) FPS() float64 { return s.fps }

func (s *DirectorySource) DecodeFrame(ctx context.Context, index int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.files) {
		return nil, &DecodeError{Index: index, Cause: fmt.Errorf("index out of range [0,%d)", len(s.files))}
	}

	f, err := os.Open(s.files[index])
	if err != nil {
		return nil, &DecodeError{Index: index, Cause: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &DecodeError{Index: index, Cause: err}
	}
	return img, nil
}
