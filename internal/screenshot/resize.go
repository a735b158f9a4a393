package screenshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ResizeInto writes email-bounded copies of the captured images into
// outDir. Images wider than maxWidth are scaled down preserving aspect
// ratio; narrower ones are copied unchanged. The originals are left in
// place for upload. Returns the copies in input order.
func ResizeInto(images []Image, maxWidth int, outDir string) ([]Image, error) {
	if maxWidth <= 0 {
		return nil, fmt.Errorf("invalid max width %d", maxWidth)
	}
	if len(images) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating resize directory: %w", err)
	}

	out := make([]Image, 0, len(images))
	for _, img := range images {
		dst := filepath.Join(outDir, filepath.Base(img.Path))
		if err := resizeCopy(img.Path, dst, maxWidth); err != nil {
			return nil, err
		}
		out = append(out, Image{Section: img.Section, Path: dst})
	}
	return out, nil
}

func resizeCopy(src, dst string, maxWidth int) error {
	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("opening image %s: %w", src, err)
	}
	var resized = img
	if img.Bounds().Dx() > maxWidth {
		resized = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	if err := imaging.Save(resized, dst); err != nil {
		return fmt.Errorf("saving resized image %s: %w", dst, err)
	}
	return nil
}
