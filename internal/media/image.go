package media

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/corona10/goimagehash"
	"github.com/nfnt/resize"
)

// canonicalDim is the side length images are resampled to before hashing,
// so perceptually similar images of different resolutions hash the same.
const canonicalDim = 256

// imageFingerprinter computes a perceptual hash (pHash-class, DCT-based)
// for common raster image formats.
type imageFingerprinter struct {
	exts map[string]bool
}

// NewImageFingerprinter returns a Fingerprinter for jpeg, png, and gif files.
func NewImageFingerprinter() Fingerprinter {
	return &imageFingerprinter{exts: map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	}}
}

func (i *imageFingerprinter) Supports(ext string) bool { return i.exts[ext] }

func (i *imageFingerprinter) Fingerprint(_ context.Context, path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	resized := resize.Resize(canonicalDim, canonicalDim, img, resize.Lanczos3)

	hash, err := goimagehash.PerceptionHash(resized)
	if err != nil {
		return 0, fmt.Errorf("phash: %w", err)
	}
	return hash.GetHash(), nil
}
