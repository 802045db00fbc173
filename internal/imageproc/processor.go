// Package imageproc normalizes raw design uploads into catalog-ready
// artwork: decode, trim transparent margins, shrink into the canonical
// size envelope, re-encode as PNG, and fingerprint the result.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/phash"
)

// ErrFullyTransparent marks files that decode but contain no opaque
// pixels, which leaves nothing to trim to.
var ErrFullyTransparent = errors.New("image has no opaque pixels")

// DecodeError reports a file whose bytes could not be turned into
// usable artwork. The failure is scoped to the one file; batch
// processing records it and moves on.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Processed is the outcome of running one file through the pipeline.
type Processed struct {
	// PNG is the normalized artwork, always re-encoded as PNG
	// regardless of the upload format.
	PNG       []byte
	Width     int
	Height    int
	Signature phash.Signature
}

// Processor normalizes uploads against a fixed size envelope.
// Safe for concurrent use.
type Processor struct {
	maxEdge int
}

// New returns a Processor whose output images fit within
// maxEdgePx on their longer edge. Smaller images are never upscaled.
func New(maxEdgePx int) *Processor {
	return &Processor{maxEdge: maxEdgePx}
}

// Process runs the full normalization pipeline on one file.
// Supported input formats: PNG, JPEG, GIF, WebP, BMP, TIFF.
// EXIF orientation is applied during decode.
func (p *Processor) Process(filename string, data []byte) (*Processed, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: err}
	}

	nrgba := imaging.Clone(img)
	trimmed, ok := trimTransparent(nrgba)
	if !ok {
		return nil, &DecodeError{Filename: filename, Err: ErrFullyTransparent}
	}

	b := trimmed.Bounds()
	if b.Dx() > p.maxEdge || b.Dy() > p.maxEdge {
		trimmed = imaging.Fit(trimmed, p.maxEdge, p.maxEdge, imaging.Lanczos)
		b = trimmed.Bounds()
	}

	sig, err := phash.FromImage(trimmed)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", filename, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, trimmed, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode %s: %w", filename, err)
	}

	return &Processed{
		PNG:       buf.Bytes(),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Signature: sig,
	}, nil
}

// trimTransparent crops away fully transparent margins so the same
// artwork exported on different canvas sizes normalizes to identical
// pixels. Returns false when the image has no opaque content at all.
func trimTransparent(img *image.NRGBA) (*image.NRGBA, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride : (y-b.Min.Y)*img.Stride+b.Dx()*4]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			maxY = y
		}
	}

	if maxX < minX {
		return nil, false
	}

	opaque := image.Rect(minX, minY, maxX+1, maxY+1)
	if opaque == b {
		return img, true
	}
	return imaging.Crop(img, opaque), true
}
