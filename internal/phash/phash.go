// Package phash computes and compares perceptual image signatures.
//
// A signature pairs two 64-bit hashes over the same pixels: a DCT
// perception hash, which captures low-frequency structure, and a
// gradient difference hash, which captures local luminance direction.
// Two hashes catch different mutation families (recompression, mild
// resampling, small edits), so duplicate decisions use a combined
// distance over both components.
package phash

import (
	"fmt"
	"image"
	"math/bits"
	"strconv"

	"github.com/corona10/goimagehash"
)

// CombineMode selects how the two component distances fold into the
// combined distance a duplicate threshold applies to.
type CombineMode string

const (
	// CombineSum adds the component distances. Equivalent to the
	// Hamming distance over the 128-bit concatenated signature.
	CombineSum CombineMode = "sum"

	// CombineMax takes the larger component distance, so both
	// components must independently be near before two images read
	// as duplicates.
	CombineMax CombineMode = "max"
)

// ParseCombineMode validates a mode string from configuration.
func ParseCombineMode(s string) (CombineMode, error) {
	switch CombineMode(s) {
	case CombineSum, CombineMax:
		return CombineMode(s), nil
	}
	return "", fmt.Errorf("unknown combine mode %q", s)
}

// Signature is the fixed-length perceptual fingerprint of an image.
// The zero value is not a valid signature of any real image.
type Signature struct {
	PHash uint64
	DHash uint64
}

// FromImage computes the signature of a decoded image. The result is
// deterministic for identical pixel data.
func FromImage(img image.Image) (Signature, error) {
	p, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Signature{}, fmt.Errorf("perception hash: %w", err)
	}
	d, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return Signature{}, fmt.Errorf("difference hash: %w", err)
	}
	return Signature{PHash: p.GetHash(), DHash: d.GetHash()}, nil
}

// Distance returns the combined distance between two signatures.
func Distance(a, b Signature, mode CombineMode) int {
	pd := bits.OnesCount64(a.PHash ^ b.PHash)
	dd := bits.OnesCount64(a.DHash ^ b.DHash)
	if mode == CombineMax {
		if pd > dd {
			return pd
		}
		return dd
	}
	return pd + dd
}

// PhashHex renders the DCT component as 16 lowercase hex characters,
// the form stored on catalog records.
func (s Signature) PhashHex() string {
	return fmt.Sprintf("%016x", s.PHash)
}

// DhashHex renders the gradient component as 16 lowercase hex characters.
func (s Signature) DhashHex() string {
	return fmt.Sprintf("%016x", s.DHash)
}

// String renders the full signature as the 32-character concatenation
// of both components, used as the catalog uniqueness key.
func (s Signature) String() string {
	return s.PhashHex() + s.DhashHex()
}

// Parse rebuilds a signature from its two stored hex components.
func Parse(phashHex, dhashHex string) (Signature, error) {
	p, err := parseComponent(phashHex)
	if err != nil {
		return Signature{}, fmt.Errorf("phash component: %w", err)
	}
	d, err := parseComponent(dhashHex)
	if err != nil {
		return Signature{}, fmt.Errorf("dhash component: %w", err)
	}
	return Signature{PHash: p, DHash: d}, nil
}

func parseComponent(s string) (uint64, error) {
	if len(s) != 16 {
		return 0, fmt.Errorf("want 16 hex characters, got %d", len(s))
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("not hexadecimal: %q", s)
	}
	return v, nil
}
