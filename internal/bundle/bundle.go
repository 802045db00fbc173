// Package bundle packages the accepted files of a digital design
// session into a single zip archive for buyer delivery.
package bundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard
// (APPNOTE 6.3.7). Registered in init() with zstd level 12
// (SpeedBestCompression in klauspost/compress).
const zipMethodZstd uint16 = 93

func init() {
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})
}

// ErrNoFiles is returned by Build when there is nothing to package.
var ErrNoFiles = errors.New("bundle: no files")

// File is one entry to package.
type File struct {
	Name string
	Data []byte
}

// Build writes a zip archive with Zstandard-compressed entries and
// returns the archive bytes. Entry order follows the input order.
func Build(files []File) ([]byte, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	now := time.Now()
	for _, f := range files {
		header := &zip.FileHeader{
			Name:     f.Name,
			Method:   zipMethodZstd,
			Modified: now,
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
