package bundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func init() {
	// The production path only writes archives; reading them back for
	// verification needs the matching decompressor.
	zip.RegisterDecompressor(zipMethodZstd, func(r io.Reader) io.ReadCloser {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return io.NopCloser(bytes.NewReader(nil))
		}
		return zr.IOReadCloser()
	})
}

func TestBuildRoundTrip(t *testing.T) {
	files := []File{
		{Name: "skull.png", Data: bytes.Repeat([]byte("design-a "), 500)},
		{Name: "rose.png", Data: bytes.Repeat([]byte("design-b "), 300)},
	}

	data, err := Build(files)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(zr.File) != len(files) {
		t.Fatalf("archive has %d entries, want %d", len(zr.File), len(files))
	}

	for i, entry := range zr.File {
		if entry.Name != files[i].Name {
			t.Errorf("entry %d name = %q, want %q", i, entry.Name, files[i].Name)
		}
		if entry.Method != zipMethodZstd {
			t.Errorf("entry %d method = %d, want %d", i, entry.Method, zipMethodZstd)
		}

		rc, err := entry.Open()
		if err != nil {
			t.Fatalf("opening entry %s: %v", entry.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading entry %s: %v", entry.Name, err)
		}
		if !bytes.Equal(content, files[i].Data) {
			t.Errorf("entry %s content mismatch: got %d bytes, want %d", entry.Name, len(content), len(files[i].Data))
		}
	}
}

func TestBuildCompresses(t *testing.T) {
	// Highly repetitive data must shrink under zstd.
	files := []File{{Name: "repeat.png", Data: bytes.Repeat([]byte("aaaa"), 100000)}}

	data, err := Build(files)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(data) >= len(files[0].Data) {
		t.Errorf("archive size %d not smaller than input %d", len(data), len(files[0].Data))
	}
}

func TestBuildEmpty(t *testing.T) {
	if _, err := Build(nil); !errors.Is(err, ErrNoFiles) {
		t.Errorf("Build(nil) error = %v, want ErrNoFiles", err)
	}
}
