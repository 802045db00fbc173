package imageproc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

// patternImage paints an opaque diagonal luminance pattern so hashes
// and resampling have real structure to work with.
func patternImage(t *testing.T, w, h int) *image.NRGBA {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*255/w + y*255/h) / 2)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: 255 - v, B: v, A: 255})
		}
	}
	return img
}

// framedImage surrounds a 60x60 opaque pattern with fully transparent
// margins on a 100x100 canvas.
func framedImage(t *testing.T) *image.NRGBA {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	inner := patternImage(t, 60, 60)
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			img.SetNRGBA(x+20, y+20, inner.NRGBAAt(x, y))
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestProcessDecodesCommonFormats(t *testing.T) {
	src := patternImage(t, 128, 96)

	var jpegBuf, gifBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, src, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	if err := gif.Encode(&gifBuf, src, nil); err != nil {
		t.Fatalf("gif.Encode() error = %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"design.png", encodePNG(t, src)},
		{"design.jpg", jpegBuf.Bytes()},
		{"design.gif", gifBuf.Bytes()},
	}

	p := New(3000)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Process(tt.name, tt.data)
			if err != nil {
				t.Fatalf("Process(%s) error = %v", tt.name, err)
			}
			if got.Width != 128 || got.Height != 96 {
				t.Errorf("Process(%s) dims = %dx%d, want 128x96", tt.name, got.Width, got.Height)
			}
			if len(got.PNG) == 0 {
				t.Errorf("Process(%s) produced empty output", tt.name)
			}
		})
	}
}

func TestProcessTrimsTransparentMargins(t *testing.T) {
	p := New(3000)

	got, err := p.Process("framed.png", encodePNG(t, framedImage(t)))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got.Width != 60 || got.Height != 60 {
		t.Errorf("Process() dims = %dx%d, want 60x60 after trim", got.Width, got.Height)
	}
}

func TestProcessShrinksToEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		maxEdge int
		wantW   int
		wantH   int
	}{
		{"landscape over limit", 400, 200, 100, 100, 50},
		{"portrait over limit", 200, 400, 100, 50, 100},
		{"within limit untouched", 50, 30, 100, 50, 30},
		{"exactly at limit untouched", 100, 60, 100, 100, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.maxEdge)
			got, err := p.Process(tt.name+".png", encodePNG(t, patternImage(t, tt.w, tt.h)))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got.Width != tt.wantW || got.Height != tt.wantH {
				t.Errorf("Process() dims = %dx%d, want %dx%d", got.Width, got.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestProcessOutputIsPNG(t *testing.T) {
	p := New(3000)
	src := patternImage(t, 64, 64)

	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, src, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}

	got, err := p.Process("photo.jpg", jpegBuf.Bytes())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if _, err := png.Decode(bytes.NewReader(got.PNG)); err != nil {
		t.Errorf("output does not decode as PNG: %v", err)
	}
}

func TestProcessRejectsGarbage(t *testing.T) {
	p := New(3000)

	_, err := p.Process("junk.png", []byte("this is not an image at all"))
	if err == nil {
		t.Fatal("Process(garbage) succeeded, want error")
	}

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Process(garbage) error type = %T, want *DecodeError", err)
	}
	if decodeErr.Filename != "junk.png" {
		t.Errorf("DecodeError.Filename = %q, want %q", decodeErr.Filename, "junk.png")
	}
}

func TestProcessRejectsFullyTransparent(t *testing.T) {
	p := New(3000)
	blank := image.NewNRGBA(image.Rect(0, 0, 40, 40))

	_, err := p.Process("blank.png", encodePNG(t, blank))
	if err == nil {
		t.Fatal("Process(fully transparent) succeeded, want error")
	}
	if !errors.Is(err, ErrFullyTransparent) {
		t.Errorf("Process(fully transparent) error = %v, want ErrFullyTransparent", err)
	}
}

func TestProcessSignatureDeterministic(t *testing.T) {
	p := New(3000)
	data := encodePNG(t, patternImage(t, 96, 96))

	first, err := p.Process("a.png", data)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	second, err := p.Process("b.png", data)
	if err != nil {
		t.Fatalf("Process() second call error = %v", err)
	}

	if first.Signature != second.Signature {
		t.Errorf("signatures differ for identical bytes: %v vs %v", first.Signature, second.Signature)
	}
}

func TestTrimTransparentNoMargins(t *testing.T) {
	img := patternImage(t, 30, 30)

	trimmed, ok := trimTransparent(img)
	if !ok {
		t.Fatal("trimTransparent(opaque) reported no content")
	}
	if trimmed != img {
		t.Error("trimTransparent(opaque) should return the input unchanged")
	}
}
