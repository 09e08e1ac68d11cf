package fractal

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func checkerCanvas() *Canvas {
	c := NewCanvas(9, 7)
	for y := range 7 {
		for x := range 9 {
			if (x+y)%2 == 0 {
				c.Paint(x, y)
			}
		}
	}
	return c
}

func sameGray(t *testing.T, want *image.Gray, got image.Image) {
	t.Helper()
	if got.Bounds() != want.Bounds() {
		t.Fatalf("bounds = %v, want %v", got.Bounds(), want.Bounds())
	}
	b := want.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(got.At(x, y)).(color.Gray)
			if g.Y != want.GrayAt(x, y).Y {
				t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, g.Y, want.GrayAt(x, y).Y)
			}
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	c := checkerCanvas()

	tests := []struct {
		format Format
		decode func(*bytes.Reader) (image.Image, error)
	}{
		{FormatPNG, func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) }},
		{FormatBMP, func(r *bytes.Reader) (image.Image, error) { return bmp.Decode(r) }},
		{FormatTIFF, func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) }},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, c.Image(), tt.format); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			img, err := tt.decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("decode error = %v", err)
			}
			sameGray(t, c.Image(), img)
		})
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, NewCanvas(1, 1).Image(), Format(42)); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Encode(Format(42)) = %v, want ErrUnknownFormat", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"out.png", FormatPNG, true},
		{"OUT.PNG", FormatPNG, true},
		{"dir/out.bmp", FormatBMP, true},
		{"out.tif", FormatTIFF, true},
		{"out.tiff", FormatTIFF, true},
		{"out.jpg", 0, false},
		{"out", 0, false},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("FormatFromPath(%q) = %v, %v; want %v", tt.path, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("FormatFromPath(%q) error = %v, want ErrUnknownFormat", tt.path, err)
		}
	}
}

func TestCanvasSave(t *testing.T) {
	c := checkerCanvas()
	dir := t.TempDir()

	for _, name := range []string{"a.png", "a.bmp", "a.tiff"} {
		path := filepath.Join(dir, name)
		if err := c.Save(path); err != nil {
			t.Fatalf("Save(%q) error = %v", name, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat(%q) error = %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}

	if err := c.Save(filepath.Join(dir, "a.gif")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Save(a.gif) = %v, want ErrUnknownFormat", err)
	}
}
