package fractal

import (
	"image"
	"image/color"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Canvas is an in-memory grayscale Painter.
//
// Every Paint sets one pixel to the ink color on a paper background.
// Canvas is not safe for concurrent use; Render only paints from a single
// goroutine.
type Canvas struct {
	img     *image.Gray
	ink     color.Gray
	paper   color.Gray
	painted int
}

// NewCanvas creates a white canvas that paints in black.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{
		img:   image.NewGray(image.Rect(0, 0, max(width, 0), max(height, 0))),
		ink:   color.Gray{Y: 0},
		paper: color.Gray{Y: 0xff},
	}
	c.Clear()
	return c
}

// Width returns the width of the canvas.
func (c *Canvas) Width() int {
	return c.img.Rect.Dx()
}

// Height returns the height of the canvas.
func (c *Canvas) Height() int {
	return c.img.Rect.Dy()
}

// SetColors sets the ink and paper colors and clears the canvas.
func (c *Canvas) SetColors(ink, paper color.Gray) {
	c.ink = ink
	c.paper = paper
	c.Clear()
}

// Clear fills the canvas with the paper color.
func (c *Canvas) Clear() {
	for i := range c.img.Pix {
		c.img.Pix[i] = c.paper.Y
	}
	c.painted = 0
}

// Paint sets pixel (x, y) to the ink color. Out-of-range pixels are ignored.
func (c *Canvas) Paint(x, y int) {
	if !(image.Point{X: x, Y: y}).In(c.img.Rect) {
		return
	}
	c.img.Pix[c.img.PixOffset(x, y)] = c.ink.Y
	c.painted++
}

// Painted returns the number of Paint calls that hit the canvas.
func (c *Canvas) Painted() int {
	return c.painted
}

// Image returns the underlying image. It shares storage with the canvas.
func (c *Canvas) Image() *image.Gray {
	return c.img
}

// Scaled returns a copy of the canvas resampled to width x height with
// Catmull-Rom interpolation.
func (c *Canvas) Scaled(width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, max(width, 1), max(height, 1)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), c.img, c.img.Bounds(), xdraw.Src, nil)
	return dst
}

// captionSize is the caption font size in pixels.
const captionSize = 14

var captionFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// DrawCaption writes text in the ink color along the bottom-left corner.
func (c *Canvas) DrawCaption(text string) error {
	f, err := captionFont()
	if err != nil {
		return err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    captionSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = face.Close()
	}()

	margin := captionSize / 2
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(c.ink),
		Face: face,
		Dot:  fixed.P(margin, c.Height()-margin),
	}
	d.DrawString(text)
	return nil
}

// At implements the image.Image interface.
func (c *Canvas) At(x, y int) color.Color {
	return c.img.At(x, y)
}

// Bounds implements the image.Image interface.
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// ColorModel implements the image.Image interface.
func (c *Canvas) ColorModel() color.Model {
	return color.GrayModel
}
