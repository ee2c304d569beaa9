package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/nantokaworks/ptouch-label/internal/tape"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Colors per tape polarity. White tape takes black ink on a white ground;
// the default (dark laminated tape) burns the ground and leaves the
// glyphs in tape color.
func labelColors(whiteTape bool) (bg, ink color.Gray) {
	if whiteTape {
		return color.Gray{Y: 255}, color.Gray{Y: 0}
	}
	return color.Gray{Y: 0}, color.Gray{Y: 255}
}

// Text renders one line of text into a grayscale label image. The canvas
// height equals the tape's head pin count and the glyph ink is centered
// symmetrically: measured by its ink box, not by font metrics, so ascender
// and descender whitespace never skews the label.
func Text(face font.Face, text string, p tape.Profile, marginPx int, whiteTape bool) (*image.Gray, error) {
	if text == "" {
		return nil, fmt.Errorf("empty label text")
	}
	if marginPx < 0 {
		return nil, fmt.Errorf("negative margin: %d", marginPx)
	}

	bounds, _ := font.BoundString(face, text)
	inkW := (bounds.Max.X - bounds.Min.X).Ceil()
	inkH := (bounds.Max.Y - bounds.Min.Y).Ceil()
	if inkW <= 0 || inkH <= 0 {
		return nil, fmt.Errorf("text %q produced no ink", text)
	}

	canvasW := inkW + 2*marginPx
	canvasH := p.HeadPins
	bg, ink := labelColors(whiteTape)

	img := image.NewGray(image.Rect(0, 0, canvasW, canvasH))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	// インクボックスの左上が (marginPx, 上下中央) に来るようにDotを逆算
	top := (canvasH - inkH) / 2
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(marginPx) - bounds.Min.X,
			Y: fixed.I(top) - bounds.Min.Y,
		},
	}
	d.DrawString(text)

	return img, nil
}
