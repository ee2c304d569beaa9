package render

import (
	"fmt"
	"image"

	"github.com/nantokaworks/ptouch-label/internal/tape"
	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
)

// QR renders the content as a QR code sized to the tape height. Modules
// are scaled with nearest-neighbor so their edges stay hard at print
// resolution.
func QR(content string, p tape.Profile, marginPx int, whiteTape bool) (*image.Gray, error) {
	if content == "" {
		return nil, fmt.Errorf("empty QR content")
	}
	if marginPx < 0 {
		return nil, fmt.Errorf("negative margin: %d", marginPx)
	}

	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to build QR code: %w", err)
	}

	bg, ink := labelColors(whiteTape)

	// モジュール格子を先にポラリティ込みで描き、あとで一括拡大する
	grid := q.Bitmap()
	n := len(grid)
	src := image.NewGray(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := bg
			if grid[y][x] {
				c = ink
			}
			src.SetGray(x, y, c)
		}
	}

	side := p.HeadPins
	img := image.NewGray(image.Rect(0, 0, side+2*marginPx, side))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)

	target := image.Rect(marginPx, 0, marginPx+side, side)
	xdraw.NearestNeighbor.Scale(img, target, src, src.Bounds(), xdraw.Src, nil)

	return img, nil
}
