package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/nantokaworks/ptouch-label/internal/bitmap"
	"github.com/nantokaworks/ptouch-label/internal/tape"
)

// ErrMatrixOverflow is returned when a mark would land on a pin outside
// the print head. The encoder never truncates or wraps.
var ErrMatrixOverflow = errors.New("matrix overflows print head")

// Options select per-job encoding behavior.
type Options struct {
	// HighResolution selects the 360dpi along-tape dot pitch (180dpi otherwise).
	HighResolution bool

	// FeedMarginMM is the blank tape fed before and after the image.
	FeedMarginMM float64

	// AutoCut makes the cutter run after the label.
	AutoCut bool
}

// Along-tape dot pitch per resolution.
const (
	feedDotsPerMM      = 7  // 180dpi
	feedDotsPerMMHiRes = 14 // 360dpi
)

const (
	clearBufferLen   = 400
	graphicsFrameLen = 20
)

// clearCommandBuffer flushes any stale partial job out of the engine's
// command buffer before a new job starts.
func clearCommandBuffer() []byte {
	return make([]byte, clearBufferLen)
}

// initialize (ESC @) resets the engine to its power-on defaults.
func initialize() []byte {
	return []byte{0x1B, 0x40}
}

// selectRasterMode (ESC i a 01) switches the engine out of the ESC/P text
// command set into raster graphics mode.
func selectRasterMode() []byte {
	return []byte{0x1B, 0x69, 0x61, 0x01}
}

// printInformation (ESC i z) declares the loaded media. Flags 0x84 mark
// the kind and width fields as valid; kind 0x00 is continuous roll. The
// trailing bytes are reserved constants the firmware checks verbatim.
func printInformation(widthCode byte) []byte {
	return []byte{
		0x1B, 0x69, 0x7A,
		0x84,      // PI_KIND | PI_WIDTH
		0x00,      // media kind: continuous
		widthCode, // cassette width
		0x00,
		0xAA, 0x02, 0x00, 0x00, 0x00, 0x00,
	}
}

// setAutoCut (ESC i M 40) enables the cutter for this job.
func setAutoCut() []byte {
	return []byte{0x1B, 0x69, 0x4D, 0x40}
}

// setCutEvery (ESC i A 01) declares a cut after every label. Required
// unconditionally; without it the engine misfeeds between labels.
func setCutEvery() []byte {
	return []byte{0x1B, 0x69, 0x41, 0x01}
}

// setAdvancedMode (ESC i K) packs the per-job mode bits onto the
// required 0x0C base.
func setAdvancedMode(o Options) []byte {
	settings := byte(0x0C)
	if o.HighResolution {
		settings |= 0x40
	}
	if !o.AutoCut {
		settings |= 0x08 // no chain printing
	}
	return []byte{0x1B, 0x69, 0x4B, settings}
}

// setFeedMargin (ESC i d) declares the blank feed in dots, little-endian.
func setFeedMargin(dots uint16) []byte {
	frame := []byte{0x1B, 0x69, 0x64, 0x00, 0x00}
	binary.LittleEndian.PutUint16(frame[3:], dots)
	return frame
}

// setCompression (M 02) selects the single supported raster transfer
// mode. A required directive even though columns are sent unpacked.
func setCompression() []byte {
	return []byte{0x4D, 0x02}
}

// printAndFeed (SUB) prints the buffered image and runs the feed/cut
// sequence.
func printAndFeed() []byte {
	return []byte{0x1A}
}

// graphicsColumn packs matrix column x into one raster transfer frame:
// a 4-byte header and 16 payload bytes covering the 128 head pins,
// MSB-first. leftBlank shifts marks down so narrower tapes print
// centered on the head.
func graphicsColumn(m *bitmap.Matrix, x, leftBlank int) []byte {
	frame := make([]byte, graphicsFrameLen)
	frame[0] = 0x47
	frame[1] = 0x11
	frame[3] = 0x0F
	for y := 0; y < m.Height; y++ {
		if !m.At(x, y) {
			continue
		}
		pin := y + leftBlank
		frame[4+pin/8] |= 1 << (7 - pin%8)
	}
	return frame
}

// marginDots maps the feed margin to device dots for the selected
// resolution. Rounded, never truncated.
func marginDots(o Options) (uint16, error) {
	perMM := float64(feedDotsPerMM)
	if o.HighResolution {
		perMM = feedDotsPerMMHiRes
	}
	dots := math.Round(o.FeedMarginMM * perMM)
	if dots < 0 {
		return 0, fmt.Errorf("feed margin %gmm maps to a negative dot count", o.FeedMarginMM)
	}
	if dots > math.MaxUint16 {
		return 0, fmt.Errorf("feed margin %gmm exceeds the device dot range", o.FeedMarginMM)
	}
	return uint16(dots), nil
}

// checkOverflow rejects any mark that would land outside the head. Runs
// before a single byte is emitted so a failed encode produces nothing.
func checkOverflow(m *bitmap.Matrix, leftBlank int) error {
	for y := m.Height - 1; y >= 0; y-- {
		pin := y + leftBlank
		if pin < tape.TotalHeadPins {
			// Rows below this one sit on lower pins and cannot overflow.
			break
		}
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				return fmt.Errorf("%w: row %d maps to pin %d (head has %d)",
					ErrMatrixOverflow, y, pin, tape.TotalHeadPins)
			}
		}
	}
	return nil
}

// Encode converts a mark matrix plus tape profile plus options into the
// complete command stream for one label. The stream is built whole; on
// any validation failure nothing is emitted.
func Encode(m *bitmap.Matrix, p tape.Profile, o Options) ([]byte, error) {
	if m == nil || m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	if p.HeadPins <= 0 || p.HeadPins > tape.TotalHeadPins {
		return nil, fmt.Errorf("invalid tape profile %q: %d head pins", p.ID, p.HeadPins)
	}
	if m.Height > tape.TotalHeadPins {
		return nil, fmt.Errorf("%w: matrix height %d exceeds head pins %d",
			ErrMatrixOverflow, m.Height, tape.TotalHeadPins)
	}

	// 狭いテープはヘッド中央に寄せる
	leftBlank := (tape.TotalHeadPins - p.HeadPins) / 2
	if err := checkOverflow(m, leftBlank); err != nil {
		return nil, err
	}

	dots, err := marginDots(o)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(clearBufferLen + 64 + graphicsFrameLen*m.Width)

	buf.Write(clearCommandBuffer())
	buf.Write(initialize())
	buf.Write(selectRasterMode())
	buf.Write(printInformation(p.WidthCode))
	if o.AutoCut {
		buf.Write(setAutoCut())
	}
	buf.Write(setCutEvery())
	buf.Write(setAdvancedMode(o))
	buf.Write(setFeedMargin(dots))
	buf.Write(setCompression())
	for x := 0; x < m.Width; x++ {
		buf.Write(graphicsColumn(m, x, leftBlank))
	}
	buf.Write(printAndFeed())

	return buf.Bytes(), nil
}
