package raster

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nantokaworks/ptouch-label/internal/bitmap"
	"github.com/nantokaworks/ptouch-label/internal/tape"
)

func mustProfile(t *testing.T, id string) tape.Profile {
	t.Helper()
	p, err := tape.ProfileByID(id)
	if err != nil {
		t.Fatalf("ProfileByID(%q) unexpected error: %v", id, err)
	}
	return p
}

// Single mark on the narrowest tape, auto-cut, high resolution, 1mm feed.
// Every byte of this stream is part of the device contract.
func TestEncodeSingleDotStream(t *testing.T) {
	m := bitmap.New(1, 1)
	m.Set(0, 0, true)

	got, err := Encode(m, mustProfile(t, "W3_5"), Options{
		HighResolution: true,
		FeedMarginMM:   1,
		AutoCut:        true,
	})
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}

	if len(got) != 459 {
		t.Fatalf("Encode() stream length = %d, want 459", len(got))
	}

	// Clear buffer: 400 zero bytes.
	for i := 0; i < 400; i++ {
		if got[i] != 0x00 {
			t.Fatalf("clear buffer byte %d = 0x%02X, want 0x00", i, got[i])
		}
	}

	fixed := []struct {
		name  string
		off   int
		bytes []byte
	}{
		{name: "initialize", off: 400, bytes: []byte{0x1B, 0x40}},
		{name: "raster mode", off: 402, bytes: []byte{0x1B, 0x69, 0x61, 0x01}},
		{name: "print information", off: 406, bytes: []byte{0x1B, 0x69, 0x7A, 0x84, 0x00, 0x04, 0x00, 0xAA, 0x02, 0x00, 0x00, 0x00, 0x00}},
		{name: "auto cut", off: 419, bytes: []byte{0x1B, 0x69, 0x4D, 0x40}},
		{name: "cut every label", off: 423, bytes: []byte{0x1B, 0x69, 0x41, 0x01}},
		{name: "advanced mode hi-res", off: 427, bytes: []byte{0x1B, 0x69, 0x4B, 0x4C}},
		{name: "margin 14 dots LE", off: 431, bytes: []byte{0x1B, 0x69, 0x64, 0x0E, 0x00}},
		{name: "compression", off: 436, bytes: []byte{0x4D, 0x02}},
		{name: "graphics header", off: 438, bytes: []byte{0x47, 0x11, 0x00, 0x0F}},
		{name: "print and feed", off: 458, bytes: []byte{0x1A}},
	}
	for _, f := range fixed {
		if !bytes.Equal(got[f.off:f.off+len(f.bytes)], f.bytes) {
			t.Fatalf("%s frame at %d = % X, want % X", f.name, f.off, got[f.off:f.off+len(f.bytes)], f.bytes)
		}
	}

	// W3_5 covers 24 of 128 pins, so row 0 lands on pin (128-24)/2 = 52:
	// payload byte 52/8 = 6, bit 7-52%8 = 3.
	for i := 442; i < 458; i++ {
		want := byte(0x00)
		if i == 448 {
			want = 0x08
		}
		if got[i] != want {
			t.Fatalf("graphics payload byte %d = 0x%02X, want 0x%02X", i, got[i], want)
		}
	}
}

func TestEncodeCutModeConditional(t *testing.T) {
	m := bitmap.New(1, 1)
	m.Set(0, 0, true)
	p := mustProfile(t, "W3_5")

	withCut, err := Encode(m, p, Options{HighResolution: true, FeedMarginMM: 1, AutoCut: true})
	if err != nil {
		t.Fatalf("Encode(auto-cut) unexpected error: %v", err)
	}
	withoutCut, err := Encode(m, p, Options{HighResolution: true, FeedMarginMM: 1, AutoCut: false})
	if err != nil {
		t.Fatalf("Encode(no auto-cut) unexpected error: %v", err)
	}

	if len(withCut)-len(withoutCut) != 4 {
		t.Fatalf("auto-cut stream is %d bytes longer, want 4", len(withCut)-len(withoutCut))
	}
	if !bytes.Contains(withCut, []byte{0x1B, 0x69, 0x4D, 0x40}) {
		t.Fatalf("auto-cut stream is missing the cut-mode frame")
	}
	if bytes.Contains(withoutCut, []byte{0x1B, 0x69, 0x4D, 0x40}) {
		t.Fatalf("no-auto-cut stream contains the cut-mode frame")
	}

	// Cut-interval stays regardless of the cut mode.
	if !bytes.Contains(withoutCut, []byte{0x1B, 0x69, 0x41, 0x01}) {
		t.Fatalf("no-auto-cut stream is missing the cut-interval frame")
	}
}

func TestEncodeStreamLength(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		autoCut bool
		expect  int
	}{
		{name: "one column with cut", width: 1, autoCut: true, expect: 438 + 20 + 1},
		{name: "one column without cut", width: 1, autoCut: false, expect: 434 + 20 + 1},
		{name: "hundred columns with cut", width: 100, autoCut: true, expect: 438 + 20*100 + 1},
		{name: "hundred columns without cut", width: 100, autoCut: false, expect: 434 + 20*100 + 1},
	}

	p := mustProfile(t, "W6")
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := bitmap.New(tc.width, p.HeadPins)
			got, err := Encode(m, p, Options{HighResolution: true, FeedMarginMM: 1, AutoCut: tc.autoCut})
			if err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}
			if len(got) != tc.expect {
				t.Fatalf("Encode() stream length = %d, want %d", len(got), tc.expect)
			}
		})
	}
}

// Bottom row of every cassette width must land on the highest pin of its
// centered band.
func TestEncodeHeadCentering(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		pins      int
		widthByte byte
		// expected location of the bottom-row mark within the
		// 20-byte graphics frame
		payloadIdx int
		payloadVal byte
	}{
		{name: "W3_5", id: "W3_5", pins: 24, widthByte: 0x04, payloadIdx: 13, payloadVal: 0x10},
		{name: "W6", id: "W6", pins: 32, widthByte: 0x06, payloadIdx: 13, payloadVal: 0x01},
		{name: "W9", id: "W9", pins: 50, widthByte: 0x09, payloadIdx: 15, payloadVal: 0x80},
		{name: "W12", id: "W12", pins: 70, widthByte: 0x0C, payloadIdx: 16, payloadVal: 0x20},
		{name: "W18", id: "W18", pins: 112, widthByte: 0x12, payloadIdx: 18, payloadVal: 0x01},
		{name: "W24", id: "W24", pins: 128, widthByte: 0x18, payloadIdx: 19, payloadVal: 0x01},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p := mustProfile(t, tc.id)
			m := bitmap.New(1, p.HeadPins)
			m.Set(0, p.HeadPins-1, true)

			got, err := Encode(m, p, Options{HighResolution: true, FeedMarginMM: 1, AutoCut: true})
			if err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}

			if got[411] != tc.widthByte {
				t.Fatalf("media width byte = 0x%02X, want 0x%02X", got[411], tc.widthByte)
			}

			frame := got[438 : 438+20]
			for i := 4; i < 20; i++ {
				want := byte(0x00)
				if i == tc.payloadIdx {
					want = tc.payloadVal
				}
				if frame[i] != want {
					t.Fatalf("graphics byte %d = 0x%02X, want 0x%02X", i, frame[i], want)
				}
			}
		})
	}
}

// A mark on the top row shifts by the centering offset, never pin 0,
// unless the tape covers the whole head.
func TestEncodeTopRowOffset(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		payloadIdx int
		payloadVal byte
	}{
		// W12: offset (128-70)/2 = 29 -> byte 4+3, bit 7-29%8 = 2
		{name: "W12 shifts to pin 29", id: "W12", payloadIdx: 7, payloadVal: 0x04},
		// W24 covers the full head: pin 0 -> byte 4, bit 7
		{name: "W24 stays on pin 0", id: "W24", payloadIdx: 4, payloadVal: 0x80},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p := mustProfile(t, tc.id)
			m := bitmap.New(1, p.HeadPins)
			m.Set(0, 0, true)

			got, err := Encode(m, p, Options{HighResolution: true, FeedMarginMM: 1, AutoCut: true})
			if err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}
			frame := got[438 : 438+20]
			if frame[tc.payloadIdx] != tc.payloadVal {
				t.Fatalf("graphics byte %d = 0x%02X, want 0x%02X", tc.payloadIdx, frame[tc.payloadIdx], tc.payloadVal)
			}
		})
	}
}

func TestEncodeOverflowRejected(t *testing.T) {
	p := mustProfile(t, "W12")

	// Full-head-height matrix on a 70-pin tape: bottom rows centered
	// past pin 127 must abort the whole encode.
	m := bitmap.New(2, tape.TotalHeadPins)
	m.Set(1, tape.TotalHeadPins-1, true)

	got, err := Encode(m, p, Options{HighResolution: true, FeedMarginMM: 1, AutoCut: true})
	if err == nil {
		t.Fatalf("Encode() expected overflow error, got %d bytes", len(got))
	}
	if !errors.Is(err, ErrMatrixOverflow) {
		t.Fatalf("Encode() error = %v, want ErrMatrixOverflow", err)
	}
	if got != nil {
		t.Fatalf("Encode() returned %d bytes alongside error, want none", len(got))
	}
}

func TestEncodeOverflowBlankRowsAllowed(t *testing.T) {
	p := mustProfile(t, "W12")

	// Same oversized matrix, but the rows past the head carry no marks:
	// only set bits count as overflow.
	m := bitmap.New(2, tape.TotalHeadPins)
	m.Set(0, 0, true)

	got, err := Encode(m, p, Options{HighResolution: true, FeedMarginMM: 1, AutoCut: true})
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}
	if len(got) != 438+2*20+1 {
		t.Fatalf("Encode() stream length = %d, want %d", len(got), 438+2*20+1)
	}
}

func TestEncodeTallerThanHead(t *testing.T) {
	p := mustProfile(t, "W24")
	m := bitmap.New(1, tape.TotalHeadPins+1)

	_, err := Encode(m, p, Options{HighResolution: true, FeedMarginMM: 1, AutoCut: true})
	if !errors.Is(err, ErrMatrixOverflow) {
		t.Fatalf("Encode() error = %v, want ErrMatrixOverflow", err)
	}
}

func TestEncodeDeterminism(t *testing.T) {
	p := mustProfile(t, "W9")
	m := bitmap.New(40, p.HeadPins)
	for x := 0; x < m.Width; x += 3 {
		for y := 0; y < m.Height; y += 5 {
			m.Set(x, y, true)
		}
	}
	opts := Options{HighResolution: false, FeedMarginMM: 2, AutoCut: true}

	first, err := Encode(m, p, opts)
	if err != nil {
		t.Fatalf("Encode() first run unexpected error: %v", err)
	}
	second, err := Encode(m, p, opts)
	if err != nil {
		t.Fatalf("Encode() second run unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("Encode() is not deterministic: %d vs %d bytes differ", len(first), len(second))
	}
}

func TestEncodeMarginScaling(t *testing.T) {
	tests := []struct {
		name   string
		hiRes  bool
		mm     float64
		lo, hi byte
	}{
		{name: "1mm hi-res is 14 dots", hiRes: true, mm: 1, lo: 0x0E, hi: 0x00},
		{name: "1mm standard is 7 dots", hiRes: false, mm: 1, lo: 0x07, hi: 0x00},
		{name: "2.5mm hi-res is 35 dots", hiRes: true, mm: 2.5, lo: 0x23, hi: 0x00},
		{name: "2.5mm standard rounds to 18 dots", hiRes: false, mm: 2.5, lo: 0x12, hi: 0x00},
		{name: "zero margin", hiRes: true, mm: 0, lo: 0x00, hi: 0x00},
		{name: "wide margin crosses a byte", hiRes: true, mm: 20, lo: 0x18, hi: 0x01},
	}

	p := mustProfile(t, "W6")
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := bitmap.New(1, p.HeadPins)
			got, err := Encode(m, p, Options{HighResolution: tc.hiRes, FeedMarginMM: tc.mm, AutoCut: true})
			if err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}
			// Margin frame sits at 431 with auto-cut enabled; dots are
			// the two little-endian bytes after the 3-byte header.
			if got[434] != tc.lo || got[435] != tc.hi {
				t.Fatalf("margin dots = %02X %02X, want %02X %02X", got[434], got[435], tc.lo, tc.hi)
			}
		})
	}
}

func TestEncodeMarginValidation(t *testing.T) {
	p := mustProfile(t, "W6")
	m := bitmap.New(1, p.HeadPins)

	if _, err := Encode(m, p, Options{HighResolution: true, FeedMarginMM: -1, AutoCut: true}); err == nil {
		t.Fatalf("Encode() accepted a negative feed margin")
	}
	if _, err := Encode(m, p, Options{HighResolution: true, FeedMarginMM: 1e6, AutoCut: true}); err == nil {
		t.Fatalf("Encode() accepted a feed margin beyond the dot range")
	}
}

func TestEncodeAdvancedModeBits(t *testing.T) {
	tests := []struct {
		name    string
		hiRes   bool
		autoCut bool
		expect  byte
	}{
		{name: "hi-res with cut", hiRes: true, autoCut: true, expect: 0x4C},
		{name: "hi-res without cut", hiRes: true, autoCut: false, expect: 0x4C},
		{name: "standard with cut", hiRes: false, autoCut: true, expect: 0x0C},
		{name: "standard without cut", hiRes: false, autoCut: false, expect: 0x0C},
	}

	p := mustProfile(t, "W6")
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := bitmap.New(1, p.HeadPins)
			got, err := Encode(m, p, Options{HighResolution: tc.hiRes, FeedMarginMM: 1, AutoCut: tc.autoCut})
			if err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}
			idx := bytes.Index(got, []byte{0x1B, 0x69, 0x4B})
			if idx < 0 {
				t.Fatalf("advanced mode frame not found")
			}
			if got[idx+3] != tc.expect {
				t.Fatalf("advanced mode settings = 0x%02X, want 0x%02X", got[idx+3], tc.expect)
			}
		})
	}
}

func TestEncodeInvalidInput(t *testing.T) {
	p := mustProfile(t, "W6")

	if _, err := Encode(nil, p, Options{}); err == nil {
		t.Fatalf("Encode(nil matrix) expected error")
	}
	if _, err := Encode(bitmap.New(0, 32), p, Options{}); err == nil {
		t.Fatalf("Encode(zero width) expected error")
	}
	if _, err := Encode(bitmap.New(1, 32), tape.Profile{}, Options{}); err == nil {
		t.Fatalf("Encode(zero profile) expected error")
	}
}
