package tape

import (
	"errors"
	"fmt"
)

// TotalHeadPins is the full print-head width of the supported printers.
// Narrower tapes cover a centered subset of these pins.
const TotalHeadPins = 128

// DefaultID is the profile used when nothing was selected and
// auto-detection came up empty.
const DefaultID = "W6"

// ErrUnknownTape is returned for tape IDs outside the supported set.
var ErrUnknownTape = errors.New("unknown tape")

// Profile は1種類のテープカセットの物理・プロトコル固定値
type Profile struct {
	ID        string
	WidthMM   float64
	WidthCode byte // media width byte sent in the print-information frame
	HeadPins  int  // print-head positions physically covered by this tape
}

// profiles は対応カセットの固定テーブル（TZeシリーズ、機種マニュアル準拠）
var profiles = map[string]Profile{
	"W3_5": {ID: "W3_5", WidthMM: 3.5, WidthCode: 0x04, HeadPins: 24},
	"W6":   {ID: "W6", WidthMM: 6, WidthCode: 0x06, HeadPins: 32},
	"W9":   {ID: "W9", WidthMM: 9, WidthCode: 0x09, HeadPins: 50},
	"W12":  {ID: "W12", WidthMM: 12, WidthCode: 0x0C, HeadPins: 70},
	"W18":  {ID: "W18", WidthMM: 18, WidthCode: 0x12, HeadPins: 112},
	"W24":  {ID: "W24", WidthMM: 24, WidthCode: 0x18, HeadPins: 128},
}

// priority is the fixed order used for enumeration and detection matching.
var priority = []string{"W3_5", "W6", "W9", "W12", "W18", "W24"}

// ProfileByID はテープIDからプロファイルを引く
func ProfileByID(id string) (Profile, error) {
	p, ok := profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownTape, id)
	}
	return p, nil
}

// IDs returns the supported tape IDs in fixed priority order.
func IDs() []string {
	ids := make([]string, len(priority))
	copy(ids, priority)
	return ids
}

// Default returns the fallback profile.
func Default() Profile {
	return profiles[DefaultID]
}
