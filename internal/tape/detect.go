package tape

import (
	"strings"

	"github.com/nantokaworks/ptouch-label/internal/shared/logger"
	"go.uber.org/zap"
)

// widthPatterns は機種が報告するメディア名からの幅推定パターン。
// 例: "roll_current_6x0mm", "om_12mm_x_8m" のような文字列に部分一致させる。
var widthPatterns = map[string][]string{
	"W3_5": {"3.5", "3_5"},
	"W6":   {"6x", "6mm", "_6x"},
	"W9":   {"9x", "9mm", "_9x"},
	"W12":  {"12x", "12mm", "_12x"},
	"W18":  {"18x", "18mm", "_18x"},
	"W24":  {"24x", "24mm", "_24x"},
}

// modelDefaults maps model-name substrings to the tape such a printer
// usually ships with. Consulted only when no width pattern matched.
var modelDefaults = map[string]string{
	"pt-p750w": "W6",
}

// DetectFromHints infers a tape profile from free-text media descriptors
// reported by the device. Hints are scanned in order; for each hint the
// width patterns are tried in fixed profile-priority order, first match
// wins. Returns false when nothing matched; detection is advisory and a
// miss is not an error.
func DetectFromHints(hints []string) (Profile, bool) {
	for _, hint := range hints {
		h := strings.ToLower(strings.TrimSpace(hint))
		if h == "" {
			continue
		}
		for _, id := range priority {
			for _, pat := range widthPatterns[id] {
				if strings.Contains(h, pat) {
					logger.Debug("Tape width matched from media hint",
						zap.String("hint", hint),
						zap.String("pattern", pat),
						zap.String("tape", id))
					return profiles[id], true
				}
			}
		}
	}

	// 幅が取れない場合はモデル名から既定カセットを推定
	for _, hint := range hints {
		h := strings.ToLower(hint)
		for model, id := range modelDefaults {
			if strings.Contains(h, model) {
				logger.Debug("Tape width inferred from printer model",
					zap.String("model", model),
					zap.String("tape", id))
				return profiles[id], true
			}
		}
	}

	return Profile{}, false
}

// Resolve picks the tape profile for a job. An explicit ID always wins and
// must be valid. Otherwise the detection hints are consulted, and when they
// are inconclusive the default profile is used with a warning.
func Resolve(explicitID string, hints []string) (Profile, error) {
	if explicitID != "" {
		return ProfileByID(explicitID)
	}

	if p, ok := DetectFromHints(hints); ok {
		return p, nil
	}

	if len(hints) > 0 {
		logger.Warn("Tape auto-detection inconclusive, using default",
			zap.Int("hints", len(hints)),
			zap.String("default", DefaultID))
	}
	return Default(), nil
}
