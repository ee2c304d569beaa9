package render

import (
	"os"
	"runtime"

	"github.com/nantokaworks/ptouch-label/internal/shared/logger"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// DefaultFontPath returns the OS-standard TrueType font used when no font
// is configured.
func DefaultFontPath() string {
	if runtime.GOOS == "darwin" {
		return "/System/Library/Fonts/Supplemental/Arial.ttf"
	}
	return "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
}

// LoadFace はTrueTypeフォントを読み込んでFaceを返す。
// 読み込めない場合は内蔵ビットマップフォントで続行する（サイズ指定は無視される）。
func LoadFace(path string, sizePx float64) font.Face {
	if path == "" {
		path = DefaultFontPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Font file not readable, falling back to built-in bitmap font",
			zap.String("path", path),
			zap.Error(err))
		return basicfont.Face7x13
	}

	ft, err := opentype.Parse(data)
	if err != nil {
		logger.Warn("Font file not parseable, falling back to built-in bitmap font",
			zap.String("path", path),
			zap.Error(err))
		return basicfont.Face7x13
	}

	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72, // 72dpiで1pt = 1px
		Hinting: font.HintingFull,
	})
	if err != nil {
		logger.Warn("Font face creation failed, falling back to built-in bitmap font",
			zap.String("path", path),
			zap.Error(err))
		return basicfont.Face7x13
	}

	logger.Debug("Font loaded", zap.String("path", path), zap.Float64("size_px", sizePx))
	return face
}
