package output

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/nantokaworks/ptouch-label/internal/bitmap"
	"github.com/nantokaworks/ptouch-label/internal/env"
	"github.com/nantokaworks/ptouch-label/internal/localdb"
	"github.com/nantokaworks/ptouch-label/internal/raster"
	"github.com/nantokaworks/ptouch-label/internal/render"
	"github.com/nantokaworks/ptouch-label/internal/shared/logger"
	"github.com/nantokaworks/ptouch-label/internal/tape"
	"go.uber.org/zap"
)

// LabelJob は1枚のラベルを出力するための指示
type LabelJob struct {
	Text           string
	QR             bool
	TapeID         string // 空なら自動判定
	AutoDetect     bool
	Copies         int
	WhiteTape      bool
	HighResolution bool
	FeedMarginMM   float64
	AutoCut        bool
	FontPath       string
	FontSize       float64
	MarginPx       int

	// Printer is the display address recorded in the history.
	Printer string
}

// Result is what PrintLabel reports back to the caller.
type Result struct {
	JobID        int
	TapeID       string
	Columns      int
	RasterBytes  int
	ArtifactPath string
}

// NewBackend は設定からプリンターバックエンドを作成
func NewBackend(config PrinterConfig) (PrinterBackend, error) {
	logger.Info("Creating printer backend",
		zap.String("type", string(config.Type)),
		zap.String("address", config.Address))

	switch config.Type {
	case PrinterTypeIPP:
		return NewIPPPrinter(config)

	case PrinterTypeDryRun:
		return NewDryRunPrinter(config)

	default:
		return nil, fmt.Errorf("unknown printer type: %s", config.Type)
	}
}

// PrintLabel はテキストをラベル1枚に変換して出力する
func PrintLabel(ctx context.Context, backend PrinterBackend, job LabelJob) (*Result, error) {
	if strings.TrimSpace(job.Text) == "" {
		return nil, fmt.Errorf("label text is empty")
	}
	if job.Copies < 1 {
		job.Copies = 1
	}

	// 1. 接続（テープ検出のヒントもここで手に入る）
	if !backend.IsConnected() {
		if err := backend.Connect(ctx); err != nil {
			return nil, err
		}
	}
	defer backend.Disconnect()

	// 2. テープ決定
	var hints []string
	if job.AutoDetect {
		hints = backend.MediaHints()
	}
	profile, err := tape.Resolve(job.TapeID, hints)
	if err != nil {
		return nil, err
	}

	// 3. 描画
	var img *image.Gray
	if job.QR {
		img, err = render.QR(job.Text, profile, job.MarginPx, job.WhiteTape)
	} else {
		face := render.LoadFace(job.FontPath, job.FontSize)
		img, err = render.Text(face, job.Text, profile, job.MarginPx, job.WhiteTape)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render label: %w", err)
	}

	// 4. 2値化してラスター符号化
	m := bitmap.FromImage(img, bitmap.DefaultThreshold)
	data, err := raster.Encode(m, profile, raster.Options{
		HighResolution: job.HighResolution,
		FeedMarginMM:   job.FeedMarginMM,
		AutoCut:        job.AutoCut,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode raster: %w", err)
	}

	logger.Info("Label rendered",
		zap.String("tape", profile.ID),
		zap.Int("columns", m.Width),
		zap.Int("marks", m.Marks()),
		zap.Int("raster_bytes", len(data)))

	if env.Value.DebugOutput {
		if err := writeDebugArtifacts(img, data, profile); err != nil {
			logger.Warn("Failed to write debug artifacts", zap.Error(err))
		}
	}

	// 5. 送信
	result, err := backend.Print(ctx, &PrintData{
		Raster:  data,
		Image:   img,
		Profile: profile,
		JobName: jobName(job.Text),
		Copies:  job.Copies,
	})
	if err != nil {
		return nil, err
	}

	// 6. 履歴保存（失敗しても印刷自体は成功扱い）
	if _, err := localdb.SavePrintJob(localdb.PrintJobRow{
		Text:     job.Text,
		TapeID:   profile.ID,
		Copies:   job.Copies,
		Printer:  job.Printer,
		IPPJobID: result.JobID,
		Bytes:    len(data),
		DryRun:   backend.Type() == PrinterTypeDryRun,
	}); err != nil {
		logger.Warn("Failed to save print history", zap.Error(err))
	}

	return &Result{
		JobID:        result.JobID,
		TapeID:       profile.ID,
		Columns:      m.Width,
		RasterBytes:  len(data),
		ArtifactPath: result.ArtifactPath,
	}, nil
}

// jobName derives the IPP job name from the label text.
func jobName(text string) string {
	name := strings.TrimSpace(text)
	if name == "" {
		return "label"
	}
	runes := []rune(name)
	if len(runes) > 60 {
		name = string(runes[:60])
	}
	return name
}

// sanitizeFilename はファイル名に使えない文字を潰して短くする
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "label"
	}
	runes := []rune(s)
	if len(runes) > 40 {
		s = string(runes[:40])
	}
	return s
}

// writeDebugArtifacts は描画結果とラスターをOUTPUT_DIRへ書き出す
func writeDebugArtifacts(img image.Image, data []byte, profile tape.Profile) error {
	outputDir := env.Value.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	pngPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s_debug.png", stamp, profile.ID))
	f, err := os.Create(pngPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	binPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s_debug.bin", stamp, profile.ID))
	if err := os.WriteFile(binPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write raster file: %w", err)
	}

	logger.Info("Debug artifacts saved",
		zap.String("png", pngPath),
		zap.String("bin", binPath))
	return nil
}
