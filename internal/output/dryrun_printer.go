package output

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/nantokaworks/ptouch-label/internal/shared/logger"
	"go.uber.org/zap"
)

// DryRunPrinter は実機に送らず、ラスターデータとプレビューPNGを
// ファイルに書き出す実装。
type DryRunPrinter struct {
	outputDir string
	connected bool
}

// NewDryRunPrinter は新しいドライランプリンターを作成する
func NewDryRunPrinter(config PrinterConfig) (*DryRunPrinter, error) {
	dir := config.OutputDir
	if dir == "" {
		dir = "."
	}
	return &DryRunPrinter{outputDir: dir}, nil
}

// Connect は出力先ディレクトリを用意する
func (p *DryRunPrinter) Connect(ctx context.Context) error {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	p.connected = true
	return nil
}

// Print はラスターを.binに、プレビューを.pngに保存する
func (p *DryRunPrinter) Print(ctx context.Context, data *PrintData) (*PrintResult, error) {
	if !p.connected {
		return nil, fmt.Errorf("output directory not prepared")
	}

	base := fmt.Sprintf("%s_%s_%s",
		time.Now().Format("20060102_150405"),
		data.Profile.ID,
		sanitizeFilename(data.JobName))

	binPath := filepath.Join(p.outputDir, base+".bin")
	if err := os.WriteFile(binPath, data.Raster, 0644); err != nil {
		return nil, fmt.Errorf("failed to write raster file: %w", err)
	}

	if data.Image != nil {
		pngPath := filepath.Join(p.outputDir, base+".png")
		f, err := os.Create(pngPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create preview file: %w", err)
		}
		defer f.Close()
		if err := png.Encode(f, data.Image); err != nil {
			return nil, fmt.Errorf("failed to encode preview: %w", err)
		}
	}

	logger.Info("Dry-run mode: label saved instead of printing",
		zap.String("raster", binPath),
		zap.Int("bytes", len(data.Raster)))

	return &PrintResult{ArtifactPath: binPath}, nil
}

// Disconnect は何もしない
func (p *DryRunPrinter) Disconnect() error {
	p.connected = false
	return nil
}

// Type はプリンター種類を返す
func (p *DryRunPrinter) Type() PrinterType {
	return PrinterTypeDryRun
}

// IsConnected は接続状態を返す
func (p *DryRunPrinter) IsConnected() bool {
	return p.connected
}

// MediaHints はドライランでは得られない
func (p *DryRunPrinter) MediaHints() []string {
	return nil
}
