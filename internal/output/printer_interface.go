package output

import (
	"context"
	"image"

	"github.com/nantokaworks/ptouch-label/internal/tape"
)

// PrinterType はプリンターの種類を表す
type PrinterType string

const (
	PrinterTypeIPP    PrinterType = "ipp"
	PrinterTypeDryRun PrinterType = "dryrun"
)

// PrintData is the fully rendered form of one label.
type PrintData struct {
	Raster  []byte
	Image   image.Image
	Profile tape.Profile
	JobName string
	Copies  int
}

// PrintResult reports what a backend did with the data.
type PrintResult struct {
	// JobID is the printer-assigned job, 0 when the backend has none.
	JobID int

	// ArtifactPath is the raster file written by file-based backends.
	ArtifactPath string
}

// PrinterBackend はプリンター実装の共通インターフェース
type PrinterBackend interface {
	// Connect はプリンターに接続する
	Connect(ctx context.Context) error

	// Print はレンダリング済みラベルを出力する
	Print(ctx context.Context, data *PrintData) (*PrintResult, error)

	// Disconnect はプリンター接続を切断する
	Disconnect() error

	// Type はプリンター種類を返す
	Type() PrinterType

	// IsConnected は接続状態を返す
	IsConnected() bool

	// MediaHints は装着中メディアの推定材料を返す（不明ならnil）
	MediaHints() []string
}

// PrinterConfig はプリンター設定
type PrinterConfig struct {
	Type PrinterType

	// IPP固有
	Address string
	Port    int

	// ドライラン固有
	OutputDir string
}
