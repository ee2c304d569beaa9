package output

import (
	"context"
	"fmt"

	"github.com/nantokaworks/ptouch-label/internal/ipp"
	"github.com/nantokaworks/ptouch-label/internal/shared/logger"
	"go.uber.org/zap"
)

// probedAttributes are the printer attributes fetched on connect. The
// media values feed tape detection, the rest is logged for diagnosis.
var probedAttributes = []string{
	"printer-make-and-model",
	"printer-state",
	"media-ready",
	"media-default",
}

// IPPPrinter はネットワークプリンター（IPP経由）の実装
type IPPPrinter struct {
	client     *ipp.Client
	config     PrinterConfig
	connected  bool
	mediaHints []string
}

// NewIPPPrinter は新しいIPPプリンターインスタンスを作成する
func NewIPPPrinter(config PrinterConfig) (*IPPPrinter, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("printer address is required")
	}

	client := ipp.NewClient(config.Address, config.Port)

	logger.Info("IPP printer initialized",
		zap.String("address", config.Address),
		zap.Int("port", client.Port))

	return &IPPPrinter{
		client: client,
		config: config,
	}, nil
}

// Connect はプリンターに接続する。属性を1回取得して到達性を確認し、
// メディア情報をテープ検出用に控えておく。
func (p *IPPPrinter) Connect(ctx context.Context) error {
	attrs, err := p.client.PrinterAttributes(ctx, probedAttributes)
	if err != nil {
		return fmt.Errorf("printer not reachable: %w", err)
	}

	hints := []string{}
	hints = append(hints, attrs["media-ready"]...)
	hints = append(hints, attrs["media-default"]...)
	hints = append(hints, attrs["printer-make-and-model"]...)
	p.mediaHints = hints
	p.connected = true

	logger.Info("Connected to printer",
		zap.Strings("model", attrs["printer-make-and-model"]),
		zap.Strings("state", attrs["printer-state"]),
		zap.Strings("media_ready", attrs["media-ready"]))

	return nil
}

// Print はレンダリング済みラベルを出力する
func (p *IPPPrinter) Print(ctx context.Context, data *PrintData) (*PrintResult, error) {
	if !p.connected {
		return nil, fmt.Errorf("printer not connected")
	}

	result, err := p.client.PrintJob(ctx, data.Raster, ipp.JobOptions{
		JobName: data.JobName,
		Copies:  data.Copies,
	})
	if err != nil {
		return nil, fmt.Errorf("print failed: %w", err)
	}

	logger.Info("Print job sent successfully",
		zap.String("address", p.config.Address),
		zap.Int("job_id", result.JobID),
		zap.Int("raster_bytes", len(data.Raster)))

	return &PrintResult{JobID: result.JobID}, nil
}

// Disconnect はプリンター接続を切断する（HTTPなので状態を落とすだけ）
func (p *IPPPrinter) Disconnect() error {
	p.connected = false
	return nil
}

// Type はプリンター種類を返す
func (p *IPPPrinter) Type() PrinterType {
	return PrinterTypeIPP
}

// IsConnected は接続状態を返す
func (p *IPPPrinter) IsConnected() bool {
	return p.connected
}

// MediaHints は接続時に取得したメディア情報を返す
func (p *IPPPrinter) MediaHints() []string {
	return p.mediaHints
}
