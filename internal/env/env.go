package env

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/nantokaworks/ptouch-label/internal/shared/logger"
	"go.uber.org/zap"
)

// EnvValue は環境変数から読み込んだ設定値
type EnvValue struct {
	// BROTHER_PRINTER_IP: 明示指定も検出もない場合のデフォルト送信先
	PrinterAddress *string

	// PTOUCH_FONT: ラベル描画に使うTrueTypeフォントのパス（空ならOS標準）
	FontPath string

	// PTOUCH_TAPE: 常にこのテープを使う（空なら自動判定に任せる）
	DefaultTape string

	// PTOUCH_DB_PATH: 印刷履歴DBのパス
	DBPath string

	// OUTPUT_DIR: dry-run/デバッグ出力の保存先
	OutputDir string

	DebugMode   bool
	DryRunMode  bool
	DebugOutput bool
}

var Value EnvValue

// LoadEnv は.envと環境変数からValueを構築する
func LoadEnv() {
	// .envが無くてもエラーにしない
	_ = godotenv.Load()

	Value = EnvValue{
		FontPath:    os.Getenv("PTOUCH_FONT"),
		DefaultTape: os.Getenv("PTOUCH_TAPE"),
		DBPath:      getStringOrDefault("PTOUCH_DB_PATH", defaultDBPath()),
		OutputDir:   getStringOrDefault("OUTPUT_DIR", "."),
		DebugMode:   getBool("DEBUG_MODE"),
		DryRunMode:  getBool("DRY_RUN_MODE"),
		DebugOutput: getBool("DEBUG_OUTPUT"),
	}

	if addr := os.Getenv("BROTHER_PRINTER_IP"); addr != "" {
		Value.PrinterAddress = &addr
	}

	logger.Debug("Environment loaded",
		zap.String("printer_address", getStringValue(Value.PrinterAddress)),
		zap.String("default_tape", Value.DefaultTape),
		zap.String("font_path", Value.FontPath),
		zap.String("db_path", Value.DBPath),
		zap.Bool("dry_run", Value.DryRunMode),
		zap.Bool("debug_output", Value.DebugOutput))
}

func getStringOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return false
	}
	return v
}

// getStringValue はポインタから文字列を取得
func getStringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "history.db"
	}
	return filepath.Join(home, ".ptouch-label", "history.db")
}
