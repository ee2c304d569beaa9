package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nantokaworks/ptouch-label/internal/discovery"
	"github.com/nantokaworks/ptouch-label/internal/env"
	"github.com/nantokaworks/ptouch-label/internal/localdb"
	"github.com/nantokaworks/ptouch-label/internal/output"
	"github.com/nantokaworks/ptouch-label/internal/shared/logger"
	"github.com/nantokaworks/ptouch-label/internal/tape"
	"github.com/nantokaworks/ptouch-label/internal/version"
	"go.uber.org/zap"
)

type options struct {
	fontSize      int
	tapeID        string
	marginPx      int
	copies        int
	printer       string
	autoCut       bool
	noAutoDetect  bool
	whiteTape     bool
	qr            bool
	listen        bool
	listenTimeout int
	hiRes         bool
	feedMM        float64
	dryRun        bool
	history       int
	showVersion   bool

	text string
}

func main() {
	logger.Init(false)

	err := run(os.Args[1:])
	logger.Sync()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Println(version.String())
		return nil
	}

	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	if opts.history > 0 {
		return printHistory(opts.history)
	}

	if opts.text == "" {
		return fmt.Errorf("no label text given (run with -h for usage)")
	}

	// 履歴DBは無くても印刷は続行する
	if _, err := localdb.SetupDB(env.Value.DBPath); err != nil {
		logger.Warn("Failed to setup history database", zap.Error(err))
	} else {
		defer localdb.CloseDB()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dryRun := opts.dryRun || env.Value.DryRunMode

	config := output.PrinterConfig{Type: output.PrinterTypeDryRun, OutputDir: env.Value.OutputDir}
	display := ""
	if !dryRun {
		host, port, err := resolvePrinter(ctx, opts)
		if err != nil {
			return err
		}
		displayPort := port
		if displayPort == 0 {
			displayPort = 631
		}
		display = net.JoinHostPort(host, strconv.Itoa(displayPort))
		config = output.PrinterConfig{Type: output.PrinterTypeIPP, Address: host, Port: port}
	}

	backend, err := output.NewBackend(config)
	if err != nil {
		return err
	}

	res, err := output.PrintLabel(ctx, backend, output.LabelJob{
		Text:           opts.text,
		QR:             opts.qr,
		TapeID:         explicitTape(opts.tapeID),
		AutoDetect:     !opts.noAutoDetect,
		Copies:         opts.copies,
		WhiteTape:      opts.whiteTape,
		HighResolution: opts.hiRes,
		FeedMarginMM:   opts.feedMM,
		AutoCut:        opts.autoCut,
		FontPath:       env.Value.FontPath,
		FontSize:       float64(opts.fontSize),
		MarginPx:       opts.marginPx,
		Printer:        display,
	})
	if err != nil {
		return err
	}

	if res.ArtifactPath != "" {
		fmt.Println(res.ArtifactPath)
	} else {
		fmt.Printf("sent to %s: tape=%s copies=%d bytes=%d job=%d\n",
			display, res.TapeID, opts.copies, res.RasterBytes, res.JobID)
	}
	return nil
}

func parseOptions(args []string) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("ptouch-label", flag.ContinueOnError)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintln(out, "Usage: ptouch-label [options] <text>")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Prints text or a QR code on a Brother P-touch label printer over the network.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Examples:")
		fmt.Fprintln(out, `  ptouch-label -p 192.168.1.20 "cable A-42"`)
		fmt.Fprintln(out, `  ptouch-label --listen --qr "https://example.com/asset/42"`)
		fmt.Fprintln(out, `  BROTHER_PRINTER_IP=192.168.1.20 ptouch-label -t W12 "shelf 3"`)
	}

	fs.IntVar(&opts.fontSize, "font", 40, "font size in pixels")
	fs.IntVar(&opts.fontSize, "f", 40, "font size in pixels (shorthand)")
	fs.StringVar(&opts.tapeID, "tape", "", "tape id (W3_5, W6, W9, W12, W18, W24) or auto")
	fs.StringVar(&opts.tapeID, "t", "", "tape id (shorthand)")
	fs.IntVar(&opts.marginPx, "margin", 10, "horizontal margin in pixels")
	fs.IntVar(&opts.marginPx, "m", 10, "horizontal margin in pixels (shorthand)")
	fs.IntVar(&opts.copies, "copies", 1, "number of copies")
	fs.IntVar(&opts.copies, "c", 1, "number of copies (shorthand)")
	fs.StringVar(&opts.printer, "printer", "", "printer address as host or host:port")
	fs.StringVar(&opts.printer, "p", "", "printer address (shorthand)")
	fs.BoolVar(&opts.autoCut, "auto-cut", true, "cut the tape after printing")
	fs.BoolVar(&opts.noAutoDetect, "no-auto-detect", false, "skip tape width detection")
	fs.BoolVar(&opts.whiteTape, "white-tape", false, "render for white tape (black text on white)")
	fs.BoolVar(&opts.qr, "qr", false, "print the text as a QR code")
	fs.BoolVar(&opts.listen, "listen", false, "discover printers via mDNS and use the first one")
	fs.IntVar(&opts.listenTimeout, "listen-timeout", 30, "mDNS discovery timeout in seconds")
	fs.BoolVar(&opts.hiRes, "hi-res", true, "print in high resolution mode")
	fs.Float64Var(&opts.feedMM, "feed-mm", 1.0, "feed margin in millimeters")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "write raster and preview files instead of printing")
	fs.IntVar(&opts.history, "history", 0, "show the last N printed labels and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.fontSize < 1 || opts.fontSize > 200 {
		return nil, fmt.Errorf("font size must be between 1 and 200 (got %d)", opts.fontSize)
	}
	if opts.marginPx < 0 || opts.marginPx > 100 {
		return nil, fmt.Errorf("margin must be between 0 and 100 (got %d)", opts.marginPx)
	}
	if opts.copies < 1 || opts.copies > 10 {
		return nil, fmt.Errorf("copies must be between 1 and 10 (got %d)", opts.copies)
	}
	if opts.listenTimeout < 1 || opts.listenTimeout > 300 {
		return nil, fmt.Errorf("listen timeout must be between 1 and 300 seconds (got %d)", opts.listenTimeout)
	}
	if opts.feedMM < 0 || opts.feedMM > 100 {
		return nil, fmt.Errorf("feed margin must be between 0 and 100 mm (got %g)", opts.feedMM)
	}
	if opts.history < 0 {
		return nil, fmt.Errorf("history must not be negative (got %d)", opts.history)
	}
	if opts.tapeID != "" && opts.tapeID != "auto" {
		if _, err := tape.ProfileByID(opts.tapeID); err != nil {
			return nil, fmt.Errorf("unknown tape %q (available: %s or auto)",
				opts.tapeID, strings.Join(tape.IDs(), ", "))
		}
	}

	opts.text = strings.TrimSpace(strings.Join(fs.Args(), " "))
	return opts, nil
}

// explicitTape maps the tape flag and PTOUCH_TAPE onto the explicit id
// passed to tape resolution. "auto" forces detection even when the
// environment pins a tape.
func explicitTape(flagValue string) string {
	if flagValue == "auto" {
		return ""
	}
	if flagValue != "" {
		return flagValue
	}
	if env.Value.DefaultTape != "" {
		if _, err := tape.ProfileByID(env.Value.DefaultTape); err != nil {
			logger.Warn("Ignoring invalid PTOUCH_TAPE",
				zap.String("value", env.Value.DefaultTape))
			return ""
		}
		return env.Value.DefaultTape
	}
	return ""
}

// resolvePrinter picks the target address: --printer first, then mDNS
// discovery, then BROTHER_PRINTER_IP.
func resolvePrinter(ctx context.Context, opts *options) (string, int, error) {
	if opts.printer != "" {
		return parseAddress(opts.printer)
	}

	if opts.listen {
		printers, err := discovery.Listen(ctx, time.Duration(opts.listenTimeout)*time.Second)
		if err != nil {
			return "", 0, err
		}
		if len(printers) == 0 {
			return "", 0, fmt.Errorf("no printers discovered after %ds", opts.listenTimeout)
		}
		first := printers[0]
		logger.Info("Using discovered printer",
			zap.String("name", first.Name),
			zap.String("addr", first.Addr),
			zap.Int("port", first.Port))
		return first.Addr, first.Port, nil
	}

	if env.Value.PrinterAddress != nil && *env.Value.PrinterAddress != "" {
		return parseAddress(*env.Value.PrinterAddress)
	}

	return "", 0, fmt.Errorf("printer address not configured (use --printer, --listen, or BROTHER_PRINTER_IP)")
}

// parseAddress splits host[:port]. A missing port comes back as 0 and
// the IPP client falls back to 631.
func parseAddress(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return s, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid printer port %q", portStr)
	}
	return host, port, nil
}

func printHistory(limit int) error {
	if _, err := localdb.SetupDB(env.Value.DBPath); err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer localdb.CloseDB()

	jobs, err := localdb.RecentPrintJobs(limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no printed labels yet")
		return nil
	}

	for _, job := range jobs {
		mark := ""
		if job.DryRun {
			mark = "  (dry-run)"
		}
		fmt.Printf("%s  %-4s  x%d  %s%s\n",
			time.Unix(job.CreatedAt, 0).Format("2006-01-02 15:04"),
			job.TapeID,
			job.Copies,
			job.Text,
			mark)
	}
	return nil
}
