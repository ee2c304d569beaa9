// Package discovery finds label printers on the local network via mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/nantokaworks/ptouch-label/internal/shared/logger"
	"go.uber.org/zap"
)

const (
	serviceType   = "_ipp._tcp"
	serviceDomain = "local."

	// IPPのポートを広告しないデバイス向けのフォールバック
	defaultPort = 631
)

// Printer is one discovered device.
type Printer struct {
	Name string
	Addr string
	Port int
}

// Listen は指定時間だけmDNSをブラウズし、見つかったBrotherプリンターを返す。
// 何も見つからなくてもエラーにはしない。
func Listen(ctx context.Context, timeout time.Duration) ([]Printer, error) {
	resolver, err := zeroconf.NewResolver(zeroconf.SelectIPTraffic(zeroconf.IPv4))
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}
	return listenWith(ctx, timeout, func(ctx context.Context, entries chan *zeroconf.ServiceEntry) error {
		return resolver.Browse(ctx, serviceType, serviceDomain, entries)
	})
}

// listenWith runs one browse session against the collector. The browse
// implementation owns the entries channel: zeroconf's resolver loop is
// already running when Browse returns and closes the channel once its
// context ends, including the path where Browse itself returns an
// error. Closing it here as well would be a second close.
func listenWith(ctx context.Context, timeout time.Duration, browse func(context.Context, chan *zeroconf.ServiceEntry) error) ([]Printer, error) {
	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []Printer, 1)
	go func() {
		done <- collect(entries)
	}()

	logger.Debug("listening for printers",
		zap.String("service", serviceType),
		zap.Duration("timeout", timeout))

	if err := browse(browseCtx, entries); err != nil {
		<-done
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	// The resolver closes the entries channel once the context expires.
	<-browseCtx.Done()
	return <-done, nil
}

// collect drains the entries channel, keeping matching devices and
// dropping duplicate addr:port advertisements.
func collect(entries <-chan *zeroconf.ServiceEntry) []Printer {
	var printers []Printer
	seen := map[string]bool{}
	for entry := range entries {
		p, ok := matchEntry(entry)
		if !ok {
			continue
		}
		key := net.JoinHostPort(p.Addr, strconv.Itoa(p.Port))
		if seen[key] {
			continue
		}
		seen[key] = true
		logger.Info("discovered printer",
			zap.String("name", p.Name),
			zap.String("addr", key))
		printers = append(printers, p)
	}
	return printers
}

// matchEntry reports whether an advertisement looks like a Brother
// device with a usable IPv4 address.
func matchEntry(entry *zeroconf.ServiceEntry) (Printer, bool) {
	if entry == nil || len(entry.AddrIPv4) == 0 {
		return Printer{}, false
	}
	if !strings.Contains(strings.ToLower(entry.Instance), "brother") {
		return Printer{}, false
	}
	port := entry.Port
	if port <= 0 {
		port = defaultPort
	}
	return Printer{
		Name: entry.Instance,
		Addr: entry.AddrIPv4[0].String(),
		Port: port,
	}, true
}
