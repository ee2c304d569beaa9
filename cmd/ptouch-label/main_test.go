package main

import (
	"testing"

	"github.com/nantokaworks/ptouch-label/internal/env"
)

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := parseOptions([]string{"hello", "world"})
	if err != nil {
		t.Fatalf("parseOptions() error = %v", err)
	}

	if opts.fontSize != 40 {
		t.Errorf("fontSize = %d, want 40", opts.fontSize)
	}
	if opts.copies != 1 {
		t.Errorf("copies = %d, want 1", opts.copies)
	}
	if opts.marginPx != 10 {
		t.Errorf("marginPx = %d, want 10", opts.marginPx)
	}
	if !opts.autoCut {
		t.Error("autoCut = false, want true by default")
	}
	if !opts.hiRes {
		t.Error("hiRes = false, want true by default")
	}
	if opts.feedMM != 1.0 {
		t.Errorf("feedMM = %g, want 1.0", opts.feedMM)
	}
	if opts.text != "hello world" {
		t.Errorf("text = %q, want positional args joined", opts.text)
	}
}

func TestParseOptionsFlags(t *testing.T) {
	opts, err := parseOptions([]string{
		"-t", "W12", "-c", "3", "-f", "60", "--white-tape", "--qr",
		"--auto-cut=false", "--dry-run", "cable A-42",
	})
	if err != nil {
		t.Fatalf("parseOptions() error = %v", err)
	}

	if opts.tapeID != "W12" {
		t.Errorf("tapeID = %q, want W12", opts.tapeID)
	}
	if opts.copies != 3 {
		t.Errorf("copies = %d, want 3", opts.copies)
	}
	if opts.fontSize != 60 {
		t.Errorf("fontSize = %d, want 60", opts.fontSize)
	}
	if !opts.whiteTape || !opts.qr || !opts.dryRun {
		t.Error("boolean flags not set")
	}
	if opts.autoCut {
		t.Error("autoCut = true, want false")
	}
	if opts.text != "cable A-42" {
		t.Errorf("text = %q, want cable A-42", opts.text)
	}
}

func TestParseOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "copies too low", args: []string{"-c", "0", "x"}},
		{name: "copies too high", args: []string{"-c", "11", "x"}},
		{name: "font too small", args: []string{"-f", "0", "x"}},
		{name: "font too large", args: []string{"-f", "201", "x"}},
		{name: "margin negative", args: []string{"-m", "-1", "x"}},
		{name: "margin too large", args: []string{"-m", "101", "x"}},
		{name: "unknown tape", args: []string{"-t", "W42", "x"}},
		{name: "feed margin too large", args: []string{"--feed-mm", "200", "x"}},
		{name: "listen timeout zero", args: []string{"--listen-timeout", "0", "x"}},
		{name: "history negative", args: []string{"--history", "-1"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseOptions(tc.args); err == nil {
				t.Fatalf("parseOptions(%v) error = nil, want validation error", tc.args)
			}
		})
	}
}

func TestParseOptionsTapeAuto(t *testing.T) {
	opts, err := parseOptions([]string{"-t", "auto", "x"})
	if err != nil {
		t.Fatalf("parseOptions() error = %v", err)
	}
	if opts.tapeID != "auto" {
		t.Errorf("tapeID = %q, want auto", opts.tapeID)
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{name: "bare host", in: "192.168.1.20", wantHost: "192.168.1.20", wantPort: 0},
		{name: "host and port", in: "192.168.1.20:9100", wantHost: "192.168.1.20", wantPort: 9100},
		{name: "hostname", in: "printer.local:631", wantHost: "printer.local", wantPort: 631},
		{name: "bare ipv6", in: "::1", wantHost: "::1", wantPort: 0},
		{name: "bracketed ipv6", in: "[::1]:631", wantHost: "::1", wantPort: 631},
		{name: "bad port", in: "host:abc", wantErr: true},
		{name: "port zero", in: "host:0", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			host, port, err := parseAddress(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("parseAddress(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if host != tc.wantHost || port != tc.wantPort {
				t.Errorf("parseAddress(%q) = (%q, %d), want (%q, %d)",
					tc.in, host, port, tc.wantHost, tc.wantPort)
			}
		})
	}
}

func TestExplicitTape(t *testing.T) {
	orig := env.Value
	t.Cleanup(func() { env.Value = orig })

	tests := []struct {
		name    string
		flag    string
		envTape string
		want    string
	}{
		{name: "flag wins", flag: "W9", envTape: "W12", want: "W9"},
		{name: "auto forces detection", flag: "auto", envTape: "W12", want: ""},
		{name: "env fallback", flag: "", envTape: "W12", want: "W12"},
		{name: "invalid env ignored", flag: "", envTape: "W42", want: ""},
		{name: "nothing set", flag: "", envTape: "", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			env.Value.DefaultTape = tc.envTape
			if got := explicitTape(tc.flag); got != tc.want {
				t.Errorf("explicitTape(%q) = %q, want %q", tc.flag, got, tc.want)
			}
		})
	}
}

func TestParseOptionsNoArgs(t *testing.T) {
	opts, err := parseOptions(nil)
	if err != nil {
		t.Fatalf("parseOptions(nil) error = %v", err)
	}
	if opts.text != "" {
		t.Errorf("text = %q, want empty for no args", opts.text)
	}
	if opts.showVersion {
		t.Error("showVersion = true without the flag")
	}
}
