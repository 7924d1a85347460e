// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright © 2014-2020 Kevin Boone.

// pi-button-pipe captures GPIO button presses and makes them available
// to other programs via a named pipe.

//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"

	buttonpipe "github.com/kevinboone/pi-button-pipe"
)

var version = "2.0.0"

var rootCmd = &cobra.Command{
	Use:   "pi-button-pipe <pin1> <pin2>...",
	Short: "pi-button-pipe streams debounced GPIO button events to a named pipe",
	Long: `Monitor GPIO pins for button presses and write one line per debounced
event to a named pipe (or the console in debug mode). Each line carries
the pin number and, when triggering on both edges, the new state.`,
	Args:          cobra.MinimumNArgs(1),
	RunE:          run,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var opts = struct {
	Bounce       time.Duration
	Settle       time.Duration
	Pipe         string
	Debug        bool
	ExportOnly   bool
	UnexportOnly bool
	NoExport     bool
	RisingEdge   bool
	FallingEdge  bool
}{}

func init() {
	defs := loadDefaults()
	rootCmd.Flags().DurationVarP(&opts.Bounce, "bounce", "b", defs.bounce, "gap below which events on a pin are treated as contact bounce")
	rootCmd.Flags().DurationVar(&opts.Settle, "settle", defs.settle, "delay between an interrupt and the pin state sample")
	rootCmd.Flags().StringVarP(&opts.Pipe, "pipe", "p", defs.pipe, "path of the named pipe to write events to")
	rootCmd.Flags().BoolVarP(&opts.Debug, "debug", "d", false, "write events to the console instead of the pipe")
	rootCmd.Flags().BoolVarP(&opts.ExportOnly, "export-only", "e", false, "export and configure the pins, then exit")
	rootCmd.Flags().BoolVarP(&opts.UnexportOnly, "unexport-only", "u", false, "unexport the pins, then exit")
	rootCmd.Flags().BoolVarP(&opts.NoExport, "no-export", "n", false, "don't export or unexport the pins")
	rootCmd.Flags().BoolVarP(&opts.RisingEdge, "rising-edge", "r", false, "report only rising edges")
	rootCmd.Flags().BoolVarP(&opts.FallingEdge, "falling-edge", "f", false, "report only falling edges")
}

type defaults struct {
	bounce time.Duration
	settle time.Duration
	pipe   string
}

// loadDefaults layers the flag defaults from, in increasing priority,
// built-in values, an optional JSON config file, and PI_BUTTONS_*
// environment variables. Flags given on the command line override all
// of these.
func loadDefaults() defaults {
	def := dict.New(dict.WithMap(map[string]interface{}{
		"bounce":      "300ms",
		"settle":      "2ms",
		"pipe":        "/tmp/pi-buttons",
		"config.file": "pi-buttons.json",
	}))
	cfg := config.New(
		env.New(env.WithEnvPrefix("PI_BUTTONS_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "pi-buttons.json", json.NewDecoder()))
	cfg = cfg.GetConfig("", config.WithMust)
	return defaults{
		bounce: cfg.MustGet("bounce").Duration(),
		settle: cfg.MustGet("settle").Duration(),
		pipe:   cfg.MustGet("pipe").String(),
	}
}

func run(cmd *cobra.Command, args []string) error {
	if opts.RisingEdge && opts.FallingEdge {
		return errors.New("can't filter both falling-edge and rising-edge events")
	}
	pins, err := parsePins(args)
	if err != nil {
		return err
	}
	initLogger(opts.Debug)

	sysfs := &buttonpipe.Sysfs{}
	switch {
	case opts.UnexportOnly:
		return unexportPins(sysfs, pins)
	case opts.ExportOnly:
		return exportPins(sysfs, pins)
	}

	edge := buttonpipe.EdgeBoth
	switch {
	case opts.RisingEdge:
		edge = buttonpipe.EdgeRising
	case opts.FallingEdge:
		edge = buttonpipe.EdgeFalling
	}

	sink := os.Stdout
	if !opts.Debug {
		pipe, err := buttonpipe.OpenPipe(opts.Pipe)
		if err != nil {
			return err
		}
		sink = pipe
		atexit.Register(func() { pipe.Close() })
	}

	mon, err := buttonpipe.New(buttonpipe.Config{
		Pins:       pins,
		Edge:       edge,
		BounceTime: opts.Bounce,
		SettleTime: opts.Settle,
		NoExport:   opts.NoExport,
	}, sink)
	if err != nil {
		return err
	}
	// The pins must be released on every path out of the process,
	// including signal-triggered ones. Close is idempotent, so the
	// release happens exactly once however we get here.
	atexit.Register(func() { mon.Close() })

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer stop()
	return mon.Run(ctx)
}

func initLogger(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func parsePins(args []string) ([]int, error) {
	if len(args) > buttonpipe.MaxPins {
		return nil, fmt.Errorf("too many pins specified (max %d)", buttonpipe.MaxPins)
	}
	pins := make([]int, 0, len(args))
	for _, arg := range args {
		pin, err := strconv.Atoi(arg)
		if err != nil || pin < 0 {
			return nil, fmt.Errorf("can't parse pin '%s'", arg)
		}
		pins = append(pins, pin)
	}
	return pins, nil
}

func exportPins(s *buttonpipe.Sysfs, pins []int) error {
	for _, pin := range pins {
		if err := s.Acquire(pin); err != nil {
			return err
		}
	}
	return nil
}

func unexportPins(s *buttonpipe.Sysfs, pins []int) error {
	for _, pin := range pins {
		if err := s.Unexport(pin); err != nil {
			return fmt.Errorf("unexport pin %d: %w", pin, err)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pi-button-pipe: %s\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
