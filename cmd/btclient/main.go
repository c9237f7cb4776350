package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/devRAFAHT/bittorrent-client/internal/commands"
	"github.com/ztrue/tracerr"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] decode <bencoded value>\n", os.Args[0])
	fmt.Fprintf(flag.CommandLine.Output(), "       %s [flags] info <file.torrent>\n", os.Args[0])
	fmt.Fprintf(flag.CommandLine.Output(), "       %s [flags] peers <file.torrent>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	var (
		logPath string
		level   slog.Level
		port    uint
		timeout time.Duration
		trace   bool
	)
	flag.StringVar(&logPath, "log", "", "Write JSON logs to this file instead of stderr")
	flag.TextVar(&level, "level", slog.LevelError, "Log level (debug, info, warn, error)")
	flag.UintVar(&port, "port", 6881, "Port announced to trackers")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Tracker announce timeout")
	flag.BoolVar(&trace, "trace", false, "Print a stack trace on failure")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || port > 65535 {
		flag.Usage()
		os.Exit(2)
	}

	var logOut io.Writer = os.Stderr
	if logPath != "" {
		f, err := os.Create(logPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command, arg := args[0], args[1]
	var err error
	switch command {
	case "decode":
		err = commands.Decode(os.Stdout, []byte(arg), logger)
	case "info":
		err = commands.Info(os.Stdout, arg, logger)
	case "peers":
		err = commands.Peers(ctx, os.Stdout, arg, commands.PeersOptions{
			Port:     uint16(port),
			Timeout:  timeout,
			Progress: os.Stderr,
		}, logger)
	default:
		fmt.Fprintln(os.Stderr, "Unknown command: "+command)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", slog.String("command", command), slog.Any("error", err))
		if trace {
			tracerr.PrintSource(err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
