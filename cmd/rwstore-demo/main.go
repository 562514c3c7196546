package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/aradilov/rwstore/internal/config"
	"github.com/aradilov/rwstore/internal/drive"
)

func main() {
	fs := config.Flags("rwstore-demo")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := cfg.Log.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := drive.Run(ctx, cfg.Run, log.Named("drive"))

	var reads uint64
	for _, rep := range sum.Readers {
		reads += rep.Reads
		log.Info("reader",
			zap.Int("id", rep.ID),
			zap.Uint64("reads", rep.Reads),
			zap.Uint64("distinct", rep.Distinct),
			zap.Int("last", rep.Last),
		)
	}
	log.Info("summary",
		zap.Int("writes", sum.Writes),
		zap.Uint64("reads", reads),
		zap.Duration("elapsed", sum.Elapsed),
		zap.Bool("baseline", sum.Baseline),
		zap.Uint64("arena_size", sum.Store.ArenaSize),
		zap.Uint64("fast_path", sum.Store.FastPath),
		zap.Uint64("slow_path", sum.Store.SlowPath),
	)

	if err != nil {
		log.Error("run failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}
