// Package drive runs the single-writer / many-reader workload against a
// store: the writer publishes "0", "1", ... and then a sentinel, and every
// reader polls until it sees the sentinel, checking that the sequence it
// observes never goes backwards.
package drive

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/valyala/fastrand"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/aradilov/rwstore"
)

var (
	ErrWentBack = errors.New("drive: reader observed an older value")
	ErrGarbage  = errors.New("drive: reader observed a value that was never written")
)

// checkCtxEvery is how many writes pass between context checks.
const checkCtxEvery = 1024

// ReaderReport is what one reader saw during a run.
type ReaderReport struct {
	ID          int
	Reads       uint64 // reads that returned a sequence number
	Distinct    uint64 // how many different sequence numbers it saw
	First       int    // first sequence number seen, -1 if none
	Last        int    // last sequence number seen, -1 if none
	SawSentinel bool
	Spun        uint64 // busy loop iterations, kept so the loop is not optimized away
	Err         error
}

// Summary is the outcome of Run.
type Summary struct {
	Writes   int
	Elapsed  time.Duration
	Baseline bool
	Readers  []ReaderReport
	Store    rwstore.Stats
}

// Run executes one workload described by cfg. It returns once every reader
// has stopped. If ctx is cancelled the writer publishes the sentinel early
// and the context error is returned alongside the summary.
func Run(ctx context.Context, cfg Config, log *zap.Logger) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	src := newSource(cfg, "0")
	box := newMailbox[ReaderReport](cfg.Readers)

	log.Info("starting run",
		zap.Int("readers", cfg.Readers),
		zap.Int("writes", cfg.Writes),
		zap.Int("max_spin", cfg.MaxSpin),
		zap.Bool("baseline", cfg.Baseline),
	)

	start := time.Now()
	for i := 0; i < cfg.Readers; i++ {
		// handles are taken before the first write so every reader starts at "0"
		r := src.reader()
		go readUntilSentinel(i, r, cfg, box)
	}

	writes, runErr := publish(ctx, src, cfg)

	reports := make([]ReaderReport, cfg.Readers)
	var spins uint32
	for got := 0; got < cfg.Readers; {
		rep, ok := box.Take()
		if !ok {
			spins++
			if spins%64 == 0 {
				runtime.Gosched()
			}
			continue
		}
		reports[rep.ID] = rep
		got++
	}
	elapsed := time.Since(start)

	sum := Summary{
		Writes:   writes,
		Elapsed:  elapsed,
		Baseline: cfg.Baseline,
		Readers:  reports,
		Store:    src.stats(),
	}
	src.close()

	var err error
	for _, rep := range reports {
		log.Debug("reader finished",
			zap.Int("reader", rep.ID),
			zap.Uint64("reads", rep.Reads),
			zap.Uint64("distinct", rep.Distinct),
			zap.Int("first", rep.First),
			zap.Int("last", rep.Last),
			zap.Bool("sentinel", rep.SawSentinel),
		)
		err = multierr.Append(err, rep.Err)
	}
	if err != nil {
		log.Error("readers reported errors", zap.Error(err))
	}
	if runErr != nil {
		log.Warn("run cut short", zap.Int("writes", writes), zap.Error(runErr))
		err = multierr.Append(runErr, err)
	}

	log.Info("run finished",
		zap.Int("writes", writes),
		zap.Duration("elapsed", elapsed),
		zap.Uint64("recycled", sum.Store.Recycled),
		zap.Uint64("allocs", sum.Store.Allocs),
		zap.Uint64("deferred", sum.Store.Deferred),
	)
	return sum, err
}

// publish writes the sequence and then the sentinel. The sentinel is always
// published so that readers terminate, even when ctx is cancelled.
func publish(ctx context.Context, src source, cfg Config) (int, error) {
	for i := 0; i < cfg.Writes; i++ {
		if i%checkCtxEvery == 0 {
			if err := ctx.Err(); err != nil {
				src.publish(cfg.Sentinel)
				return i, err
			}
		}
		src.publish(strconv.Itoa(i))
	}
	src.publish(cfg.Sentinel)
	return cfg.Writes, nil
}

func readUntilSentinel(id int, r reader, cfg Config, box *mailbox[ReaderReport]) {
	rep := ReaderReport{ID: id, First: -1, Last: -1}
	for {
		v := r.load()
		for i := fastrand.Uint32n(uint32(cfg.MaxSpin) + 1); i > 0; i-- {
			rep.Spun++
		}
		if v == cfg.Sentinel {
			rep.SawSentinel = true
			break
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			rep.Err = fmt.Errorf("reader %d: %w: %q", id, ErrGarbage, v)
			break
		}
		if n < rep.Last {
			rep.Err = fmt.Errorf("reader %d: %w: %d after %d", id, ErrWentBack, n, rep.Last)
			break
		}
		if rep.First < 0 {
			rep.First = n
		}
		if n != rep.Last {
			rep.Distinct++
		}
		rep.Last = n
		rep.Reads++
	}
	r.release()

	for !box.Post(rep) {
		runtime.Gosched()
	}
}
