package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/joshuapare/mempool/internal/logger"
	"github.com/joshuapare/mempool/internal/metrics"
	"github.com/joshuapare/mempool/internal/workload"
	"github.com/joshuapare/mempool/pool"
)

var (
	runN           int
	runMaxLen      int
	runSeed        uint64
	runBackend     string
	runMetricsAddr string
	runHold        bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().IntVar(&runN, "n", workload.DefaultN, "Number of vectors")
	cmd.Flags().IntVar(&runMaxLen, "max-len", workload.DefaultMaxLen, "Maximum vector length")
	cmd.Flags().Uint64Var(&runSeed, "seed", workload.DefaultSeed, "Random seed")
	cmd.Flags().StringVar(&runBackend, "backend", string(workload.BackendPool), "Storage backend: pool or heap")
	cmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides MEMPOOL_METRICS_ADDR)")
	cmd.Flags().BoolVar(&runHold, "hold", false, "Keep serving metrics after the run until interrupted")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the vector workload and time each phase",
		Long: `The run command builds N vectors of random length, resizes N randomly
chosen vectors to random lengths and then releases them all, timing each
phase. With --backend heap the same sequence runs on plain Go slices.

Example:
  poolbench run
  poolbench run --n 20000 --max-len 4000 --backend heap
  poolbench run --metrics-addr :9090 --hold`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runRun(ctx)
		},
	}
	return cmd
}

type runReport struct {
	Backend    string  `json:"backend"`
	N          int     `json:"n"`
	MaxLen     int     `json:"max_len"`
	Seed       uint64  `json:"seed"`
	BuildSec   float64 `json:"build_sec"`
	ResizeSec  float64 `json:"resize_sec"`
	ReleaseSec float64 `json:"release_sec"`
	TotalSec   float64 `json:"total_sec"`
	Elements   int64   `json:"elements"`

	PeakBlocks     int   `json:"peak_blocks,omitempty"`
	PeakBlockBytes int64 `json:"peak_block_bytes,omitempty"`
	PeakFreeChunks int   `json:"peak_free_chunks,omitempty"`
	LeakedBlocks   int   `json:"leaked_blocks,omitempty"`
}

func runRun(ctx context.Context) error {
	backend := workload.Backend(runBackend)

	var collector *metrics.Collector
	addr := runMetricsAddr
	if addr == "" {
		addr = env.MetricsAddr
	}
	if addr != "" {
		collector = metrics.New(true)
		srv, err := serveMetrics(addr, collector)
		if err != nil {
			return err
		}
		defer func() {
			if runHold {
				printInfo("Serving metrics on %s, interrupt to exit\n", srv.Addr)
				<-ctx.Done()
			}
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdown)
		}()
	}

	closePool := func() (pool.Teardown, error) { return pool.Teardown{}, nil }
	if backend == workload.BackendPool {
		cfg, err := env.PoolConfig()
		if err != nil {
			return err
		}
		if collector != nil {
			cfg.Observer = collector
		}
		if err := pool.InitDefault(cfg); err != nil {
			return err
		}
		printVerbose("Pool: block unit %d, backing %s, release %s, hardened %t\n",
			cfg.BlockUnit, cfg.Backing, cfg.Release, cfg.Hardened)
		closePool = pool.CloseDefault
	}

	res, err := workload.Run(ctx, workload.Options{
		N:       runN,
		MaxLen:  runMaxLen,
		Seed:    runSeed,
		Backend: backend,
	})
	teardown, closeErr := closePool()
	if err != nil {
		return errors.CombineErrors(err, closeErr)
	}
	if closeErr != nil {
		return closeErr
	}
	if backend == workload.BackendPool {
		printVerbose("Teardown: released %d blocks (%d bytes), leaked %d blocks (%d bytes)\n",
			teardown.ReleasedBlocks, teardown.ReleasedBytes, teardown.LeakedBlocks, teardown.LeakedBytes)
	}

	report := runReport{
		Backend:    string(res.Backend),
		N:          res.N,
		MaxLen:     res.MaxLen,
		Seed:       runSeed,
		BuildSec:   res.Build.Seconds(),
		ResizeSec:  res.Resize.Seconds(),
		ReleaseSec: res.Teardown.Seconds(),
		TotalSec:   res.Total().Seconds(),
		Elements:   res.Elements,
	}
	report.LeakedBlocks = teardown.LeakedBlocks
	if res.Peak != nil {
		report.PeakBlocks = res.Peak.Blocks
		report.PeakBlockBytes = res.Peak.BlockBytes
		report.PeakFreeChunks = res.Peak.FreeChunks
	}

	if jsonOut {
		return printJSON(report)
	}
	printInfo("Backend:   %s\n", report.Backend)
	printInfo("Vectors:   %d (max length %d, seed %d)\n", report.N, report.MaxLen, report.Seed)
	printInfo("Build:     %.3fs\n", report.BuildSec)
	printInfo("Resize:    %.3fs\n", report.ResizeSec)
	printInfo("Release:   %.3fs\n", report.ReleaseSec)
	printInfo("Total:     %.3fs\n", report.TotalSec)
	printVerbose("Elements:  %d\n", report.Elements)
	if res.Peak != nil {
		printInfo("Peak:      %d blocks, %d bytes, %d free chunks\n",
			report.PeakBlocks, report.PeakBlockBytes, report.PeakFreeChunks)
	}
	return nil
}

// serveMetrics starts an HTTP server exposing /metrics. The listener is bound
// before returning so bind errors surface immediately.
func serveMetrics(addr string, c *metrics.Collector) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", srv.Addr)
	return srv, nil
}
