package main

import (
	"math/rand/v2"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/joshuapare/mempool/pool"
)

var (
	statsAllocs  int
	statsMaxSize int
	statsKeep    float64
	statsSeed    uint64
	statsChunks  bool
)

func init() {
	cmd := newStatsCmd()
	cmd.Flags().IntVar(&statsAllocs, "allocs", 10000, "Number of allocations to make")
	cmd.Flags().IntVar(&statsMaxSize, "max-size", 2048, "Maximum allocation size in bytes")
	cmd.Flags().Float64Var(&statsKeep, "keep", 0.5, "Fraction of allocations left live before reporting")
	cmd.Flags().Uint64Var(&statsSeed, "seed", 1, "Random seed")
	cmd.Flags().BoolVar(&statsChunks, "chunks", false, "Include every chunk in JSON output")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show pool layout after a random allocation mix",
		Long: `The stats command makes random allocations on a private pool, frees a
random subset of them and reports engine counters, free list shape and
per-block usage. With --json it prints the detailed block map.

Example:
  poolbench stats
  poolbench stats --allocs 50000 --max-size 512 --keep 0.1
  poolbench stats --json --chunks`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
	return cmd
}

func runStats() error {
	if statsAllocs < 0 || statsMaxSize < 1 || statsKeep < 0 || statsKeep > 1 {
		return errors.Newf("invalid stats parameters: allocs=%d max-size=%d keep=%g",
			statsAllocs, statsMaxSize, statsKeep)
	}
	cfg, err := env.PoolConfig()
	if err != nil {
		return err
	}
	// The live chunks are dropped on purpose, so release every block.
	cfg.Release = pool.ReleaseAll

	p, err := pool.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		td, err := p.Close()
		if err == nil {
			printVerbose("Teardown: released %d blocks (%d bytes)\n", td.ReleasedBlocks, td.ReleasedBytes)
		}
	}()

	rng := rand.New(rand.NewPCG(statsSeed, statsSeed))
	refs := make([]pool.Ref, 0, statsAllocs)
	for range statsAllocs {
		ref, _, err := p.Alloc(rng.IntN(statsMaxSize) + 1)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}
	rng.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
	keep := int(float64(len(refs)) * statsKeep)
	for _, ref := range refs[keep:] {
		if err := p.Free(ref); err != nil {
			return err
		}
	}
	printVerbose("Allocated %d chunks, kept %d\n", len(refs), keep)

	if err := p.Validate(); err != nil {
		return errors.Wrap(err, "pool failed validation")
	}

	if jsonOut {
		return p.WriteDetailedMap(os.Stdout, statsChunks)
	}
	if quiet {
		return nil
	}

	s := p.Stats()
	u, err := p.Usage()
	if err != nil {
		return err
	}
	printInfo("Blocks:            %d (%d bytes)\n", u.Blocks, u.BlockBytes)
	printInfo("Live chunks:       %d (%d bytes)\n", u.Live.Count, u.Live.Bytes)
	printInfo("Free chunks:       %d (%d bytes)\n", u.Free.Count, u.Free.Bytes)
	printInfo("Overhead:          %d header bytes, %d sentinel bytes\n", u.HeaderBytes, u.SentinelBytes)
	if u.Live.Count > 0 {
		printInfo("Live size range:   %d .. %d\n", u.Live.Min, u.Live.Max)
	}
	if u.Free.Count > 0 {
		printInfo("Free size range:   %d .. %d\n", u.Free.Min, u.Free.Max)
	}
	printInfo("Alloc calls:       %d (%d needed a new block)\n", s.AllocCalls, s.AllocSlowPath)
	printInfo("Free calls:        %d\n", s.FreeCalls)
	printInfo("Splits:            %d\n", s.Splits)
	printInfo("Coalesces:         %d forward, %d backward\n", s.CoalesceForward, s.CoalesceBackward)
	printInfo("Head advances:     %d\n", s.HeadAdvances)
	printInfo("Reorders:          %d\n", s.Reorders)
	return nil
}
