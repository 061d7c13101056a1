// Command heapdriver replays a trace file of allocator operations
// against a heap.Allocator, optionally checking heap invariants after
// every line. It exists to exercise heap and substrate the way a real
// user program would, outside of the test suite.
package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/GeorgeMLP/malloclab/heap"
	"github.com/GeorgeMLP/malloclab/substrate"
)

var (
	flagKind    string
	flagCheck   bool
	flagVerbose bool
	flagLimit   int
)

var rootCmd = &cobra.Command{
	Use:   "heapdriver",
	Short: "Replay an allocator trace against the heap package",
}

var runCmd = &cobra.Command{
	Use:   "run TRACEFILE",
	Short: "Run a trace file of a/f/r/c operations",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagKind, "kind", "seglist", "free index kind: seglist or splay")
	runCmd.Flags().BoolVar(&flagCheck, "check", false, "run CheckHeap after every operation")
	runCmd.Flags().IntVar(&flagLimit, "limit", 0, "cap the arena size in bytes (0 means unbounded)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log every operation")
	rootCmd.AddCommand(runCmd)
}

func parseKind(s string) (heap.Kind, error) {
	switch s {
	case "seglist":
		return heap.SegList, nil
	case "splay":
		return heap.Splay, nil
	default:
		return 0, errors.Errorf("unknown kind %q, want seglist or splay", s)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	kind, err := parseKind(flagKind)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return errors.Wrap(err, "opening trace file")
	}
	defer f.Close()

	a := heap.NewAllocator(kind, substrate.NewMemArena(flagLimit))
	if err := a.Init(); err != nil {
		return errors.Wrap(err, "initializing heap")
	}

	if err := runTrace(f, a, flagCheck); err != nil {
		return errors.Wrap(err, "replaying trace")
	}

	logrus.WithField("kind", kind).Info("trace completed")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("heapdriver failed")
		os.Exit(1)
	}
}
