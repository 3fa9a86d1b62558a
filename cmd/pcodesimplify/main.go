package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/oisee/pcodesimplify/internal/pcodeasm"
	"github.com/oisee/pcodesimplify/pkg/rule"
	"github.com/oisee/pcodesimplify/pkg/rules"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pcodesimplify",
		Short: "p-code simplification engine — run the rewrite catalogue over a function",
	}

	rootCmd.AddCommand(newSimplifyCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newBatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildEngine assembles the three standard action groups in order,
// early/type-directed/final, with the given per-group pass budget.
func buildEngine(passBudget int) *rule.Engine {
	e := rule.NewEngine()
	e.AddGroup(rule.Group{Name: rule.GroupEarly, Rules: rules.EarlyGroup(), PassBudget: passBudget})
	e.AddGroup(rule.Group{Name: rule.GroupTypeDirected, Rules: rules.TypeDirectedGroup(), PassBudget: passBudget})
	e.AddGroup(rule.Group{Name: rule.GroupFinal, Rules: rules.FinalGroup(), PassBudget: passBudget})
	return e
}

func newSimplifyCmd() *cobra.Command {
	var passBudget int
	var typeRecoveryStarted bool
	var typeRecoveryExceeded bool
	var funcPtrAlignBits int
	var nanIgnoreAll bool

	cmd := &cobra.Command{
		Use:   "simplify [function.pcasm]",
		Short: "Run the rule catalogue once on a function read from a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("simplify: %w", err)
			}
			defer f.Close()

			fn, err := pcodeasm.Parse(f, args[0])
			if err != nil {
				return fmt.Errorf("simplify: %w", err)
			}

			opts := &rule.Options{
				NanIgnoreAll:         nanIgnoreAll,
				FuncPtrAlignBits:     funcPtrAlignBits,
				TypeRecoveryStarted:  typeRecoveryStarted,
				TypeRecoveryExceeded: typeRecoveryExceeded,
			}
			warnings := buildEngine(passBudget).Run(fn.FD, opts)

			fmt.Printf("function %s: %d output varnode(s)\n", fn.FD.Name, len(fn.Outputs))
			for i, out := range fn.Outputs {
				vn := fn.FD.Varnode(out)
				fmt.Printf("  output[%d]: size=%d nz_mask=0x%x\n", i, vn.Size, vn.NZMask)
			}
			if n := warnings.Len(); n > 0 {
				fmt.Printf("%d warning(s):\n", n)
				for _, w := range warnings.All() {
					fmt.Printf("  [%s] addr=0x%x %s\n", w.Kind, w.Addr, w.Message)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&passBudget, "pass-budget", 8, "maximum passes per action group before a budget-exceeded warning")
	cmd.Flags().BoolVar(&typeRecoveryStarted, "type-recovery-started", false, "let ptr_arith and piece_structure fire (the type-directed group runs either way)")
	cmd.Flags().BoolVar(&typeRecoveryExceeded, "type-recovery-exceeded", false, "run the undo rules that assume type recovery gave up")
	cmd.Flags().IntVar(&funcPtrAlignBits, "func-ptr-align-bits", 0, "low bits to clear from CALLIND constant targets (0 disables)")
	cmd.Flags().BoolVar(&nanIgnoreAll, "nan-ignore-all", false, "stored in rule.Options.NanIgnoreAll; no rule reads it, so NaN tests are not folded")
	return cmd
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the registered rule catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%-20s %s\n", "early", "runs before type recovery")
			for _, r := range rules.EarlyGroup() {
				fmt.Printf("  %s\n", r.Name)
			}
			fmt.Printf("%-20s %s\n", "type-directed", "runs once type recovery has started")
			for _, r := range rules.TypeDirectedGroup() {
				fmt.Printf("  %s\n", r.Name)
			}
			fmt.Printf("%-20s %s\n", "final", "runs after type recovery is abandoned or complete")
			for _, r := range rules.FinalGroup() {
				fmt.Printf("  %s\n", r.Name)
			}
			fmt.Printf("\n%d rules total\n", len(rules.Catalogue()))
			return nil
		},
	}
}

func newBatchCmd() *cobra.Command {
	var passBudget int
	var numWorkers int

	cmd := &cobra.Command{
		Use:   "batch [function.pcasm ...]",
		Short: "Run simplify over many independent functions concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workers := numWorkers
			if workers <= 0 {
				workers = runtime.NumCPU()
			}

			jobs := make(chan string, len(args))
			for _, path := range args {
				jobs <- path
			}
			close(jobs)

			var wg sync.WaitGroup
			var mu sync.Mutex
			failures := 0

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for path := range jobs {
						if err := runOne(path, passBudget); err != nil {
							mu.Lock()
							failures++
							mu.Unlock()
							fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
						}
					}
				}()
			}
			wg.Wait()

			fmt.Printf("%d function(s), %d failure(s)\n", len(args), failures)
			if failures > 0 {
				return fmt.Errorf("batch: %d function(s) failed", failures)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&passBudget, "pass-budget", 8, "maximum passes per action group")
	cmd.Flags().IntVar(&numWorkers, "workers", 0, "number of workers (0 = NumCPU)")
	return cmd
}

// runOne simplifies a single function in its own FunctionData — batch's
// concurrency is across independent graphs, one per worker, never
// within a single shared graph (the engine itself is single-threaded).
func runOne(path string, passBudget int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fn, err := pcodeasm.Parse(f, path)
	if err != nil {
		return err
	}
	opts := &rule.Options{}
	warnings := buildEngine(passBudget).Run(fn.FD, opts)
	fmt.Printf("%s: %d output(s), %d warning(s)\n", path, len(fn.Outputs), warnings.Len())
	return nil
}
