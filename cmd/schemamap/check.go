package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/schemamap/internal/core"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <plan file or directory>...",
		Short: "Validate plan files without starting the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				plans, err := loadPlans(path)
				if err != nil {
					reportFailure(cmd.ErrOrStderr(), path, err)
					failed++
					continue
				}
				for _, p := range plans {
					fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d steps)\n", p.Name, len(p.Steps))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d paths failed", failed, len(args))
			}
			return nil
		},
	}
}

func loadPlans(path string) ([]core.Plan, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return core.LoadPlanDir(path)
	}
	p, err := core.LoadPlanFile(path)
	if err != nil {
		return nil, err
	}
	return []core.Plan{p}, nil
}

// reportFailure prints the catalogue message for known errors, then the
// error itself with one line per plan problem.
func reportFailure(w io.Writer, path string, err error) {
	fmt.Fprintf(w, "FAIL %s\n", path)
	if core.IsUserFacing(err) {
		fmt.Fprintf(w, "     %s\n", core.FormatUserError(err))
	}
	if problems := core.Problems(err); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(w, "     - %s\n", p)
		}
		return
	}
	fmt.Fprintf(w, "     %v\n", err)
}
