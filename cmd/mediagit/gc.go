package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/mediagit/pkg/mediagit"
)

// confirmationThreshold is the object count above which gc refuses to run
// destructively without --yes (spec.md §7: "GC without --yes prompts
// above a 100-object threshold").
const confirmationThreshold = 100

func newGCCommand(verbose *bool) *cobra.Command {
	var dryRun bool
	var yes bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove objects unreachable from any ref",
		Long:  "Walks every branch and tag to compute the live object and chunk sets, then deletes what's left over",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			repo, err := mediagit.Open(".", newLogger(*verbose))
			if err != nil {
				return fmt.Errorf("not in a mediagit repository: %w", err)
			}

			if !dryRun && !yes {
				preview, err := repo.GC().Collect(ctx, true)
				if err != nil {
					return fmt.Errorf("gc dry run failed: %w", err)
				}
				if preview.ObjectsToDelete() > confirmationThreshold {
					return fmt.Errorf("refusing to delete %d objects without --yes (threshold: %d)", preview.ObjectsToDelete(), confirmationThreshold)
				}
			}

			result, err := repo.GC().Collect(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("gc failed: %w", err)
			}

			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "would delete %d loose objects, %d manifests, %d chunks\n",
					result.LooseObjectsScanned, result.ManifestsScanned, result.ChunksScanned)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d loose objects, %d manifests, %d chunks\n",
				result.LooseObjectsDeleted, result.ManifestsDeleted, result.ChunksDeleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted without deleting anything")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation threshold")
	return cmd
}
