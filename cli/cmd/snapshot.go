package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/bundlesize/cli/output"
	"github.com/fluxbase-eu/bundlesize/internal/config"
	"github.com/fluxbase-eu/bundlesize/internal/snapshot"
)

var (
	snapshotPath      string
	snapshotThreshold int
)

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Aliases: []string{"snap"},
	Short:   "Inspect size snapshot files",
	Long:    `Show the entries of a size snapshot or compare two snapshots.`,
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the entries of a snapshot",
	Long: `Show every chunk recorded in a snapshot file.

Examples:
  bundlesize snapshot show
  bundlesize snapshot show --snapshot-path sizes/.size-snapshot.json -o json`,
	Args: cobra.NoArgs,
	RunE: runSnapshotShow,
}

var snapshotCompareCmd = &cobra.Command{
	Use:   "compare <old> <new>",
	Short: "Compare two snapshot files",
	Long: `Compare the chunks recorded in two snapshot files.

Chunks present in both files fail the comparison when any size moved by more
than --threshold bytes. Chunks present in only one of the files are listed
as added or removed.

Examples:
  bundlesize snapshot compare main.size-snapshot.json .size-snapshot.json
  bundlesize snapshot compare old.json new.json --threshold 32`,
	Args: cobra.ExactArgs(2),
	RunE: runSnapshotCompare,
}

func init() {
	snapshotShowCmd.Flags().StringVar(&snapshotPath, "snapshot-path", "",
		"snapshot file (default is ./"+config.DefaultSnapshotFile+")")
	snapshotCompareCmd.Flags().IntVar(&snapshotThreshold, "threshold", 0,
		"allowed size difference in bytes")

	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotCompareCmd)
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd, map[string]string{config.KeySnapshotPath: "snapshot-path"})
	if err != nil {
		return err
	}

	snap, err := snapshot.NewOSStore(opts.SnapshotPath).Load()
	if err != nil {
		return err
	}

	if len(snap) == 0 {
		GetFormatter().PrintWarning(fmt.Sprintf("no chunks recorded in %s", opts.SnapshotPath))
		return nil
	}
	return GetFormatter().PrintSnapshot(snap)
}

// Comparison statuses
const (
	statusMatch    = "match"
	statusMismatch = "mismatch"
	statusAdded    = "added"
	statusRemoved  = "removed"
)

func runSnapshotCompare(cmd *cobra.Command, args []string) error {
	if snapshotThreshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", snapshotThreshold)
	}

	oldSnap, err := snapshot.NewOSStore(args[0]).Load()
	if err != nil {
		return err
	}
	newSnap, err := snapshot.NewOSStore(args[1]).Load()
	if err != nil {
		return err
	}

	data, err := compareSnapshots(oldSnap, newSnap, snapshotThreshold)
	if err := GetFormatter().PrintTable(data); err != nil {
		return err
	}

	var merr *multierror.Error
	if errors.As(err, &merr) && !quiet {
		for _, e := range merr.Errors {
			var mismatch *snapshot.MismatchError
			if errors.As(e, &mismatch) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\n%s\n%s", mismatch.Error(), mismatch.Diff())
			}
		}
	}
	return err
}

// compareSnapshots returns one row per chunk of either snapshot and the
// mismatches of chunks present in both.
func compareSnapshots(oldSnap, newSnap snapshot.Snapshot, threshold int) (output.TableData, error) {
	names := make(map[string]struct{}, len(oldSnap)+len(newSnap))
	for name := range oldSnap {
		names[name] = struct{}{}
	}
	for name := range newSnap {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	data := output.TableData{Headers: []string{"CHUNK", "STATUS", "DETAILS"}}
	var result *multierror.Error

	for _, name := range sorted {
		oldRec, inOld := oldSnap[name]
		newRec, inNew := newSnap[name]

		switch {
		case !inOld:
			data.Rows = append(data.Rows, []string{name, statusAdded, fmt.Sprintf("gzipped %d", newRec.Gzipped)})
		case !inNew:
			data.Rows = append(data.Rows, []string{name, statusRemoved, fmt.Sprintf("gzipped %d", oldRec.Gzipped)})
		default:
			err := snapshot.Compare(name, oldRec, newRec, threshold)
			var mismatch *snapshot.MismatchError
			if errors.As(err, &mismatch) {
				data.Rows = append(data.Rows, []string{name, statusMismatch, leafSummary(mismatch.Leaves)})
				result = multierror.Append(result, err)
				continue
			}
			data.Rows = append(data.Rows, []string{name, statusMatch, ""})
		}
	}

	return data, result.ErrorOrNil()
}

func leafSummary(leaves []snapshot.LeafDelta) string {
	summary := ""
	for i, leaf := range leaves {
		if i > 0 {
			summary += ", "
		}
		summary += fmt.Sprintf("%s %+d", leaf.Path, leaf.Delta())
	}
	return summary
}
