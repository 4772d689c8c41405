package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// LeafDelta describes one leaf that moved beyond the threshold.
type LeafDelta struct {
	Path     string
	Expected int
	Actual   int
}

// Delta returns Actual - Expected.
func (d LeafDelta) Delta() int {
	return d.Actual - d.Expected
}

// MismatchError is returned when a measured record differs from its
// snapshot entry by more than the threshold.
type MismatchError struct {
	Key       string
	Expected  Record
	Actual    Record
	Threshold int
	Leaves    []LeafDelta
}

func (e *MismatchError) Error() string {
	parts := make([]string, 0, len(e.Leaves))
	for _, l := range e.Leaves {
		parts = append(parts, fmt.Sprintf("%s %d -> %d (%+d)", l.Path, l.Expected, l.Actual, l.Delta()))
	}
	return fmt.Sprintf("size snapshot mismatch for %q with threshold %d: %s",
		e.Key, e.Threshold, strings.Join(parts, ", "))
}

// Diff renders a unified diff between the snapshot entry and the new record.
func (e *MismatchError) Diff() string {
	expected, _ := json.MarshalIndent(e.Expected, "", "  ")
	actual, _ := json.MarshalIndent(e.Actual, "", "  ")

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(expected) + "\n"),
		B:        difflib.SplitLines(string(actual) + "\n"),
		FromFile: "snapshot",
		ToFile:   "current",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

// Compare checks actual against expected leaf by leaf. A leaf matches
// when the absolute difference is at most threshold.
func Compare(key string, expected, actual Record, threshold int) error {
	want := expected.Leaves()
	got := actual.Leaves()

	var deltas []LeafDelta
	for i := range want {
		diff := got[i].Value - want[i].Value
		if diff < 0 {
			diff = -diff
		}
		if diff > threshold {
			deltas = append(deltas, LeafDelta{
				Path:     want[i].Path,
				Expected: want[i].Value,
				Actual:   got[i].Value,
			})
		}
	}

	if len(deltas) == 0 {
		return nil
	}
	return &MismatchError{
		Key:       key,
		Expected:  expected,
		Actual:    actual,
		Threshold: threshold,
		Leaves:    deltas,
	}
}
