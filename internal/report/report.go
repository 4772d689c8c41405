// Package report renders human-readable size reports.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"

	"github.com/fluxbase-eu/bundlesize/internal/snapshot"
)

// Info is everything needed to describe one measured chunk.
type Info struct {
	Name   string
	Format string
	Record snapshot.Record
}

// DisplayFormat returns the label used for format in reports.
func DisplayFormat(format string) string {
	if format == "es" {
		return "esm"
	}
	return format
}

// FormatSize renders bytes with thousands separators, e.g. "12,345 B".
func FormatSize(bytes int) string {
	return humanize.Comma(int64(bytes)) + " B"
}

// Render writes the size report for info to w. Sizes are bold when w
// is a terminal.
func Render(w io.Writer, info Info) error {
	out := termenv.NewOutput(w)
	size := func(n int) string {
		return out.String(FormatSize(n)).Bold().String()
	}

	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Computed sizes of %q with %q format\n", info.Name, DisplayFormat(info.Format))
	fmt.Fprintf(&sb, "  bundler parsing size: %s\n", size(info.Record.Bundled))
	fmt.Fprintf(&sb, "  browser parsing size (minified): %s\n", size(info.Record.Minified))
	fmt.Fprintf(&sb, "  download size (minified and gzipped): %s\n", size(info.Record.Gzipped))

	if ts := info.Record.Treeshaken; ts != nil {
		fmt.Fprintf(&sb, "  treeshaked as ES module in production mode and minified: %s\n", size(ts.ESM.Code))
		fmt.Fprintf(&sb, "    import statements size of it: %s\n", size(ts.ESM.ImportStatements))
		fmt.Fprintf(&sb, "  treeshaked as CommonJS bundle in production mode: %s\n", size(ts.CJS.Code))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
