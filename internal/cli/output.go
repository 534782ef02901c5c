// Package cli formats the cleaner's console output.
package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
}

// Banner describes a run before it starts.
type Banner struct {
	Input   string
	Output  string
	Threads int
	Filters []string
	Version string
}

// ThreadsLabel renders a worker count, with 0 shown as "Auto".
func ThreadsLabel(threads int) string {
	if threads <= 0 {
		return "Auto"
	}
	return strconv.Itoa(threads)
}

// PrintBanner writes the run header.
func PrintBanner(w io.Writer, b Banner) {
	title := "Corpus Cleaner"
	if b.Version != "" {
		title += " " + b.Version
	}
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "  Input:   %s\n", b.Input)
	fmt.Fprintf(w, "  Output:  %s\n", b.Output)
	fmt.Fprintf(w, "  Threads: %s\n", ThreadsLabel(b.Threads))
	if len(b.Filters) > 0 {
		fmt.Fprintf(w, "  Filters: %v\n", b.Filters)
	}
	fmt.Fprintln(w)
}

// PrintRunResult writes the run summary. Failed and cancelled files are
// listed individually; verbose adds per-file statistics.
func PrintRunResult(w io.Writer, result *corpus.RunResult, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(w, "✗ No run result available")
		return
	}

	var failed, cancelled []corpus.FileOutcome
	for _, o := range result.Files {
		switch {
		case o.Cancelled:
			cancelled = append(cancelled, o)
		case o.Failed():
			failed = append(failed, o)
		}
	}

	if len(failed) > 0 {
		fmt.Fprintf(w, "✗ %d file(s) failed:\n", len(failed))
		for _, o := range failed {
			fmt.Fprintf(w, "  %s: %s\n", o.Input, o.Error)
		}
	}
	if opts.Quiet {
		return
	}
	if len(cancelled) > 0 {
		fmt.Fprintf(w, "⚠ %d file(s) not processed (cancelled)\n", len(cancelled))
	}

	mark := "✓"
	if result.Status != corpus.StatusSuccess {
		mark = "⚠"
	}
	fmt.Fprintf(w, "%s Cleaning %s in %s\n", mark, result.Status, formatElapsed(result.Elapsed))
	fmt.Fprintf(w, "  Files:      %d (%d failed)\n", result.TotalFiles, result.FailedFiles)
	fmt.Fprintf(w, "  Admitted:   %d records\n", result.TotalAdmitted)
	fmt.Fprintf(w, "  Identities: %d distinct\n", result.DistinctIdentities)
	fmt.Fprintf(w, "  Workers:    %d\n", result.Workers)
	if opts.Verbose {
		fmt.Fprintf(w, "  Run ID:     %s\n", result.RunID)
		printFileTable(w, result.Files)
	}
}

func printFileTable(w io.Writer, files []corpus.FileOutcome) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintln(w, "  Per file:")
	for _, o := range files {
		if o.Failed() {
			continue
		}
		fmt.Fprintf(w, "    %s: admitted=%d read=%d blank=%d malformed=%d filtered=%d missing=%d duplicates=%d (%s)\n",
			filepath.Base(o.Input), o.Admitted, o.LinesRead, o.Blank, o.Malformed,
			o.Filtered, o.MissingIdentity, o.Duplicates, formatElapsed(o.Duration))
	}
}

// PrintFilterTypes lists filter types with their descriptions, sorted.
func PrintFilterTypes(w io.Writer, types []string, descriptions map[string]string) {
	sorted := append([]string(nil), types...)
	sort.Strings(sorted)
	width := 0
	for _, t := range sorted {
		if len(t) > width {
			width = len(t)
		}
	}
	for _, t := range sorted {
		desc := descriptions[t]
		if desc == "" {
			fmt.Fprintf(w, "  %s\n", t)
			continue
		}
		fmt.Fprintf(w, "  %-*s  %s\n", width, t, desc)
	}
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}
