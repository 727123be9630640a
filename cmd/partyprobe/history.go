package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/entrhq/partyprobe/pkg/report"
	"github.com/entrhq/partyprobe/pkg/store"
)

var errNoArchive = errors.New("no archive configured (set archive.path or PARTYPROBE_ARCHIVE)")

// showHistory prints the newest limit archived runs, or the full report of
// run id when id is set. It never starts a browser.
func showHistory(w io.Writer, path string, limit int, id string, color bool) error {
	if path == "" {
		return errNoArchive
	}
	archive, err := store.New(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	if id != "" {
		rep, err := archive.LoadReport(id)
		if err != nil {
			return err
		}
		if rep == nil {
			return fmt.Errorf("run %s not found in %s", id, path)
		}
		return report.Print(w, rep, color)
	}

	runs, err := archive.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No archived runs.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tSTATUS\tAGENTS\tISSUES")
	for _, r := range runs {
		status := "passed"
		if !r.Passed {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			status, r.Agents, r.Issues)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts, err := archive.KindCounts(limit)
	if err != nil {
		return err
	}
	if len(counts) > 0 {
		fmt.Fprintf(w, "\nIssue kinds: %s\n", formatKindCounts(counts))
	}
	return nil
}

func formatKindCounts[K ~string](counts map[K]int) string {
	kinds := make([]K, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] != counts[kinds[j]] {
			return counts[kinds[i]] > counts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}
