package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/largest/internal/dirstat"
)

// FormatSize renders size in binary (KiB, MiB, ...) or decimal (kB, MB, ...) units.
func FormatSize(size uint64, decimal bool) string {
	if decimal {
		return humanize.Bytes(size)
	}

	return humanize.IBytes(size)
}

// PrintHeader writes the banner shown before a table scan.
func PrintHeader(topN int, writer io.Writer) error {
	_, err := fmt.Fprintf(writer, "TOP%d Finding the %d largest files in given directories\n", topN, topN)

	return err
}

// PrintJSON outputs statistics in JSON format.
func PrintJSON(stats *dirstat.Stats, writer io.Writer) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintTable outputs one line per size group, smallest first: the formatted size
// and the first path, then any further paths of that size indented below it.
func PrintTable(stats *dirstat.Stats, decimal bool, writer io.Writer) error {
	w := bufio.NewWriter(writer)

	for _, group := range stats.Groups {
		if len(group.Paths) == 0 {
			continue
		}

		fmt.Fprintf(w, "%10s %s\n", FormatSize(group.Size, decimal), group.Paths[0])

		for _, path := range group.Paths[1:] {
			fmt.Fprintf(w, "%11s%s\n", "", path)
		}
	}

	return w.Flush()
}
