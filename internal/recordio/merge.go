// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recordio

import (
	"context"
	"fmt"
	"io"
	"os"
)

// MergeSummary holds counts from a merge run.
type MergeSummary struct {
	Files int
	Lines int
}

// Merge concatenates the record files at paths into w in the order given.
// A final line without a newline terminator gets one appended, so the
// output is always valid JSON Lines. All inputs are checked before any
// output is written.
func Merge(ctx context.Context, paths []string, w io.Writer, status io.Writer) (MergeSummary, error) {
	if len(paths) == 0 {
		return MergeSummary{}, fmt.Errorf("no input files to merge")
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return MergeSummary{}, fmt.Errorf("input %s: %w", p, err)
		}
		if info.IsDir() {
			return MergeSummary{}, fmt.Errorf("input %s is a directory", p)
		}
	}

	var summary MergeSummary
	lw := &lineCounter{w: w}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		before := lw.lines
		if err := appendFile(p, lw); err != nil {
			return summary, err
		}
		summary.Files++
		fmt.Fprintf(status, "merged  %s (%d lines)\n", p, lw.lines-before)
	}
	summary.Lines = lw.lines
	fmt.Fprintf(status, "\nmerge done: %d files, %d lines\n", summary.Files, summary.Lines)
	return summary, nil
}

func appendFile(path string, lw *lineCounter) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	lw.last = '\n'
	if _, err := io.Copy(lw, f); err != nil {
		return fmt.Errorf("copying %s: %w", path, err)
	}
	if lw.last != '\n' {
		if _, err := lw.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("terminating %s: %w", path, err)
		}
	}
	return nil
}

// lineCounter counts newlines passing through and remembers the last byte.
type lineCounter struct {
	w     io.Writer
	lines int
	last  byte
}

func (c *lineCounter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	for _, b := range p[:n] {
		if b == '\n' {
			c.lines++
		}
	}
	if n > 0 {
		c.last = p[n-1]
	}
	return n, err
}
