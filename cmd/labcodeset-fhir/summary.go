package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/gofhir/labcodeset/engine"
)

// printSummary lists the files written and the diagnostic counts.
func printSummary(w io.Writer, result *engine.Result, paths []string) {
	title := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed, color.Bold)

	title.Fprintf(w, "Labcodeset %s (LOINC %s)\n", result.Version, result.LoincVersion)
	for _, p := range paths {
		fmt.Fprintf(w, "  Output to release file: %s\n", filepath.Base(p))
	}

	fmt.Fprintln(w)
	ok.Fprintf(w, "%d resources written", len(result.Resources))
	fmt.Fprintf(w, " in %s\n", result.Duration.Round(time.Millisecond))

	counts := warn
	if result.HasErrors() {
		counts = bad
	}
	counts.Fprintf(w, "Errors: %d, Warnings: %d, Info: %d\n", result.ErrorCount(), result.WarningCount(), result.InfoCount())
}
