// Command labcodeset-fhir transforms a Labcodeset publication into FHIR
// terminology resources.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand creates the root command writing primary output to stdout
// and logs to stderr.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "labcodeset-fhir",
		Short: "Transform a Labcodeset publication into FHIR terminology resources",
		Long: `labcodeset-fhir reads a Labcodeset publication and writes a LOINC
CodeSystem supplement, a UCUM CodeSystem fragment, value sets, concept maps
and a collection bundle holding all of them.

Every flag can also be set in a config file (--config) or through an
environment variable prefixed with LABCODESET_, e.g. LABCODESET_LOINC_VERSION.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.AddCommand(newTransformCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}
