package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"
)

var (
	rootLong = templates.LongDesc(``)

	rootExamples = templates.Examples(``)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// ChartupOptions defines the options for the `chartup` command.
type ChartupOptions struct {
	iooption.IOStreams
}

// NewChartupOptions provides an initialised ChartupOptions instance.
func NewChartupOptions(streams iooption.IOStreams) *ChartupOptions {
	return &ChartupOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `chartup` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewChartupOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `chartup` command and its nested
// children.
func NewRootCommandWithArgs(o *ChartupOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "chartup [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Publish release artefacts to object storage",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	cmd.AddCommand(NewUploadCommand(NewUploadOptions(o.IOStreams)))
	cmd.AddCommand(NewHashCommand(NewHashOptions(o.IOStreams)))
	cmd.AddCommand(NewVerifyCommand(NewVerifyOptions(o.IOStreams)))

	// The globlal normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary.
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
