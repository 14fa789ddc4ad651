package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/chartup/internal/storage"
)

type HashOptions struct {
	Files []string

	iooption.IOStreams
}

var (
	hashLong = templates.LongDesc(`
		Print the content hash of local files: the hex MD5 of their bytes,
		as the storage service computes it for stored objects. Needs no
		configuration and performs no network activity.`)

	hashExample = templates.Examples(`
		# Hash a chart package before uploading it
		chartup hash tidb-v1.0.0.tgz`)
)

func NewHashOptions(streams iooption.IOStreams) *HashOptions {
	return &HashOptions{
		IOStreams: streams,
	}
}

func NewHashCommand(o *HashOptions) *cobra.Command {
	return &cobra.Command{
		Use:                   "hash FILE...",
		DisableFlagsInUseLine: true,
		Short:                 "Print the service content hash of local files",
		Long:                  hashLong,
		Example:               hashExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			if err := o.Run(); err != nil {
				return err
			}
			return nil
		},
	}
}

func (o *HashOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("at least one FILE argument is required")
	}
	o.Files = args
	return nil
}

func (o *HashOptions) Validate() error {
	return nil
}

func (o *HashOptions) Run() error {
	for _, path := range o.Files {
		hash, err := storage.FileETag(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(o.Out, "%s  %s\n", hash, path)
	}
	return nil
}
