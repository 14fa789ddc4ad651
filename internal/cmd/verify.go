package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/chartup/internal/config"
	"github.com/tomasbasham/chartup/internal/storage"
	"github.com/tomasbasham/chartup/internal/uploader"
)

type VerifyOptions struct {
	cfg      *config.Config
	provider storage.Provider

	LocalFile  string
	RemoteName string

	iooption.IOStreams
}

var (
	verifyLong = templates.LongDesc(`
		Compare a published object's content hash against a local file. The
		exit status is non-zero when the hashes differ or the object is
		absent.`)

	verifyExample = templates.Examples(`
		# Check that the published chart still matches the local package
		chartup verify tidb-v1.0.0.tgz tidb/tidb-v1.0.0.tgz`)
)

func NewVerifyOptions(streams iooption.IOStreams) *VerifyOptions {
	return &VerifyOptions{
		IOStreams: streams,
	}
}

func NewVerifyCommand(o *VerifyOptions) *cobra.Command {
	return &cobra.Command{
		Use:                   "verify LOCAL_FILE REMOTE_NAME",
		DisableFlagsInUseLine: true,
		Short:                 "Verify a published object against a local file",
		Long:                  verifyLong,
		Example:               verifyExample,
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

func (o *VerifyOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected LOCAL_FILE and REMOTE_NAME arguments, got %d", len(args))
	}
	o.LocalFile = args[0]
	o.RemoteName = args[1]
	return nil
}

func (o *VerifyOptions) Validate() error {
	if o.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		o.cfg = cfg
	}
	return nil
}

func (o *VerifyOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := o.provider
	if provider == nil {
		p, err := storage.NewProvider(ctx, o.cfg, nil)
		if err != nil {
			return err
		}
		provider = p
	}

	u := uploader.New(provider, o.cfg.Credentials.BucketName, o.cfg.PublicHost, o.ErrOut)
	if err := u.Verify(ctx, o.LocalFile, o.RemoteName); err != nil {
		return err
	}

	fmt.Fprintf(o.Out, "%s matches %s\n", o.RemoteName, o.LocalFile)
	return nil
}
