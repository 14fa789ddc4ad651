package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/chartup/internal/config"
	"github.com/tomasbasham/chartup/internal/storage"
	"github.com/tomasbasham/chartup/internal/uploader"
)

type UploadOptions struct {
	cfg      *config.Config
	provider storage.Provider

	LocalFile  string
	RemoteName string
	TTL        time.Duration
	Progress   bool

	iooption.IOStreams
}

var (
	uploadLong = templates.LongDesc(`
		Upload a single local file to the configured bucket under the given
		remote name.

		The upload is authorized by a short-lived token scoped to the
		destination object. Once the service acknowledges the upload, the
		stored key and content hash are checked against the requested name
		and the local file's bytes; a mismatch is fatal. On success the
		artefact's public URL is printed as the final line of output.

		Credentials are read from CHARTUP_ACCESS_KEY, CHARTUP_SECRET_KEY and
		CHARTUP_BUCKET_NAME. All three are required.`)

	uploadExample = templates.Examples(`
		# Publish a chart package
		chartup upload tidb-v1.0.0.tgz tidb/tidb-v1.0.0.tgz

		# Publish under a different name with a ten minute token
		chartup upload video.mp4 videos/demo.mp4 --ttl 10m`)
)

func NewUploadOptions(streams iooption.IOStreams) *UploadOptions {
	return &UploadOptions{
		IOStreams: streams,
	}
}

func NewUploadCommand(o *UploadOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "upload LOCAL_FILE REMOTE_NAME",
		DisableFlagsInUseLine: true,
		Short:                 "Upload a file and print its public URL",
		Long:                  uploadLong,
		Example:               uploadExample,
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

	// Add persistent config flags.
	pflags := cmd.PersistentFlags()

	pflags.DurationVarP(&o.TTL, "ttl", "t", time.Hour, "Upload token lifetime")
	pflags.BoolVarP(&o.Progress, "progress", "p", false, "Print transfer progress")

	return cmd
}

func (o *UploadOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected LOCAL_FILE and REMOTE_NAME arguments, got %d", len(args))
	}
	o.LocalFile = args[0]
	o.RemoteName = args[1]
	return nil
}

func (o *UploadOptions) Validate() error {
	if o.TTL <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if o.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		o.cfg = cfg
	}
	return nil
}

func (o *UploadOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := o.provider
	if provider == nil {
		var progress storage.ProgressFunc
		if o.Progress {
			progress = func(transferred, total int64) {
				fmt.Fprintln(o.ErrOut, storage.FormatProgress(transferred, total))
			}
		}

		p, err := storage.NewProvider(ctx, o.cfg, progress)
		if err != nil {
			return err
		}
		provider = p
	}

	u := uploader.New(provider, o.cfg.Credentials.BucketName, o.cfg.PublicHost, o.ErrOut)
	if _, err := u.Upload(ctx, o.LocalFile, o.RemoteName, o.TTL); err != nil {
		return err
	}

	fmt.Fprintln(o.Out, u.PublicURL(o.RemoteName))
	return nil
}
