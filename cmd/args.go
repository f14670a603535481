package cmd

import (
	"fmt"

	"github.com/smazurov/livewatch/internal/launch"
	"github.com/spf13/cobra"
)

func newArgsCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "args",
		Short: "Print the encoder command line without running it",
		Long:  `Resolves the configuration the same way the watchdog does and prints the encoder command line with the stream key masked.`,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := opts.load(c); err != nil {
				return err
			}
			key, err := opts.streamKey()
			if err != nil {
				return err
			}

			progressURL := ""
			if opts.ProgressSocket != "" {
				progressURL = "unix://" + opts.ProgressSocket
			}
			spec, err := launch.Build(opts.LaunchConfig(key, progressURL))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.OutOrStdout(), spec.String())
			return err
		},
	}
}
