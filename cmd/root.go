// Package cmd implements the livewatch command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/smazurov/livewatch/internal/config"
	"github.com/smazurov/livewatch/internal/launch"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the livewatch command tree. Flags are shared by every
// subcommand so "livewatch args" shows exactly what "livewatch" would run.
func NewRootCmd() *cobra.Command {
	opts := DefaultOptions()

	root := &cobra.Command{
		Use:   "livewatch",
		Short: "Keep an FFmpeg live stream running",
		Long: `Runs FFmpeg streaming a looped input file to an RTMP ingest and restarts it ` +
			`after a fixed delay whenever it exits. SIGINT or SIGTERM stops the encoder and exits.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := opts.load(c); err != nil {
				return err
			}
			return run(c.Context(), c, &opts)
		},
	}

	bindFlags(root.PersistentFlags(), &opts)
	root.AddCommand(newArgsCmd(&opts), newVersionCmd())
	return root
}

// Execute runs the root command and prints a returned error to stderr.
func Execute() error {
	root := NewRootCmd()
	err := root.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}

// load applies the dotenv file, then the config file, environment and flags.
func (o *Options) load(c *cobra.Command) error {
	if o.EnvFile != "" {
		if err := godotenv.Load(o.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", o.EnvFile, err)
		}
	}
	return config.LoadConfig(o, c)
}

// streamKey reads the stream key from the configured environment variable.
func (o *Options) streamKey() (string, error) {
	key := os.Getenv(o.StreamKeyEnv)
	if key == "" {
		return "", &launch.ConfigurationError{Field: o.StreamKeyEnv, Reason: "not set"}
	}
	return key, nil
}
