// Package cli implements the passd command line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/passd/internal/tracing"
)

// Global flag values shared by all subcommands.
var (
	configPath string
	verbose    bool
	traceSpans bool

	shutdownTracing tracing.ShutdownFunc
)

// NewRootCmd creates the passd command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passd",
		Short: "Encrypted password store backend",
		Long: `passd manages a pass compatible password store:
- secrets are individually encrypted files under a directory tree
- each secret is encrypted for the recipient in the nearest .gpg-id
- encryption and decryption are delegated to gpg`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			shutdown, err := tracing.Setup(traceSpans, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			shutdownTracing = shutdown
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return flushTracing(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&traceSpans, "trace", false, "write trace spans to stderr")

	cmd.AddCommand(
		NewShowCmd(),
		NewInsertCmd(),
		NewRmCmd(),
		NewLsCmd(),
		NewMkdirCmd(),
		NewRmdirCmd(),
		NewStatCmd(),
		NewDoctorCmd(),
		NewAttrCmd(),
		NewBackupCmd(),
		NewHookCmd(),
		NewConfigCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command and reports failures on stderr. It returns
// the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		// PersistentPostRunE does not run after a failed command
		_ = flushTracing(context.Background())
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), FormatError(err))
		return 1
	}
	return 0
}

func flushTracing(ctx context.Context) error {
	if shutdownTracing == nil {
		return nil
	}
	shutdown := shutdownTracing
	shutdownTracing = nil
	if ctx == nil {
		ctx = context.Background()
	}
	if err := shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to flush traces: %v\n", err)
	}
	return nil
}
