package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/passd/internal/logger"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	var noPrompt bool

	cmd := &cobra.Command{
		Use:   "show PATH",
		Short: "Decrypt and print a secret",
		Long: `Decrypt the secret at PATH and write it to stdout unchanged.

With --no-prompt gpg is told to fail instead of asking for a passphrase.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], !noPrompt)
		},
	}

	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "fail instead of prompting for a passphrase")

	return cmd
}

func runShow(cmd *cobra.Command, path string, canPrompt bool) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}

	value, err := s.Read(cmd.Context(), path, canPrompt)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(value)
	return err
}

// NewInsertCmd creates the insert command.
func NewInsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert PATH",
		Short: "Encrypt stdin into a secret",
		Long: `Read the secret value from stdin and store it encrypted at PATH.

The value is encrypted for the recipient of the nearest .gpg-id marker.
Missing directories are created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(cmd, args[0])
		},
	}

	return cmd
}

func runInsert(cmd *cobra.Command, path string) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}

	value, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read secret from stdin: %w", err)
	}
	if err := s.Write(cmd.Context(), path, value); err != nil {
		return err
	}

	logger.Success("Secret stored", logger.Fields{"path": path})
	return nil
}

// NewRmCmd creates the rm command.
func NewRmCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "rm PATH",
		Short: "Remove a secret",
		Long: `Remove the secret at PATH. Removing a missing secret succeeds.

With --recursive PATH is a directory that is removed with everything below it,
and a missing directory is an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(cmd, args[0], recursive)
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove a directory recursively")

	return cmd
}

func runRm(cmd *cobra.Command, path string, recursive bool) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}

	if recursive {
		err = s.RemoveDir(cmd.Context(), path)
	} else {
		err = s.Delete(cmd.Context(), path)
	}
	if err != nil {
		return err
	}

	logger.Success("Removed", logger.Fields{"path": path})
	return nil
}
