package cli

import (
	"github.com/spf13/cobra"

	"github.com/glorpus-work/passd/internal/logger"
	"github.com/glorpus-work/passd/pkg/backup"
)

// NewBackupCmd creates the backup command with subcommands.
func NewBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive and restore the store",
		Long:  "Create a tar.gz archive of the encrypted store or restore one. Secrets stay encrypted.",
	}

	cmd.AddCommand(
		newBackupCreateCmd(),
		newBackupRestoreCmd(),
	)

	return cmd
}

func newBackupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create ARCHIVE",
		Short: "Write the store to ARCHIVE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore()
			if err != nil {
				return err
			}
			if err := backup.NewManager().Create(cmd.Context(), s.Options().Directory, args[0]); err != nil {
				return err
			}
			logger.Success("Backup created", logger.Fields{"archive": args[0]})
			return nil
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "restore ARCHIVE",
		Short: "Restore ARCHIVE into the store",
		Long: `Extract ARCHIVE into the store directory, or into --dest.
Restored files and directories get the store's configured modes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore()
			if err != nil {
				return err
			}
			opts := s.Options()
			if dest == "" {
				dest = opts.Directory
			}
			if err := backup.NewManager().Restore(cmd.Context(), args[0], dest, opts.DirMode, opts.FileMode); err != nil {
				return err
			}
			logger.Success("Backup restored", logger.Fields{"archive": args[0], "dest": dest})
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "restore into this directory instead of the store")

	return cmd
}
