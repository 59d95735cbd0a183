package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewLsCmd creates the ls command.
func NewLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [DIR]",
		Short: "List a store directory",
		Long:  "List the immediate children of DIR (default: the store root). Directories end in a slash.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runLs(cmd, dir)
		},
	}

	return cmd
}

func runLs(cmd *cobra.Command, dir string) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}

	entries, err := s.List(cmd.Context(), dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	out := cmd.OutOrStdout()
	for _, entry := range entries {
		name := entry.Name
		if entry.IsDir() {
			name += "/"
		}
		if _, err := fmt.Fprintln(out, name); err != nil {
			return err
		}
	}
	return nil
}

// NewMkdirCmd creates the mkdir command.
func NewMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir DIR",
		Short: "Create a store directory and its parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore()
			if err != nil {
				return err
			}
			return s.MakeDir(cmd.Context(), args[0])
		},
	}
}

// NewRmdirCmd creates the rmdir command.
func NewRmdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir DIR",
		Short: "Remove a store directory recursively",
		Long:  "Remove DIR and everything below it. Removing a missing directory fails.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openStore()
			if err != nil {
				return err
			}
			return s.RemoveDir(cmd.Context(), args[0])
		},
	}
}

// NewStatCmd creates the stat command.
func NewStatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat FILE",
		Short: "Show metadata of a file in the store",
		Long:  "Show metadata of FILE, a path relative to the store root. No .gpg suffix is added.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStat(cmd, args[0])
		},
	}

	return cmd
}

func runStat(cmd *cobra.Command, path string) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}

	info, err := s.Stat(cmd.Context(), path)
	if err != nil {
		return err
	}

	tabWriter := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintf(tabWriter, "Name:\t%s\n", info.Name())
	_, _ = fmt.Fprintf(tabWriter, "Size:\t%d\n", info.Size())
	_, _ = fmt.Fprintf(tabWriter, "Mode:\t%s\n", info.Mode())
	_, _ = fmt.Fprintf(tabWriter, "Modified:\t%s\n", info.ModTime().Format(time.RFC3339))
	return tabWriter.Flush()
}
