package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/passd/internal/logger"
	"github.com/glorpus-work/passd/pkg/index"
)

// NewAttrCmd creates the attr command with subcommands. Attributes are
// non-secret metadata about a secret kept in the index.
func NewAttrCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attr",
		Short: "Manage secret attributes",
		Long:  "View and modify the non-secret attributes recorded for a secret",
	}

	cmd.AddCommand(
		newAttrGetCmd(),
		newAttrSetCmd(),
		newAttrRmCmd(),
		newAttrLsCmd(),
	)

	return cmd
}

func attrKey(secret, name string) (string, error) {
	if name == "" || strings.Contains(name, attrSeparator) {
		return "", fmt.Errorf("invalid attribute name %q", name)
	}
	return secret + attrSeparator + name, nil
}

func newAttrGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get SECRET NAME",
		Short: "Print an attribute value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := attrKey(args[0], args[1])
			if err != nil {
				return err
			}
			return withIndex(cmd.Context(), func(ctx context.Context, idx *index.Index) error {
				value, err := idx.Get(ctx, AttributesTable, key)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
				return err
			})
		},
	}
}

// Number of arguments expected by the set command.
const setCommandArgs = 3

func newAttrSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set SECRET NAME VALUE",
		Short: "Set an attribute",
		Args:  cobra.ExactArgs(setCommandArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := attrKey(args[0], args[1])
			if err != nil {
				return err
			}
			return withIndex(cmd.Context(), func(ctx context.Context, idx *index.Index) error {
				if err := idx.Put(ctx, AttributesTable, key, args[2]); err != nil {
					return err
				}
				logger.Success("Attribute set", logger.Fields{"secret": args[0], "name": args[1]})
				return nil
			})
		},
	}
}

func newAttrRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm SECRET NAME",
		Short: "Remove an attribute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := attrKey(args[0], args[1])
			if err != nil {
				return err
			}
			return withIndex(cmd.Context(), func(ctx context.Context, idx *index.Index) error {
				return idx.Delete(ctx, AttributesTable, key)
			})
		},
	}
}

func newAttrLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls SECRET",
		Short: "List the attributes of a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := args[0] + attrSeparator
			return withIndex(cmd.Context(), func(ctx context.Context, idx *index.Index) error {
				keys, err := idx.Keys(ctx, AttributesTable)
				if err != nil {
					return err
				}

				tabWriter := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
				for _, key := range keys {
					name, ok := strings.CutPrefix(key, prefix)
					if !ok || strings.Contains(name, attrSeparator) {
						continue
					}
					value, err := idx.Get(ctx, AttributesTable, key)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", name, value)
				}
				return tabWriter.Flush()
			})
		},
	}
}
