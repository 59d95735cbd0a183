package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/passd/internal/logger"
	"github.com/glorpus-work/passd/pkg/config"
	"github.com/glorpus-work/passd/pkg/errors"
	"github.com/glorpus-work/passd/pkg/fsutil"
	"github.com/glorpus-work/passd/pkg/hooks"
)

// NewHookCmd creates the hook command with subcommands.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage hook scripts",
		Long:  "Create and inspect the tengo scripts run after a secret is written or deleted",
	}

	cmd.AddCommand(
		newHookInitCmd(),
		newHookLsCmd(),
	)

	return cmd
}

func newHookInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init EVENT",
		Short: "Write a hook script template and register it",
		Long: `Write a template script for EVENT into the hooks directory next to the
configuration file and register it under hooks.EVENT.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runHookInit(args[0], force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing script")

	return cmd
}

func runHookInit(event string, force bool) error {
	if !hooks.IsKnownEvent(event) {
		return errors.ErrUnknownHookEventWithName(event)
	}

	cfgPath := getConfigPath()
	scriptPath := filepath.Join(filepath.Dir(cfgPath), HooksDirName, event+HookScriptExt)
	if _, err := os.Stat(scriptPath); err == nil && !force {
		return fmt.Errorf("hook script already exists at %s (use --force to overwrite)", scriptPath)
	}

	if err := fsutil.EnsureFileDir(scriptPath, fsutil.DirModePrivate); err != nil {
		return fmt.Errorf("failed to create hooks directory: %w", err)
	}
	if err := fsutil.WriteFile(scriptPath, []byte(hooks.HookTemplate(event)), fsutil.FileModePrivate); err != nil {
		return fmt.Errorf("failed to write hook script: %w", err)
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.SetValue("hooks."+event, scriptPath); err != nil {
		return err
	}
	if err := cfg.SaveConfig(cfgPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	logger.Success("Hook script created", logger.Fields{"event": event, "path": scriptPath})
	return nil
}

func newHookLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List hook events and their scripts",
		Args:  cobra.NoArgs,
		RunE:  runHookLs,
	}
}

func runHookLs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	executor, err := hooks.LoadScripts(cfg.Hooks)
	if err != nil {
		return fmt.Errorf("failed to load hooks: %w", err)
	}

	tabWriter := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "EVENT\tSCRIPT")
	for _, event := range hooks.Events() {
		script := "-"
		if executor.HasScript(event) {
			script = cfg.Hooks[event]
		}
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", event, script)
	}
	return tabWriter.Flush()
}
