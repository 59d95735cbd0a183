package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/passd/pkg/config"
	"github.com/glorpus-work/passd/pkg/gpg"
	"github.com/glorpus-work/passd/pkg/index"
	"github.com/glorpus-work/passd/pkg/store"
)

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the store setup",
		Long: `Check that gpg can be run, the store directory exists and is
initialized with a .gpg-id, and the index database can be opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}

	return cmd
}

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func runDoctor(cmd *cobra.Command) error {
	s, cfg, err := openStore()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	checks := []check{
		{name: "gpg", run: func(ctx context.Context) (string, error) {
			return checkGPG(ctx, cfg)
		}},
		{name: "store", run: func(context.Context) (string, error) {
			return checkStoreDir(s)
		}},
		{name: "recipient", run: func(ctx context.Context) (string, error) {
			return s.Recipient(ctx, "")
		}},
		{name: "index", run: func(ctx context.Context) (string, error) {
			return checkIndex(ctx, cfg)
		}},
	}

	failed := 0
	for _, c := range checks {
		detail, err := c.run(ctx)
		if err != nil {
			failed++
			printCheck(out, "FAIL", c.name, err.Error())
			continue
		}
		printCheck(out, "ok", c.name, detail)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	return nil
}

func printCheck(out io.Writer, status, name, detail string) {
	_, _ = fmt.Fprintf(out, "[%-4s] %-10s %s\n", status, name, detail)
}

func checkGPG(ctx context.Context, cfg *config.Config) (string, error) {
	runner := gpg.NewExecRunner(cfg.GPGBinary)
	v, err := gpg.ProbeVersion(ctx, runner)
	if err != nil {
		return "", err
	}
	detail := fmt.Sprintf("%s %s", runner.Binary(), v)
	if !gpg.SupportsPinentryMode(v) {
		detail += " (no --pinentry-mode support, non-interactive reads may prompt)"
	}
	return detail, nil
}

func checkStoreDir(s *store.Store) (string, error) {
	dir := s.Options().Directory
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}
	return dir, nil
}

func checkIndex(ctx context.Context, cfg *config.Config) (string, error) {
	idx, err := index.Open(cfg.IndexPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = idx.Close() }()

	tables, err := idx.Tables(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%d tables)", cfg.IndexPath, len(tables)), nil
}
