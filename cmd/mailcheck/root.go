package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cruxstack/disposable-email-checker-go/internal/checker"
	"github.com/cruxstack/disposable-email-checker-go/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRootCmd() *cobra.Command {
	var (
		jsonOut      bool
		includeLocal bool
		policyPath   string
		envFile      string
	)

	cmd := &cobra.Command{
		Use:           "mailcheck [address]",
		Short:         "Check whether an email address belongs to a disposable provider",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(envFile); err == nil {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("failed to load %s: %w", envFile, err)
				}
			}

			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("include-local") {
				cfg.AppVoteIncludeLocal = includeLocal
			}
			if policyPath != "" {
				cfg.AppVerdictPolicyPath = policyPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{Level: log.Level(cfg.AppLogLevel)})
			slog.SetDefault(slog.New(logger))

			raw := ""
			if len(args) > 0 {
				raw = args[0]
			} else {
				raw, err = prompt(cmd.InOrStdin(), cmd.ErrOrStderr(), isTerminal(cmd.InOrStdin()))
				if err != nil {
					return err
				}
			}

			chk, err := checker.New(cfg)
			if err != nil {
				return err
			}

			report, err := chk.Check(cmd.Context(), raw)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return writeReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full report as JSON")
	cmd.Flags().BoolVar(&includeLocal, "include-local", false, "let local checks vote (overrides APP_VOTE_INCLUDE_LOCAL)")
	cmd.Flags().StringVar(&policyPath, "policy", "", "path to a Rego verdict policy")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load when present")

	return cmd
}

// prompt reads one address from in. The prompt text is only shown to an
// interactive terminal.
func prompt(in io.Reader, out io.Writer, interactive bool) (string, error) {
	if interactive {
		fmt.Fprint(out, "Enter an email address: ")
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read address: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
