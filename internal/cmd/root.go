package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	configPath string
	orgFlag    string
	dryRun     bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "orgops",
	Short: "Automate administrative operations on a GitHub organization",
	Long: `orgops automates repetitive administration of one GitHub organization.

It provisions hackathon repositories from a template, grants team and user
permissions across repositories, keeps MAINTAINERS.md files and README badges
current through pull requests, and deletes organization packages.

Repositories are processed one at a time. A failure in one repository is logged
and reported in the run summary without stopping the others.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var runErr *runFailedError
		if !errors.As(err, &runErr) {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default ~/.orgops/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&orgFlag, "org", "", "GitHub organization (overrides github.organization)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show planned changes without writing anything")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides logging.level)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(rateLimitCmd)
	rootCmd.AddCommand(hackathonCmd)
	rootCmd.AddCommand(accessCmd)
	rootCmd.AddCommand(maintainersCmd)
	rootCmd.AddCommand(badgesCmd)
	rootCmd.AddCommand(packagesCmd)
}
