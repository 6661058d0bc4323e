package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"orgops/pkg/packages"
	"orgops/pkg/workflow"
)

var (
	packagesType   string
	packagesFilter string
	packagesAll    bool
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Organization package commands",
}

var packagesDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete organization packages",
	Long: `Delete every organization package of a type whose name matches --filter.
Use --all to delete every package of the type.

Package deletion needs GITHUB_PAT, a classic personal access token with the
read:packages and delete:packages scopes.

Examples:
  orgops packages delete --type container --filter '-preview$' --dry-run`,
	RunE: runPackagesDelete,
}

func init() {
	packagesDeleteCmd.Flags().StringVar(&packagesType, "type", "container", "Package type: "+strings.Join(packages.Types, ", "))
	packagesDeleteCmd.Flags().StringVar(&packagesFilter, "filter", "", "Regular expression matched against package names")
	packagesDeleteCmd.Flags().BoolVar(&packagesAll, "all", false, "Delete every package of the type")
	packagesDeleteCmd.MarkFlagsMutuallyExclusive("filter", "all")
	packagesDeleteCmd.MarkFlagsOneRequired("filter", "all")
	packagesCmd.AddCommand(packagesDeleteCmd)
}

func runPackagesDelete(cmd *cobra.Command, _ []string) error {
	if !packages.ValidType(packagesType) {
		return fmt.Errorf("unknown package type %q (use one of %s)", packagesType, strings.Join(packages.Types, ", "))
	}

	s, err := newSession(cmd.Context(), sessionOptions{command: "packages", requireOrg: true, usePAT: true})
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("📦 Deleting %s packages in %s\n", packagesType, s.org)

	loop, done := s.loop(0)
	deleter := packages.NewDeleter(s.client, loop, s.logger)
	deleter.DryRun = dryRun

	results := workflow.NewResults()
	err = deleter.Delete(cmd.Context(), s.org, packagesType, packagesFilter, results)
	done()
	if err != nil {
		return err
	}

	return finish(cmd.OutOrStdout(), "Packages", results)
}
