package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"orgops/pkg/access"
	"orgops/pkg/github"
	"orgops/pkg/workflow"
)

var (
	accessTeam       string
	accessRole       string
	accessUsers      []string
	accessPermission string
	accessSelection  workflow.Selection
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Grant team and user permissions on repositories",
	Long: `Grant a team or users a permission on one repository or on every repository
matching a filter. The current permission is read first; repositories where it
already matches are skipped.`,
}

var accessTeamCmd = &cobra.Command{
	Use:   "team",
	Short: "Grant a team a permission",
	Long: `Grant a team a permission on the selected repositories.

Examples:
  orgops access team --team platform --role maintain --filter '^svc-'
  orgops access team --team docs --role push --repo acme/handbook`,
	RunE: runAccessTeam,
}

var accessUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Grant users a permission",
	Long: `Grant one or more users a permission on the selected repositories.

Examples:
  orgops access users --users alice,bob --permission triage --filter '^web-'`,
	RunE: runAccessUsers,
}

func addSelectionFlags(cmd *cobra.Command, sel *workflow.Selection) {
	cmd.Flags().StringVar(&sel.Repo, "repo", "", "Single repository (org/name or name)")
	cmd.Flags().StringVar(&sel.Filter, "filter", "", "Regular expression matched against repository names")
	cmd.MarkFlagsMutuallyExclusive("repo", "filter")
}

func init() {
	accessTeamCmd.Flags().StringVar(&accessTeam, "team", "", "Team slug")
	accessTeamCmd.Flags().StringVar(&accessRole, "role", "", "Permission: pull, triage, push, maintain or admin")
	_ = accessTeamCmd.MarkFlagRequired("team")
	_ = accessTeamCmd.MarkFlagRequired("role")
	addSelectionFlags(accessTeamCmd, &accessSelection)

	accessUsersCmd.Flags().StringSliceVar(&accessUsers, "users", nil, "Comma-separated GitHub logins")
	accessUsersCmd.Flags().StringVar(&accessPermission, "permission", "", "Permission: pull, triage, push, maintain or admin")
	_ = accessUsersCmd.MarkFlagRequired("users")
	_ = accessUsersCmd.MarkFlagRequired("permission")
	addSelectionFlags(accessUsersCmd, &accessSelection)

	accessCmd.AddCommand(accessTeamCmd)
	accessCmd.AddCommand(accessUsersCmd)
}

func runAccessTeam(cmd *cobra.Command, _ []string) error {
	return runAccess(cmd, "access-team", func(g *access.Granter, s *session, results *workflow.Results, repos []github.Repository) error {
		return g.GrantTeam(cmd.Context(), s.org, accessTeam, accessRole, repos, results)
	})
}

func runAccessUsers(cmd *cobra.Command, _ []string) error {
	return runAccess(cmd, "access-users", func(g *access.Granter, _ *session, results *workflow.Results, repos []github.Repository) error {
		return g.GrantUsers(cmd.Context(), accessUsers, accessPermission, repos, results)
	})
}

func runAccess(cmd *cobra.Command, command string, grant func(*access.Granter, *session, *workflow.Results, []github.Repository) error) error {
	if err := accessSelection.Validate(); err != nil {
		return err
	}

	s, err := newSession(cmd.Context(), sessionOptions{command: command, requireOrg: true})
	if err != nil {
		return err
	}
	defer s.Close()

	repos, err := workflow.SelectRepositories(cmd.Context(), s.client, s.org, accessSelection)
	if err != nil {
		return err
	}
	fmt.Printf("🔐 %d repository(ies) selected in %s\n", len(repos), s.org)

	loop, done := s.loop(len(repos))
	granter := access.NewGranter(s.client, loop, s.logger)
	granter.DryRun = dryRun

	results := workflow.NewResults()
	err = grant(granter, s, results, repos)
	done()
	if err != nil {
		return err
	}

	return finish(cmd.OutOrStdout(), "Access", results)
}
