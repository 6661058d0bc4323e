package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"orgops/pkg/config"
	"orgops/pkg/github"
	"orgops/pkg/hackathon"
	"orgops/pkg/workflow"
)

var (
	hackathonTeams []string
	hackathonName  string
)

var hackathonCmd = &cobra.Command{
	Use:   "hackathon",
	Short: "Hackathon provisioning commands",
}

var hackathonCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create one repository and one team per hackathon team",
	Long: `Create a repository from the hackathon template for every team, protect its
default branch, create the team when it does not exist and grant it access.

Teams come from --team or hackathon.teams in the configuration. Repositories are
named <repo_prefix><team-slug>; existing repositories are skipped.

Examples:
  orgops hackathon create
  orgops hackathon create --team "Red Team" --team Blue --dry-run`,
	RunE: runHackathonCreate,
}

func init() {
	hackathonCreateCmd.Flags().StringArrayVar(&hackathonTeams, "team", nil, "Team name (repeatable, overrides hackathon.teams)")
	hackathonCreateCmd.Flags().StringVar(&hackathonName, "name", "", "Hackathon name used in repository descriptions (overrides hackathon.name)")
	hackathonCmd.AddCommand(hackathonCreateCmd)
}

// hackathonOptions maps the hackathon configuration onto provisioner options
func hackathonOptions(cfg *config.Config) hackathon.Options {
	h := cfg.Hackathon
	opts := hackathon.Options{
		Org:            cfg.GitHub.Organization,
		Name:           h.Name,
		Template:       h.Template,
		RepoPrefix:     h.RepoPrefix,
		Private:        h.Private,
		TeamPermission: h.TeamPermission,
		TeamPrivacy:    h.TeamPrivacy,
	}
	if hackathonName != "" {
		opts.Name = hackathonName
	}
	if h.Protection.Enabled {
		opts.Protection = &github.BranchProtectionRule{
			RequiredReviews:     h.Protection.RequiredReviews,
			DismissStaleReviews: h.Protection.DismissStaleReviews,
			EnforceAdmins:       h.Protection.EnforceAdmins,
		}
	}
	return opts
}

func runHackathonCreate(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd.Context(), sessionOptions{command: "hackathon", requireOrg: true})
	if err != nil {
		return err
	}
	defer s.Close()

	teams := hackathonTeams
	if len(teams) == 0 {
		teams = s.cfg.Hackathon.Teams
	}

	loop, done := s.loop(len(teams))
	provisioner := hackathon.NewProvisioner(s.client, hackathonOptions(s.cfg), loop, s.logger)
	provisioner.DryRun = dryRun

	if err := provisioner.Validate(cmd.Context(), teams); err != nil {
		done()
		return fmt.Errorf("hackathon configuration: %w", err)
	}

	fmt.Printf("🏁 Provisioning %d team(s) in %s from %s\n", len(teams), s.org, s.cfg.Hackathon.Template)

	results := workflow.NewResults()
	err = provisioner.Provision(cmd.Context(), teams, results)
	done()
	if err != nil {
		return err
	}

	return finish(cmd.OutOrStdout(), "Hackathon", results)
}
