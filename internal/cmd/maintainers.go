package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"orgops/pkg/fuzzy"
	"orgops/pkg/github"
	"orgops/pkg/maintainers"
	"orgops/pkg/workflow"
)

var maintainersFlags prFlags

var maintainersCmd = &cobra.Command{
	Use:   "maintainers",
	Short: "Propose MAINTAINERS.md generated from repository access",
	Long: `Collect the direct collaborators and teams holding a maintainer role
(maintainers.permissions, default maintain and admin) on each selected repository,
render MAINTAINERS.md and open a pull request when it differs from the file on
the default branch.

Examples:
  orgops maintainers --filter '^svc-'
  orgops maintainers --select
  orgops maintainers --repo acme/app --no-skip-existing-pr`,
	RunE: runMaintainers,
}

func init() {
	addPRFlags(maintainersCmd, &maintainersFlags)
}

const maintainersBody = `This pull request updates %s from the collaborators and teams that hold a maintainer role (%v) on this repository.

The file is generated. To change it, change repository access and run orgops again.`

func runMaintainers(cmd *cobra.Command, _ []string) error {
	if err := maintainersFlags.selection.Validate(); err != nil {
		return err
	}

	s, err := newSession(cmd.Context(), sessionOptions{command: "maintainers", requireOrg: true})
	if err != nil {
		return err
	}
	defer s.Close()

	repos, err := selectRepositories(cmd.Context(), s, &maintainersFlags, fuzzy.NewFzf("🔍 Select repository:"))
	if err != nil {
		return err
	}
	fmt.Printf("👥 Generating %s for %d repository(ies)\n", s.cfg.Maintainers.File, len(repos))

	mc := s.cfg.Maintainers
	opts := maintainers.Options{Permissions: mc.Permissions, ExcludeUsers: mc.ExcludeUsers}

	results := workflow.NewResults()
	err = runMutations(cmd.Context(), s, &maintainersFlags, repos, results, func(ctx context.Context, repo github.Repository) (workflow.Mutation, bool, error) {
		found, err := maintainers.Collect(ctx, s.client, s.org, repo, opts)
		if err != nil {
			return workflow.Mutation{}, false, err
		}
		if found.Empty() {
			s.logger.Info("no maintainers found", "repo", repo.FullName)
			results.AddSkipped(repo.FullName, workflow.ReasonNoMatch)
			return workflow.Mutation{}, false, nil
		}

		return workflow.Mutation{
			Files:         []workflow.FileTarget{{Path: mc.File, CreateIfMissing: true}},
			Transform:     maintainers.Transform(maintainers.Render(s.org, repo, found)),
			Branch:        mc.Branch,
			CommitMessage: "Update " + mc.File,
			Title:         "Update " + mc.File,
			Body:          fmt.Sprintf(maintainersBody, mc.File, mc.Permissions),
		}, true, nil
	})
	if err != nil {
		return err
	}

	return finish(cmd.OutOrStdout(), "Maintainers", results)
}
