package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"orgops/pkg/fuzzy"
	"orgops/pkg/github"
	"orgops/pkg/workflow"
)

// prFlags are shared by the commands that propose changes through pull requests
type prFlags struct {
	selection      workflow.Selection
	noSkipExisting bool
	pick           bool
}

func addPRFlags(cmd *cobra.Command, f *prFlags) {
	addSelectionFlags(cmd, &f.selection)
	cmd.Flags().BoolVar(&f.noSkipExisting, "no-skip-existing-pr", false, "Close an open pull request on the branch and open a new one")
	cmd.Flags().BoolVar(&f.pick, "select", false, "Pick one repository interactively from the selection")
}

// selectRepositories resolves the selection flags and, with --select, narrows the
// result to one interactively chosen repository
func selectRepositories(ctx context.Context, s *session, f *prFlags, picker fuzzy.Selector) ([]github.Repository, error) {
	repos, err := workflow.SelectRepositories(ctx, s.client, s.org, f.selection)
	if err != nil {
		return nil, err
	}

	if f.pick {
		return pickRepository(picker, repos)
	}
	return repos, nil
}

func pickRepository(picker fuzzy.Selector, repos []github.Repository) ([]github.Repository, error) {
	if err := picker.SetOptions(fuzzy.RepositoryOptions(repos)); err != nil {
		return nil, err
	}

	name, err := picker.Select()
	if err != nil {
		return nil, fmt.Errorf("repository selection: %w", err)
	}

	for _, r := range repos {
		if r.FullName == name {
			return []github.Repository{r}, nil
		}
	}
	return nil, fmt.Errorf("selected repository %s is not in the selection", name)
}

// runMutations applies one pull request mutation per repository. build returns false
// when a repository needs no mutation; it records the skip itself.
func runMutations(ctx context.Context, s *session, f *prFlags, repos []github.Repository, results *workflow.Results,
	build func(ctx context.Context, repo github.Repository) (workflow.Mutation, bool, error)) error {
	loop, done := s.loop(len(repos))
	defer done()

	mutator := workflow.NewMutator(s.client, s.logger)
	mutator.DryRun = dryRun
	mutator.SkipExistingPR = !f.noSkipExisting

	return loop.Run(ctx, repos, results, func(ctx context.Context, repo github.Repository) error {
		mutation, ok, err := build(ctx, repo)
		if err != nil || !ok {
			return err
		}
		return mutator.Apply(ctx, repo, mutation, results)
	})
}
