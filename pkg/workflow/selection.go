package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"orgops/pkg/github"
)

// Selection chooses which repositories a bulk command touches. Repo and Filter are
// mutually exclusive; with neither set every non-archived repository is selected.
type Selection struct {
	// Repo is a single repository as org/name or name
	Repo string
	// Filter is a regular expression matched against repository names
	Filter string
}

// Validate checks the selection flags
func (s Selection) Validate() error {
	if s.Repo != "" && s.Filter != "" {
		return fmt.Errorf("--repo and --filter cannot be used together")
	}
	if s.Filter != "" {
		if _, err := regexp.Compile(s.Filter); err != nil {
			return fmt.Errorf("invalid --filter expression %q: %w", s.Filter, err)
		}
	}
	return nil
}

// SelectRepositories resolves a selection against an organization
func SelectRepositories(ctx context.Context, client github.APIClient, org string, sel Selection) ([]github.Repository, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	if sel.Repo != "" {
		owner, name := splitRepo(org, sel.Repo)
		repo, err := client.GetRepository(ctx, owner, name)
		if err != nil {
			return nil, fmt.Errorf("getting repository %s/%s: %w", owner, name, err)
		}
		if repo.Archived {
			return nil, fmt.Errorf("repository %s is archived", repo.FullName)
		}
		return []github.Repository{*repo}, nil
	}

	repos, err := client.ListOrgRepositories(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("listing repositories for %s: %w", org, err)
	}

	if sel.Filter == "" {
		return repos, nil
	}

	re := regexp.MustCompile(sel.Filter)
	selected := make([]github.Repository, 0, len(repos))
	for _, repo := range repos {
		if re.MatchString(repo.Name) {
			selected = append(selected, repo)
		}
	}

	return selected, nil
}

func splitRepo(org, repo string) (string, string) {
	if owner, name, ok := strings.Cut(repo, "/"); ok {
		return owner, name
	}
	return org, repo
}

// Names returns the full names of repositories, for pickers and logs
func Names(repos []github.Repository) []string {
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.FullName)
	}
	return names
}
