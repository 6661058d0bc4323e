// Package access grants team and user permissions across repositories.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"orgops/pkg/github"
	"orgops/pkg/workflow"
)

// Granter applies permission grants idempotently: the current permission is read first
// and the grant is only sent when it differs.
type Granter struct {
	client github.APIClient
	loop   *workflow.Loop
	logger *slog.Logger

	DryRun bool
}

// NewGranter creates a granter that walks repositories with loop
func NewGranter(client github.APIClient, loop *workflow.Loop, logger *slog.Logger) *Granter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loop == nil {
		loop = workflow.NewLoop(nil, logger)
	}

	return &Granter{
		client: client,
		loop:   loop,
		logger: logger,
	}
}

// GrantTeam gives a team the permission on every repository
func (g *Granter) GrantTeam(ctx context.Context, org, teamSlug, permission string, repos []github.Repository, results *workflow.Results) error {
	role, err := normalize(permission)
	if err != nil {
		return err
	}

	if _, err := g.client.GetTeam(ctx, org, teamSlug); err != nil {
		return fmt.Errorf("team %s/%s: %w", org, teamSlug, err)
	}

	return g.loop.Run(ctx, repos, results, func(ctx context.Context, repo github.Repository) error {
		return g.grantTeam(ctx, org, teamSlug, role, repo, results)
	})
}

func (g *Granter) grantTeam(ctx context.Context, org, teamSlug, role string, repo github.Repository, results *workflow.Results) error {
	current, err := g.client.GetTeamRepoPermission(ctx, org, teamSlug, repo.Owner, repo.Name)
	if err != nil {
		return fmt.Errorf("reading team %s permission: %w", teamSlug, err)
	}

	if github.SamePermission(current, role) {
		results.AddSkipped(repo.FullName, workflow.ReasonAlreadyGranted)
		return nil
	}

	change := changeLine("team "+teamSlug, current, role)
	if g.DryRun {
		g.logger.Info("dry run: would grant", "repo", repo.FullName, "change", change)
		results.AddPlanned(repo.FullName, change)
		return nil
	}

	if err := g.client.AddTeamAccess(ctx, repo.Owner, repo.Name, github.TeamAccess{TeamSlug: teamSlug, Permission: role}); err != nil {
		return fmt.Errorf("granting team %s: %w", teamSlug, err)
	}

	g.logger.Info("granted", "repo", repo.FullName, "change", change)
	results.AddUpdated(repo.FullName, change)
	return nil
}

// GrantUsers gives each user the permission on every repository
func (g *Granter) GrantUsers(ctx context.Context, users []string, permission string, repos []github.Repository, results *workflow.Results) error {
	role, err := normalize(permission)
	if err != nil {
		return err
	}

	users = cleanUsers(users)
	if len(users) == 0 {
		return fmt.Errorf("no users given")
	}

	return g.loop.Run(ctx, repos, results, func(ctx context.Context, repo github.Repository) error {
		return g.grantUsers(ctx, users, role, repo, results)
	})
}

func (g *Granter) grantUsers(ctx context.Context, users []string, role string, repo github.Repository, results *workflow.Results) error {
	var pending, changes []string

	for _, user := range users {
		current, err := g.client.GetUserPermission(ctx, repo.Owner, repo.Name, user)
		if err != nil {
			return fmt.Errorf("reading %s permission: %w", user, err)
		}
		if github.SamePermission(current, role) {
			continue
		}
		pending = append(pending, user)
		changes = append(changes, changeLine(user, current, role))
	}

	if len(pending) == 0 {
		results.AddSkipped(repo.FullName, workflow.ReasonAlreadyGranted)
		return nil
	}

	if g.DryRun {
		g.logger.Info("dry run: would grant", "repo", repo.FullName, "changes", changes)
		results.AddPlanned(repo.FullName, changes...)
		return nil
	}

	for _, user := range pending {
		if err := g.client.AddCollaborator(ctx, repo.Owner, repo.Name, user, role); err != nil {
			return fmt.Errorf("granting %s: %w", user, err)
		}
	}

	g.logger.Info("granted", "repo", repo.FullName, "changes", changes)
	results.AddUpdated(repo.FullName, strings.Join(changes, "; "))
	return nil
}

func normalize(permission string) (string, error) {
	if _, err := github.APIPermission(permission); err != nil {
		return "", err
	}
	return github.RoleName(permission), nil
}

// cleanUsers trims, strips a leading @ and drops duplicates
func cleanUsers(users []string) []string {
	seen := make(map[string]bool, len(users))
	out := make([]string, 0, len(users))
	for _, u := range users {
		u = strings.TrimPrefix(strings.TrimSpace(u), "@")
		if u == "" || seen[strings.ToLower(u)] {
			continue
		}
		seen[strings.ToLower(u)] = true
		out = append(out, u)
	}
	return out
}

// changeLine describes a grant, flagging one that lowers the current role
func changeLine(subject, current, role string) string {
	line := fmt.Sprintf("%s: %s -> %s", subject, current, role)
	if github.PermissionRank(role) < github.PermissionRank(current) {
		line += " (downgrade)"
	}
	return line
}
