// Package maintainers derives a MAINTAINERS.md file from repository access.
package maintainers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"orgops/pkg/github"
)

// DefaultPermissions are the roles that make a user or team a maintainer
var DefaultPermissions = []string{github.RoleMaintain, github.RoleAdmin}

// Options controls who counts as a maintainer
type Options struct {
	Permissions  []string
	ExcludeUsers []string
}

// User is a collaborator with a maintainer role
type User struct {
	Login      string
	Permission string
}

// Team is a team with a maintainer role and its members
type Team struct {
	Slug       string
	Name       string
	Permission string
	Members    []string
}

// Maintainers of one repository
type Maintainers struct {
	Teams []Team
	Users []User
}

// Empty reports whether no maintainer was found
func (m *Maintainers) Empty() bool {
	return len(m.Teams) == 0 && len(m.Users) == 0
}

// Collect gathers the direct collaborators and teams whose role on the repository is in
// opts.Permissions.
func Collect(ctx context.Context, client github.APIClient, org string, repo github.Repository, opts Options) (*Maintainers, error) {
	roles := roleSet(opts.Permissions)
	excluded := make(map[string]bool, len(opts.ExcludeUsers))
	for _, u := range opts.ExcludeUsers {
		excluded[strings.ToLower(u)] = true
	}

	collaborators, err := client.ListCollaborators(ctx, repo.Owner, repo.Name, "direct")
	if err != nil {
		return nil, fmt.Errorf("listing collaborators: %w", err)
	}

	result := &Maintainers{}

	for _, c := range collaborators {
		if excluded[strings.ToLower(c.Username)] || !roles[github.RoleName(c.Permission)] {
			continue
		}
		result.Users = append(result.Users, User{Login: c.Username, Permission: github.RoleName(c.Permission)})
	}

	teams, err := client.ListTeamAccess(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	for _, t := range teams {
		if !roles[github.RoleName(t.Permission)] {
			continue
		}

		members, err := client.ListTeamMembers(ctx, org, t.TeamSlug)
		if err != nil {
			return nil, fmt.Errorf("listing members of team %s: %w", t.TeamSlug, err)
		}

		kept := make([]string, 0, len(members))
		for _, m := range members {
			if !excluded[strings.ToLower(m)] {
				kept = append(kept, m)
			}
		}
		sort.Strings(kept)

		result.Teams = append(result.Teams, Team{
			Slug:       t.TeamSlug,
			Name:       t.TeamName,
			Permission: github.RoleName(t.Permission),
			Members:    kept,
		})
	}

	sort.Slice(result.Teams, func(i, j int) bool { return result.Teams[i].Slug < result.Teams[j].Slug })
	sort.Slice(result.Users, func(i, j int) bool {
		return strings.ToLower(result.Users[i].Login) < strings.ToLower(result.Users[j].Login)
	})

	return result, nil
}

func roleSet(permissions []string) map[string]bool {
	if len(permissions) == 0 {
		permissions = DefaultPermissions
	}
	set := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		set[github.RoleName(p)] = true
	}
	return set
}

// Render produces the MAINTAINERS.md content. Output depends only on its inputs, so a
// regenerated file for unchanged access is byte-identical.
func Render(org string, repo github.Repository, m *Maintainers) string {
	var b strings.Builder

	b.WriteString("# Maintainers\n\n")
	fmt.Fprintf(&b, "This file lists the maintainers of `%s`. It is generated from repository access; change team or collaborator permissions instead of editing it.\n", repo.FullName)

	if len(m.Teams) > 0 {
		b.WriteString("\n## Teams\n\n")
		b.WriteString("| Team | Role | Members |\n")
		b.WriteString("|------|------|---------|\n")
		for _, t := range m.Teams {
			members := make([]string, 0, len(t.Members))
			for _, login := range t.Members {
				members = append(members, "@"+login)
			}
			fmt.Fprintf(&b, "| @%s/%s | %s | %s |\n", org, t.Slug, t.Permission, strings.Join(members, ", "))
		}
	}

	if len(m.Users) > 0 {
		b.WriteString("\n## Individuals\n\n")
		b.WriteString("| User | Role |\n")
		b.WriteString("|------|------|\n")
		for _, u := range m.Users {
			fmt.Fprintf(&b, "| @%s | %s |\n", u.Login, u.Permission)
		}
	}

	return b.String()
}

// Transform returns a transform that replaces the file with rendered. It reports no
// change when the file already holds exactly that content.
func Transform(rendered string) func(path, content string) (string, bool) {
	return func(_ string, content string) (string, bool) {
		if content == rendered {
			return content, false
		}
		return rendered, true
	}
}
