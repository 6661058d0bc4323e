// Package hackathon provisions one repository and one team per hackathon team from a
// template repository.
package hackathon

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"orgops/pkg/github"
	"orgops/pkg/workflow"
)

const (
	defaultBranchPollAttempts = 10
	defaultBranchPollInterval = 3 * time.Second
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a team name into the slug GitHub would give it
func Slugify(name string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// Options configures a hackathon
type Options struct {
	Org            string
	Name           string
	Template       string
	RepoPrefix     string
	Private        bool
	TeamPermission string
	TeamPrivacy    string

	// Protection is applied to each new repository's default branch when set
	Protection *github.BranchProtectionRule
}

// Entry is the repository and team planned for one hackathon team
type Entry struct {
	Team string
	Slug string
	Repo string
}

// Provisioner creates hackathon repositories and teams
type Provisioner struct {
	client github.APIClient
	opts   Options
	loop   *workflow.Loop
	logger *slog.Logger

	DryRun bool

	sleep        github.Sleeper
	pollAttempts int
	pollInterval time.Duration

	template *github.Repository
}

// NewProvisioner creates a provisioner. loop may be nil.
func NewProvisioner(client github.APIClient, opts Options, loop *workflow.Loop, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loop == nil {
		loop = workflow.NewLoop(nil, logger)
	}
	if opts.TeamPermission == "" {
		opts.TeamPermission = github.RoleWrite
	}
	opts.TeamPermission = github.RoleName(opts.TeamPermission)
	if opts.TeamPrivacy == "" {
		opts.TeamPrivacy = "closed"
	}

	return &Provisioner{
		client:       client,
		opts:         opts,
		loop:         loop,
		logger:       logger,
		sleep:        github.SleepContext,
		pollAttempts: defaultBranchPollAttempts,
		pollInterval: defaultBranchPollInterval,
	}
}

// Validate checks everything that must hold before any repository is created. Its
// errors are fatal to the run.
func (p *Provisioner) Validate(ctx context.Context, teams []string) error {
	var errs github.ValidationErrors

	if p.opts.Org == "" {
		errs.Add("github.organization", "", "organization is required")
	}
	templateOwner, templateName, ok := strings.Cut(p.opts.Template, "/")
	if !ok || templateOwner == "" || templateName == "" {
		errs.Add("hackathon.template", p.opts.Template, "template must be owner/name")
	}
	if _, err := github.APIPermission(p.opts.TeamPermission); err != nil {
		errs.Add("hackathon.team_permission", p.opts.TeamPermission, err.Error())
	}
	if len(teams) == 0 {
		errs.Add("hackathon.teams", "", "at least one team is required")
	}

	seen := make(map[string]string, len(teams))
	for _, team := range teams {
		slug := Slugify(team)
		if slug == "" {
			errs.Add("hackathon.teams", team, "team name has no usable characters")
			continue
		}
		if other, dup := seen[slug]; dup {
			errs.Add("hackathon.teams", team, fmt.Sprintf("maps to the same repository as %q", other))
			continue
		}
		seen[slug] = team
	}

	if errs.HasErrors() {
		return errs
	}

	if _, err := p.client.GetOrganization(ctx, p.opts.Org); err != nil {
		return fmt.Errorf("organization %s: %w", p.opts.Org, err)
	}

	template, err := p.client.GetRepository(ctx, templateOwner, templateName)
	if err != nil {
		return fmt.Errorf("template %s: %w", p.opts.Template, err)
	}
	if !template.IsTemplate {
		return fmt.Errorf("repository %s is not a template repository", p.opts.Template)
	}
	p.template = template

	return nil
}

// Plan returns the repository and team for each team name
func (p *Provisioner) Plan(teams []string) []Entry {
	entries := make([]Entry, 0, len(teams))
	for _, team := range teams {
		slug := Slugify(team)
		entries = append(entries, Entry{
			Team: strings.TrimSpace(team),
			Slug: slug,
			Repo: p.opts.RepoPrefix + slug,
		})
	}
	return entries
}

// Provision creates the repository and team for every team. Validate must have
// succeeded first. A failure affects only its own team.
func (p *Provisioner) Provision(ctx context.Context, teams []string, results *workflow.Results) error {
	if p.template == nil {
		return fmt.Errorf("provisioner not validated")
	}

	entries := p.Plan(teams)
	byRepo := make(map[string]Entry, len(entries))
	repos := make([]github.Repository, 0, len(entries))
	for _, e := range entries {
		byRepo[e.Repo] = e
		repos = append(repos, github.Repository{
			Owner:    p.opts.Org,
			Name:     e.Repo,
			FullName: p.opts.Org + "/" + e.Repo,
		})
	}

	return p.loop.Run(ctx, repos, results, func(ctx context.Context, repo github.Repository) error {
		return p.provisionTeam(ctx, byRepo[repo.Name], results)
	})
}

func (p *Provisioner) provisionTeam(ctx context.Context, entry Entry, results *workflow.Results) error {
	org := p.opts.Org
	fullName := org + "/" + entry.Repo
	log := p.logger.With("team", entry.Team, "repo", fullName)

	_, err := p.client.GetRepository(ctx, org, entry.Repo)
	switch {
	case err == nil:
		log.Info("repository already exists")
		results.AddSkipped(fullName, workflow.ReasonExists)
		return nil
	case !github.IsNotFound(err):
		return fmt.Errorf("checking repository: %w", err)
	}

	if p.DryRun {
		planned := []string{"create repository from " + p.template.FullName}
		if p.opts.Protection != nil {
			planned = append(planned, "protect default branch")
		}
		planned = append(planned, fmt.Sprintf("grant team %s %s", entry.Slug, github.RoleName(p.opts.TeamPermission)))
		results.AddPlanned(fullName, planned...)
		return nil
	}

	description := entry.Team
	if p.opts.Name != "" {
		description = fmt.Sprintf("%s: %s", p.opts.Name, entry.Team)
	}

	repo, err := p.client.CreateFromTemplate(ctx, p.template.Owner, p.template.Name, github.TemplateRequest{
		Owner:       org,
		Name:        entry.Repo,
		Description: description,
		Private:     p.opts.Private,
	})
	if err != nil {
		return fmt.Errorf("creating repository: %w", err)
	}
	log.Info("created repository from template", "template", p.template.FullName)

	if p.opts.Protection != nil {
		branch := repo.DefaultBranch
		if branch == "" {
			branch = p.template.DefaultBranch
		}
		if err := p.waitForBranch(ctx, org, entry.Repo, branch); err != nil {
			return err
		}
		if err := p.client.ProtectBranch(ctx, org, entry.Repo, branch, *p.opts.Protection); err != nil {
			return fmt.Errorf("protecting branch %s: %w", branch, err)
		}
		log.Info("protected default branch", "branch", branch)
	}

	team, err := p.ensureTeam(ctx, entry)
	if err != nil {
		return err
	}

	access := github.TeamAccess{TeamSlug: team.Slug, Permission: p.opts.TeamPermission}
	if err := p.client.AddTeamAccess(ctx, org, entry.Repo, access); err != nil {
		return fmt.Errorf("granting team %s: %w", team.Slug, err)
	}
	log.Info("granted team access", "team_slug", team.Slug, "permission", github.RoleName(p.opts.TeamPermission))

	results.AddUpdated(fullName, repo.HTMLURL)
	return nil
}

// ensureTeam returns the existing team or creates it
func (p *Provisioner) ensureTeam(ctx context.Context, entry Entry) (*github.Team, error) {
	team, err := p.client.GetTeam(ctx, p.opts.Org, entry.Slug)
	if err == nil {
		return team, nil
	}
	if !github.IsNotFound(err) {
		return nil, fmt.Errorf("looking up team %s: %w", entry.Slug, err)
	}

	team, err = p.client.CreateTeam(ctx, p.opts.Org, entry.Team, p.opts.TeamPrivacy)
	if err != nil {
		return nil, fmt.Errorf("creating team %s: %w", entry.Team, err)
	}
	p.logger.Info("created team", "team", entry.Team, "team_slug", team.Slug)
	return team, nil
}

// waitForBranch polls until the default branch of a freshly generated repository
// exists. Template generation finishes asynchronously on GitHub's side.
func (p *Provisioner) waitForBranch(ctx context.Context, owner, name, branch string) error {
	var lastErr error
	for attempt := 0; attempt < p.pollAttempts; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.pollInterval); err != nil {
				return err
			}
		}

		exists, err := p.client.BranchExists(ctx, owner, name, branch)
		if err == nil && exists {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("waiting for branch %s: %w", branch, lastErr)
	}
	return fmt.Errorf("branch %s did not appear after %d attempts", branch, p.pollAttempts)
}
