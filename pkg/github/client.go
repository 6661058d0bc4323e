package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// Client implements the APIClient interface using the GitHub REST API
type Client struct {
	client *github.Client
	guard  *RateLimitGuard
	retry  *RetryConfig
}

// NewClient creates a new GitHub API client with the provided token
func NewClient(token string) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &Client{
		client: github.NewClient(tc),
		retry:  DefaultRetryConfig(),
	}
}

// WithGuard routes every quota-consuming call through the rate-limit guard
func (c *Client) WithGuard(guard *RateLimitGuard) *Client {
	c.guard = guard
	return c
}

// WithRetryConfig overrides the retry policy used for every call
func (c *Client) WithRetryConfig(config *RetryConfig) *Client {
	c.retry = config
	return c
}

// Guard returns the rate-limit guard attached to this client, if any
func (c *Client) Guard() *RateLimitGuard {
	return c.guard
}

// do runs one API call with retry, error categorisation and rate-limit bookkeeping
func (c *Client) do(ctx context.Context, resource string, operation func() (*github.Response, error)) error {
	return WithRetry(ctx, func() error {
		if c.guard != nil {
			if err := c.guard.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait for %s: %w", resource, err)
			}
		}

		resp, err := operation()
		c.observe(resp)
		if err != nil {
			return WrapGitHubError(err, resource)
		}
		return nil
	}, c.retry)
}

func (c *Client) observe(resp *github.Response) {
	if c.guard == nil || resp == nil || resp.Rate.Limit == 0 {
		return
	}
	c.guard.UpdateLimits(resp.Rate.Remaining, resp.Rate.Reset.Time)
}

// GetOrganization retrieves an organization by login
func (c *Client) GetOrganization(ctx context.Context, org string) (*Organization, error) {
	var o *github.Organization

	err := c.do(ctx, fmt.Sprintf("organization %s", org), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		o, resp, err = c.client.Organizations.Get(ctx, org)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return &Organization{Login: o.GetLogin(), Name: o.GetName()}, nil
}

// ListOrgRepositories lists all non-archived repositories of an organization
func (c *Client) ListOrgRepositories(ctx context.Context, org string) ([]Repository, error) {
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		Sort:        "full_name",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var allRepos []Repository

	for {
		var repos []*github.Repository
		var resp *github.Response

		err := c.do(ctx, fmt.Sprintf("repositories for organization %s", org), func() (*github.Response, error) {
			var err error
			repos, resp, err = c.client.Repositories.ListByOrg(ctx, org, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, repo := range repos {
			if repo.GetArchived() {
				continue
			}
			allRepos = append(allRepos, *convertGitHubRepository(repo))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

// GetRepository retrieves a repository by owner and name
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	var repo *github.Repository

	err := c.do(ctx, fmt.Sprintf("repository %s/%s", owner, name), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		repo, resp, err = c.client.Repositories.Get(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return convertGitHubRepository(repo), nil
}

// CreateFromTemplate generates a new repository from a template repository
func (c *Client) CreateFromTemplate(ctx context.Context, templateOwner, templateName string, req TemplateRequest) (*Repository, error) {
	templateReq := &github.TemplateRepoRequest{
		Name:               github.String(req.Name),
		Owner:              github.String(req.Owner),
		Private:            github.Bool(req.Private),
		IncludeAllBranches: github.Bool(req.IncludeAllBranches),
	}
	if req.Description != "" {
		templateReq.Description = github.String(req.Description)
	}

	var created *github.Repository

	err := c.do(ctx, fmt.Sprintf("repository %s/%s", req.Owner, req.Name), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		created, resp, err = c.client.Repositories.CreateFromTemplate(ctx, templateOwner, templateName, templateReq)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return convertGitHubRepository(created), nil
}

// GetBranchSHA returns the head commit SHA of a branch
func (c *Client) GetBranchSHA(ctx context.Context, owner, name, branch string) (string, error) {
	var ref *github.Reference

	err := c.do(ctx, fmt.Sprintf("branch %s of %s/%s", branch, owner, name), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		ref, resp, err = c.client.Git.GetRef(ctx, owner, name, "heads/"+branch)
		return resp, err
	})
	if err != nil {
		return "", err
	}

	return ref.GetObject().GetSHA(), nil
}

// BranchExists reports whether a branch exists
func (c *Client) BranchExists(ctx context.Context, owner, name, branch string) (bool, error) {
	_, err := c.GetBranchSHA(ctx, owner, name, branch)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// CreateBranch creates a branch pointing at sha
func (c *Client) CreateBranch(ctx context.Context, owner, name, branch, sha string) error {
	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(sha)},
	}

	return c.do(ctx, fmt.Sprintf("branch %s of %s/%s", branch, owner, name), func() (*github.Response, error) {
		_, resp, err := c.client.Git.CreateRef(ctx, owner, name, ref)
		return resp, err
	})
}

// DeleteBranch deletes a branch
func (c *Client) DeleteBranch(ctx context.Context, owner, name, branch string) error {
	return c.do(ctx, fmt.Sprintf("branch %s of %s/%s", branch, owner, name), func() (*github.Response, error) {
		return c.client.Git.DeleteRef(ctx, owner, name, "heads/"+branch)
	})
}

// ProtectBranch applies branch protection rules to a branch
func (c *Client) ProtectBranch(ctx context.Context, owner, name, branch string, rule BranchProtectionRule) error {
	protection := buildProtectionRequest(rule)

	return c.do(ctx, fmt.Sprintf("branch protection %s/%s:%s", owner, name, branch), func() (*github.Response, error) {
		_, resp, err := c.client.Repositories.UpdateBranchProtection(ctx, owner, name, branch, protection)
		return resp, err
	})
}

// buildProtectionRequest builds a GitHub API ProtectionRequest from our BranchProtectionRule
func buildProtectionRequest(rule BranchProtectionRule) *github.ProtectionRequest {
	protection := &github.ProtectionRequest{
		EnforceAdmins: rule.EnforceAdmins,
	}

	if rule.RequiredReviews > 0 {
		protection.RequiredPullRequestReviews = &github.PullRequestReviewsEnforcementRequest{
			RequiredApprovingReviewCount: rule.RequiredReviews,
			DismissStaleReviews:          rule.DismissStaleReviews,
			RequireCodeOwnerReviews:      rule.RequireCodeOwnerReview,
		}
	}

	return protection
}

// GetFile reads and decodes a file through the Contents API
func (c *Client) GetFile(ctx context.Context, owner, name, path, ref string) (*FileContent, error) {
	resource := fmt.Sprintf("file %s in %s/%s", path, owner, name)
	opts := &github.RepositoryContentGetOptions{Ref: ref}

	var file *github.RepositoryContent

	err := c.do(ctx, resource, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		file, _, resp, err = c.client.Repositories.GetContents(ctx, owner, name, path, opts)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	if file == nil {
		return nil, NewGitHubError(ErrorTypeNotFound, "path is a directory, not a file", nil).withResource(resource)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", resource, err)
	}

	return &FileContent{
		Path:    file.GetPath(),
		SHA:     file.GetSHA(),
		Content: content,
	}, nil
}

// PutFile creates or updates a file through the Contents API
func (c *Client) PutFile(ctx context.Context, owner, name string, update FileUpdate) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(update.Message),
		Content: []byte(update.Content),
		Branch:  github.String(update.Branch),
	}

	return c.do(ctx, fmt.Sprintf("file %s in %s/%s", update.Path, owner, name), func() (*github.Response, error) {
		if update.SHA == "" {
			_, resp, err := c.client.Repositories.CreateFile(ctx, owner, name, update.Path, opts)
			return resp, err
		}
		opts.SHA = github.String(update.SHA)
		_, resp, err := c.client.Repositories.UpdateFile(ctx, owner, name, update.Path, opts)
		return resp, err
	})
}

// ListCollaborators lists repository collaborators. Affiliation is one of
// outside, direct or all; empty means all.
func (c *Client) ListCollaborators(ctx context.Context, owner, name, affiliation string) ([]Collaborator, error) {
	opts := &github.ListCollaboratorsOptions{
		Affiliation: affiliation,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var allCollaborators []Collaborator

	for {
		var collaborators []*github.User
		var resp *github.Response

		err := c.do(ctx, fmt.Sprintf("collaborators for %s/%s", owner, name), func() (*github.Response, error) {
			var err error
			collaborators, resp, err = c.client.Repositories.ListCollaborators(ctx, owner, name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, collab := range collaborators {
			permission := RoleName(collab.GetRoleName())
			if permission == RoleNone {
				permission = roleFromPermissions(collab.Permissions)
			}
			allCollaborators = append(allCollaborators, Collaborator{
				Username:   collab.GetLogin(),
				Permission: permission,
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allCollaborators, nil
}

// GetUserPermission returns the role a user holds on a repository, or "none"
func (c *Client) GetUserPermission(ctx context.Context, owner, name, username string) (string, error) {
	var level *github.RepositoryPermissionLevel

	err := c.do(ctx, fmt.Sprintf("user %s permission on %s/%s", username, owner, name), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		level, resp, err = c.client.Repositories.GetPermissionLevel(ctx, owner, name, username)
		return resp, err
	})
	if err != nil {
		if IsNotFound(err) {
			return RoleNone, nil
		}
		return "", err
	}

	if role := level.GetUser().GetRoleName(); role != "" {
		return RoleName(role), nil
	}
	return RoleName(level.GetPermission()), nil
}

// AddCollaborator adds a collaborator to a repository, or updates their permission
func (c *Client) AddCollaborator(ctx context.Context, owner, name, username, permission string) error {
	apiPermission, err := APIPermission(permission)
	if err != nil {
		return err
	}

	opts := &github.RepositoryAddCollaboratorOptions{
		Permission: apiPermission,
	}

	return c.do(ctx, fmt.Sprintf("collaborator %s for %s/%s", username, owner, name), func() (*github.Response, error) {
		_, resp, err := c.client.Repositories.AddCollaborator(ctx, owner, name, username, opts)
		return resp, err
	})
}

// GetTeam retrieves a team by slug
func (c *Client) GetTeam(ctx context.Context, org, slug string) (*Team, error) {
	var team *github.Team

	err := c.do(ctx, fmt.Sprintf("team %s/%s", org, slug), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		team, resp, err = c.client.Teams.GetTeamBySlug(ctx, org, slug)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return convertGitHubTeam(team), nil
}

// CreateTeam creates a team in an organization
func (c *Client) CreateTeam(ctx context.Context, org, name, privacy string) (*Team, error) {
	newTeam := github.NewTeam{Name: name}
	if privacy != "" {
		newTeam.Privacy = github.String(privacy)
	}

	var team *github.Team

	err := c.do(ctx, fmt.Sprintf("team %s in %s", name, org), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		team, resp, err = c.client.Teams.CreateTeam(ctx, org, newTeam)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return convertGitHubTeam(team), nil
}

// ListTeamAccess lists all team access for a repository
func (c *Client) ListTeamAccess(ctx context.Context, owner, name string) ([]TeamAccess, error) {
	opts := &github.ListOptions{PerPage: 100}

	var allTeams []TeamAccess

	for {
		var teams []*github.Team
		var resp *github.Response

		err := c.do(ctx, fmt.Sprintf("teams for %s/%s", owner, name), func() (*github.Response, error) {
			var err error
			teams, resp, err = c.client.Repositories.ListTeams(ctx, owner, name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, team := range teams {
			allTeams = append(allTeams, TeamAccess{
				TeamSlug:   team.GetSlug(),
				TeamName:   team.GetName(),
				Permission: RoleName(team.GetPermission()),
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allTeams, nil
}

// GetTeamRepoPermission returns the role a team holds on a repository, or "none"
func (c *Client) GetTeamRepoPermission(ctx context.Context, org, slug, owner, name string) (string, error) {
	var repo *github.Repository

	err := c.do(ctx, fmt.Sprintf("team %s on %s/%s", slug, owner, name), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		repo, resp, err = c.client.Teams.IsTeamRepoBySlug(ctx, org, slug, owner, name)
		return resp, err
	})
	if err != nil {
		if IsNotFound(err) {
			return RoleNone, nil
		}
		return "", err
	}

	return roleFromPermissions(repo.Permissions), nil
}

// AddTeamAccess grants a team access to a repository, or updates its permission
func (c *Client) AddTeamAccess(ctx context.Context, owner, name string, team TeamAccess) error {
	apiPermission, err := APIPermission(team.Permission)
	if err != nil {
		return err
	}

	opts := &github.TeamAddTeamRepoOptions{
		Permission: apiPermission,
	}

	return c.do(ctx, fmt.Sprintf("team %s for %s/%s", team.TeamSlug, owner, name), func() (*github.Response, error) {
		return c.client.Teams.AddTeamRepoBySlug(ctx, owner, team.TeamSlug, owner, name, opts)
	})
}

// ListTeamMembers lists the logins of a team's members
func (c *Client) ListTeamMembers(ctx context.Context, org, slug string) ([]string, error) {
	opts := &github.TeamListTeamMembersOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var members []string

	for {
		var users []*github.User
		var resp *github.Response

		err := c.do(ctx, fmt.Sprintf("team %s/%s members", org, slug), func() (*github.Response, error) {
			var err error
			users, resp, err = c.client.Teams.ListTeamMembersBySlug(ctx, org, slug, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, u := range users {
			members = append(members, u.GetLogin())
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return members, nil
}

// ListOpenPullRequests lists open pull requests whose head is the given branch
func (c *Client) ListOpenPullRequests(ctx context.Context, owner, name, branch string) ([]PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		Head:        owner + ":" + branch,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var pulls []*github.PullRequest

	err := c.do(ctx, fmt.Sprintf("pull requests for %s/%s", owner, name), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		pulls, resp, err = c.client.PullRequests.List(ctx, owner, name, opts)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	result := make([]PullRequest, 0, len(pulls))
	for _, pr := range pulls {
		result = append(result, convertGitHubPullRequest(pr))
	}
	return result, nil
}

// CreatePullRequest opens a pull request
func (c *Client) CreatePullRequest(ctx context.Context, owner, name string, spec PullRequestSpec) (*PullRequest, error) {
	newPR := &github.NewPullRequest{
		Title:               github.String(spec.Title),
		Head:                github.String(spec.Head),
		Base:                github.String(spec.Base),
		Body:                github.String(spec.Body),
		Draft:               github.Bool(spec.Draft),
		MaintainerCanModify: github.Bool(true),
	}

	var pr *github.PullRequest

	err := c.do(ctx, fmt.Sprintf("pull request %s in %s/%s", spec.Head, owner, name), func() (*github.Response, error) {
		var resp *github.Response
		var err error
		pr, resp, err = c.client.PullRequests.Create(ctx, owner, name, newPR)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	result := convertGitHubPullRequest(pr)
	return &result, nil
}

// ClosePullRequest closes a pull request without merging it
func (c *Client) ClosePullRequest(ctx context.Context, owner, name string, number int) error {
	update := &github.PullRequest{State: github.String("closed")}

	return c.do(ctx, fmt.Sprintf("pull request #%d in %s/%s", number, owner, name), func() (*github.Response, error) {
		_, resp, err := c.client.PullRequests.Edit(ctx, owner, name, number, update)
		return resp, err
	})
}

// ListPackages lists organization packages of one type
func (c *Client) ListPackages(ctx context.Context, org, packageType string) ([]Package, error) {
	opts := &github.PackageListOptions{
		PackageType: github.String(packageType),
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var allPackages []Package

	for {
		var packages []*github.Package
		var resp *github.Response

		err := c.do(ctx, fmt.Sprintf("%s packages for %s", packageType, org), func() (*github.Response, error) {
			var err error
			packages, resp, err = c.client.Organizations.ListPackages(ctx, org, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, p := range packages {
			allPackages = append(allPackages, Package{
				ID:          p.GetID(),
				Name:        p.GetName(),
				PackageType: p.GetPackageType(),
				Visibility:  p.GetVisibility(),
				Repository:  p.GetRepository().GetFullName(),
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allPackages, nil
}

// DeletePackage deletes an organization package and all its versions
func (c *Client) DeletePackage(ctx context.Context, org, packageType, packageName string) error {
	return c.do(ctx, fmt.Sprintf("package %s/%s in %s", packageType, packageName, org), func() (*github.Response, error) {
		return c.client.Organizations.DeletePackage(ctx, org, packageType, packageName)
	})
}

// RateLimit reports the core REST quota. It does not consume quota, so it bypasses the
// guard's wait.
func (c *Client) RateLimit(ctx context.Context) (*RateStatus, error) {
	var limits *github.RateLimits

	err := WithRetry(ctx, func() error {
		var err error
		limits, _, err = c.client.RateLimit.Get(ctx)
		if err != nil {
			return WrapGitHubError(err, "rate limit")
		}
		return nil
	}, c.retry)
	if err != nil {
		return nil, err
	}

	core := limits.GetCore()
	if core == nil {
		return nil, NewGitHubError(ErrorTypeUnknown, "rate limit response has no core quota", nil)
	}
	status := &RateStatus{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}

	if c.guard != nil {
		c.guard.UpdateLimits(status.Remaining, status.Reset)
	}

	return status, nil
}

// convertGitHubRepository converts a GitHub API repository to our internal type
func convertGitHubRepository(repo *github.Repository) *Repository {
	owner := repo.GetOwner().GetLogin()
	if owner == "" {
		owner, _, _ = strings.Cut(repo.GetFullName(), "/")
	}

	return &Repository{
		ID:            repo.GetID(),
		Owner:         owner,
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
		Archived:      repo.GetArchived(),
		IsTemplate:    repo.GetIsTemplate(),
		HTMLURL:       repo.GetHTMLURL(),
		CreatedAt:     repo.GetCreatedAt().Time,
	}
}

func convertGitHubTeam(team *github.Team) *Team {
	return &Team{
		ID:      team.GetID(),
		Name:    team.GetName(),
		Slug:    team.GetSlug(),
		Privacy: team.GetPrivacy(),
	}
}

func convertGitHubPullRequest(pr *github.PullRequest) PullRequest {
	return PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		HeadRef: pr.GetHead().GetRef(),
		HTMLURL: pr.GetHTMLURL(),
	}
}
