package github

import "context"

// APIClient defines the interface for GitHub API operations
type APIClient interface {
	// Organization and repository operations
	GetOrganization(ctx context.Context, org string) (*Organization, error)
	ListOrgRepositories(ctx context.Context, org string) ([]Repository, error)
	GetRepository(ctx context.Context, owner, name string) (*Repository, error)
	CreateFromTemplate(ctx context.Context, templateOwner, templateName string, req TemplateRequest) (*Repository, error)

	// Branch operations
	GetBranchSHA(ctx context.Context, owner, name, branch string) (string, error)
	BranchExists(ctx context.Context, owner, name, branch string) (bool, error)
	CreateBranch(ctx context.Context, owner, name, branch, sha string) error
	DeleteBranch(ctx context.Context, owner, name, branch string) error
	ProtectBranch(ctx context.Context, owner, name, branch string, rule BranchProtectionRule) error

	// Contents operations
	GetFile(ctx context.Context, owner, name, path, ref string) (*FileContent, error)
	PutFile(ctx context.Context, owner, name string, update FileUpdate) error

	// Collaborator operations
	ListCollaborators(ctx context.Context, owner, name, affiliation string) ([]Collaborator, error)
	GetUserPermission(ctx context.Context, owner, name, username string) (string, error)
	AddCollaborator(ctx context.Context, owner, name, username, permission string) error

	// Team operations
	GetTeam(ctx context.Context, org, slug string) (*Team, error)
	CreateTeam(ctx context.Context, org, name, privacy string) (*Team, error)
	ListTeamAccess(ctx context.Context, owner, name string) ([]TeamAccess, error)
	GetTeamRepoPermission(ctx context.Context, org, slug, owner, name string) (string, error)
	AddTeamAccess(ctx context.Context, owner, name string, team TeamAccess) error
	ListTeamMembers(ctx context.Context, org, slug string) ([]string, error)

	// Pull request operations
	ListOpenPullRequests(ctx context.Context, owner, name, branch string) ([]PullRequest, error)
	CreatePullRequest(ctx context.Context, owner, name string, spec PullRequestSpec) (*PullRequest, error)
	ClosePullRequest(ctx context.Context, owner, name string, number int) error

	// Package operations
	ListPackages(ctx context.Context, org, packageType string) ([]Package, error)
	DeletePackage(ctx context.Context, org, packageType, packageName string) error

	// Quota
	RateLimit(ctx context.Context) (*RateStatus, error)
}

// RateSource reports the current API quota
type RateSource interface {
	RateLimit(ctx context.Context) (*RateStatus, error)
}

var (
	_ APIClient  = (*Client)(nil)
	_ RateSource = (*Client)(nil)
)
