// Package mock provides a testify mock of the GitHub APIClient for package tests.
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"orgops/pkg/github"
)

// APIClient is a mock implementation of github.APIClient
type APIClient struct {
	mock.Mock
}

var _ github.APIClient = (*APIClient)(nil)

func (m *APIClient) GetOrganization(ctx context.Context, org string) (*github.Organization, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Organization), args.Error(1)
}

func (m *APIClient) ListOrgRepositories(ctx context.Context, org string) ([]github.Repository, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.Repository), args.Error(1)
}

func (m *APIClient) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	args := m.Called(ctx, owner, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Repository), args.Error(1)
}

func (m *APIClient) CreateFromTemplate(ctx context.Context, templateOwner, templateName string, req github.TemplateRequest) (*github.Repository, error) {
	args := m.Called(ctx, templateOwner, templateName, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Repository), args.Error(1)
}

func (m *APIClient) GetBranchSHA(ctx context.Context, owner, name, branch string) (string, error) {
	args := m.Called(ctx, owner, name, branch)
	return args.String(0), args.Error(1)
}

func (m *APIClient) BranchExists(ctx context.Context, owner, name, branch string) (bool, error) {
	args := m.Called(ctx, owner, name, branch)
	return args.Bool(0), args.Error(1)
}

func (m *APIClient) CreateBranch(ctx context.Context, owner, name, branch, sha string) error {
	args := m.Called(ctx, owner, name, branch, sha)
	return args.Error(0)
}

func (m *APIClient) DeleteBranch(ctx context.Context, owner, name, branch string) error {
	args := m.Called(ctx, owner, name, branch)
	return args.Error(0)
}

func (m *APIClient) ProtectBranch(ctx context.Context, owner, name, branch string, rule github.BranchProtectionRule) error {
	args := m.Called(ctx, owner, name, branch, rule)
	return args.Error(0)
}

func (m *APIClient) GetFile(ctx context.Context, owner, name, path, ref string) (*github.FileContent, error) {
	args := m.Called(ctx, owner, name, path, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.FileContent), args.Error(1)
}

func (m *APIClient) PutFile(ctx context.Context, owner, name string, update github.FileUpdate) error {
	args := m.Called(ctx, owner, name, update)
	return args.Error(0)
}

func (m *APIClient) ListCollaborators(ctx context.Context, owner, name, affiliation string) ([]github.Collaborator, error) {
	args := m.Called(ctx, owner, name, affiliation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.Collaborator), args.Error(1)
}

func (m *APIClient) GetUserPermission(ctx context.Context, owner, name, username string) (string, error) {
	args := m.Called(ctx, owner, name, username)
	return args.String(0), args.Error(1)
}

func (m *APIClient) AddCollaborator(ctx context.Context, owner, name, username, permission string) error {
	args := m.Called(ctx, owner, name, username, permission)
	return args.Error(0)
}

func (m *APIClient) GetTeam(ctx context.Context, org, slug string) (*github.Team, error) {
	args := m.Called(ctx, org, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Team), args.Error(1)
}

func (m *APIClient) CreateTeam(ctx context.Context, org, name, privacy string) (*github.Team, error) {
	args := m.Called(ctx, org, name, privacy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Team), args.Error(1)
}

func (m *APIClient) ListTeamAccess(ctx context.Context, owner, name string) ([]github.TeamAccess, error) {
	args := m.Called(ctx, owner, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.TeamAccess), args.Error(1)
}

func (m *APIClient) GetTeamRepoPermission(ctx context.Context, org, slug, owner, name string) (string, error) {
	args := m.Called(ctx, org, slug, owner, name)
	return args.String(0), args.Error(1)
}

func (m *APIClient) AddTeamAccess(ctx context.Context, owner, name string, team github.TeamAccess) error {
	args := m.Called(ctx, owner, name, team)
	return args.Error(0)
}

func (m *APIClient) ListTeamMembers(ctx context.Context, org, slug string) ([]string, error) {
	args := m.Called(ctx, org, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *APIClient) ListOpenPullRequests(ctx context.Context, owner, name, branch string) ([]github.PullRequest, error) {
	args := m.Called(ctx, owner, name, branch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.PullRequest), args.Error(1)
}

func (m *APIClient) CreatePullRequest(ctx context.Context, owner, name string, spec github.PullRequestSpec) (*github.PullRequest, error) {
	args := m.Called(ctx, owner, name, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.PullRequest), args.Error(1)
}

func (m *APIClient) ClosePullRequest(ctx context.Context, owner, name string, number int) error {
	args := m.Called(ctx, owner, name, number)
	return args.Error(0)
}

func (m *APIClient) ListPackages(ctx context.Context, org, packageType string) ([]github.Package, error) {
	args := m.Called(ctx, org, packageType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.Package), args.Error(1)
}

func (m *APIClient) DeletePackage(ctx context.Context, org, packageType, packageName string) error {
	args := m.Called(ctx, org, packageType, packageName)
	return args.Error(0)
}

func (m *APIClient) RateLimit(ctx context.Context) (*github.RateStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.RateStatus), args.Error(1)
}
