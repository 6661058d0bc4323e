package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"orgops/pkg/github"
	ghmock "orgops/pkg/github/mock"
	"orgops/pkg/workflow"
)

var testRepos = []github.Repository{
	{Owner: "acme", Name: "app", FullName: "acme/app"},
	{Owner: "acme", Name: "docs", FullName: "acme/docs"},
	{Owner: "acme", Name: "site", FullName: "acme/site"},
}

func TestGrantTeam(t *testing.T) {
	client := &ghmock.APIClient{}
	client.On("GetTeam", mock.Anything, "acme", "platform").Return(&github.Team{Slug: "platform"}, nil)
	client.On("GetTeamRepoPermission", mock.Anything, "acme", "platform", "acme", "app").Return("none", nil)
	client.On("GetTeamRepoPermission", mock.Anything, "acme", "platform", "acme", "docs").Return("write", nil)
	client.On("GetTeamRepoPermission", mock.Anything, "acme", "platform", "acme", "site").Return("read", nil)
	client.On("AddTeamAccess", mock.Anything, "acme", "app", github.TeamAccess{TeamSlug: "platform", Permission: "write"}).Return(nil)
	client.On("AddTeamAccess", mock.Anything, "acme", "site", github.TeamAccess{TeamSlug: "platform", Permission: "write"}).
		Return(github.NewGitHubError(github.ErrorTypePermission, "forbidden", nil))

	results := workflow.NewResults()
	err := NewGranter(client, nil, nil).GrantTeam(context.Background(), "acme", "platform", "push", testRepos, results)

	require.NoError(t, err)
	assert.Equal(t, []workflow.Update{{Repo: "acme/app", Detail: "team platform: none -> write"}}, results.Updated)
	assert.Equal(t, []workflow.Skip{{Repo: "acme/docs", Reason: workflow.ReasonAlreadyGranted}}, results.Skipped)
	require.Len(t, results.Errors, 1)
	assert.Equal(t, "acme/site", results.Errors[0].Repo)
	assert.Equal(t, "permission", results.Errors[0].Category)
	client.AssertExpectations(t)
}

func TestGrantTeam_FatalErrors(t *testing.T) {
	t.Run("invalid permission", func(t *testing.T) {
		client := &ghmock.APIClient{}
		err := NewGranter(client, nil, nil).GrantTeam(context.Background(), "acme", "platform", "owner", testRepos, workflow.NewResults())
		assert.Error(t, err)
		client.AssertNotCalled(t, "GetTeam", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing team", func(t *testing.T) {
		client := &ghmock.APIClient{}
		client.On("GetTeam", mock.Anything, "acme", "ghost").
			Return(nil, github.NewGitHubError(github.ErrorTypeNotFound, "Team not found", nil))

		results := workflow.NewResults()
		err := NewGranter(client, nil, nil).GrantTeam(context.Background(), "acme", "ghost", "read", testRepos, results)
		assert.True(t, github.IsNotFound(err))
		assert.Zero(t, results.Total())
	})
}

func TestGrantTeam_DryRun(t *testing.T) {
	client := &ghmock.APIClient{}
	client.On("GetTeam", mock.Anything, "acme", "platform").Return(&github.Team{Slug: "platform"}, nil)
	client.On("GetTeamRepoPermission", mock.Anything, "acme", "platform", "acme", mock.Anything).Return("read", nil)

	granter := NewGranter(client, nil, nil)
	granter.DryRun = true

	results := workflow.NewResults()
	require.NoError(t, granter.GrantTeam(context.Background(), "acme", "platform", "maintain", testRepos[:1], results))

	assert.Equal(t, []workflow.Plan{{Repo: "acme/app", Changes: []string{"team platform: read -> maintain"}}}, results.Planned)
	client.AssertNotCalled(t, "AddTeamAccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGrantUsers(t *testing.T) {
	client := &ghmock.APIClient{}
	client.On("GetUserPermission", mock.Anything, "acme", "app", "alice").Return("read", nil)
	client.On("GetUserPermission", mock.Anything, "acme", "app", "bob").Return("write", nil)
	client.On("GetUserPermission", mock.Anything, "acme", "docs", "alice").Return("write", nil)
	client.On("GetUserPermission", mock.Anything, "acme", "docs", "bob").Return("write", nil)
	client.On("AddCollaborator", mock.Anything, "acme", "app", "alice", "write").Return(nil)

	results := workflow.NewResults()
	err := NewGranter(client, nil, nil).GrantUsers(context.Background(), []string{"@alice", " bob", "alice"}, "write", testRepos[:2], results)

	require.NoError(t, err)
	assert.Equal(t, []workflow.Update{{Repo: "acme/app", Detail: "alice: read -> write"}}, results.Updated)
	assert.Equal(t, []workflow.Skip{{Repo: "acme/docs", Reason: workflow.ReasonAlreadyGranted}}, results.Skipped)
	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "AddCollaborator", 1)
}

func TestGrantUsers_ReadFailureIsPerRepository(t *testing.T) {
	client := &ghmock.APIClient{}
	client.On("GetUserPermission", mock.Anything, "acme", "app", "alice").Return("", errors.New("boom"))
	client.On("GetUserPermission", mock.Anything, "acme", "docs", "alice").Return("none", nil)
	client.On("AddCollaborator", mock.Anything, "acme", "docs", "alice", "triage").Return(nil)

	results := workflow.NewResults()
	err := NewGranter(client, nil, nil).GrantUsers(context.Background(), []string{"alice"}, "triage", testRepos[:2], results)

	require.NoError(t, err)
	assert.Equal(t, []string{"acme/app"}, results.FailedRepos())
	assert.Len(t, results.Updated, 1)
}

func TestGrantUsers_NoUsers(t *testing.T) {
	err := NewGranter(&ghmock.APIClient{}, nil, nil).GrantUsers(context.Background(), []string{" ", "@"}, "read", testRepos, workflow.NewResults())
	assert.Error(t, err)
}

func TestCleanUsers(t *testing.T) {
	assert.Equal(t, []string{"alice", "Bob"}, cleanUsers([]string{" alice", "@Bob", "bob", "", "ALICE"}))
}

func TestGrantUsers_DowngradeIsFlagged(t *testing.T) {
	client := &ghmock.APIClient{}
	client.On("GetUserPermission", mock.Anything, "acme", "app", "alice").Return("admin", nil)
	client.On("AddCollaborator", mock.Anything, "acme", "app", "alice", "read").Return(nil)

	results := workflow.NewResults()
	err := NewGranter(client, nil, nil).GrantUsers(context.Background(), []string{"alice"}, "pull", testRepos[:1], results)

	require.NoError(t, err)
	assert.Equal(t, []workflow.Update{{Repo: "acme/app", Detail: "alice: admin -> read (downgrade)"}}, results.Updated)
	client.AssertExpectations(t)
}

func TestChangeLine(t *testing.T) {
	assert.Equal(t, "team core: none -> write", changeLine("team core", "none", "write"))
	assert.Equal(t, "bob: maintain -> triage (downgrade)", changeLine("bob", "maintain", "triage"))
	assert.Equal(t, "bob: custom-role -> read", changeLine("bob", "custom-role", "read"))
}
