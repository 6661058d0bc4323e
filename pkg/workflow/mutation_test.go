package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"orgops/pkg/github"
	ghmock "orgops/pkg/github/mock"
)

var testRepo = github.Repository{
	Owner:         "acme",
	Name:          "app",
	FullName:      "acme/app",
	DefaultBranch: "main",
}

func replaceFoo(_ string, content string) (string, bool) {
	if !strings.Contains(content, "foo") {
		return content, false
	}
	return strings.ReplaceAll(content, "foo", "bar"), true
}

func testMutation() Mutation {
	return Mutation{
		Files:         []FileTarget{{Path: "README.md"}},
		Transform:     replaceFoo,
		Branch:        "orgops/test",
		CommitMessage: "Replace foo",
		Title:         "Replace foo with bar",
		Body:          "Automated change",
	}
}

func notFound() error {
	return github.NewGitHubError(github.ErrorTypeNotFound, "Resource not found", nil)
}

// expectReads sets up the read-only calls every mutation makes
func expectReads(client *ghmock.APIClient, content string) {
	client.On("GetBranchSHA", mock.Anything, "acme", "app", "main").Return("base-sha", nil)
	client.On("GetFile", mock.Anything, "acme", "app", "README.md", "main").
		Return(&github.FileContent{Path: "README.md", SHA: "readme-sha", Content: content}, nil)
}

func expectWrites(client *ghmock.APIClient) {
	client.On("CreateBranch", mock.Anything, "acme", "app", "orgops/test", "base-sha").Return(nil)
	client.On("PutFile", mock.Anything, "acme", "app", github.FileUpdate{
		Path:    "README.md",
		Content: "bar baz",
		SHA:     "readme-sha",
		Branch:  "orgops/test",
		Message: "Replace foo",
	}).Return(nil)
	client.On("CreatePullRequest", mock.Anything, "acme", "app", github.PullRequestSpec{
		Title: "Replace foo with bar",
		Body:  "Automated change",
		Head:  "orgops/test",
		Base:  "main",
	}).Return(&github.PullRequest{Number: 3, HTMLURL: "https://github.com/acme/app/pull/3"}, nil)
}

func TestMutation_Validate(t *testing.T) {
	valid := testMutation()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(m *Mutation)
	}{
		{"no files", func(m *Mutation) { m.Files = nil }},
		{"no transform", func(m *Mutation) { m.Transform = nil }},
		{"no branch", func(m *Mutation) { m.Branch = "" }},
		{"no title", func(m *Mutation) { m.Title = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMutation()
			tt.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestMutator_NoMatchOpensNothing(t *testing.T) {
	client := &ghmock.APIClient{}
	expectReads(client, "nothing to see here")

	results := NewResults()
	err := NewMutator(client, nil).Apply(context.Background(), testRepo, testMutation(), results)

	require.NoError(t, err)
	assert.Equal(t, []Skip{{Repo: "acme/app", Reason: ReasonNoMatch}}, results.Skipped)
	client.AssertNotCalled(t, "ListOpenPullRequests", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "CreateBranch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	client.AssertExpectations(t)
}

func TestMutator_MissingFileIsNoMatch(t *testing.T) {
	client := &ghmock.APIClient{}
	client.On("GetBranchSHA", mock.Anything, "acme", "app", "main").Return("base-sha", nil)
	client.On("GetFile", mock.Anything, "acme", "app", "README.md", "main").Return(nil, notFound())

	results := NewResults()
	err := NewMutator(client, nil).Apply(context.Background(), testRepo, testMutation(), results)

	require.NoError(t, err)
	assert.Equal(t, ReasonNoMatch, results.Skipped[0].Reason)
}

func TestMutator_SkipsExistingPullRequest(t *testing.T) {
	client := &ghmock.APIClient{}
	expectReads(client, "foo baz")
	client.On("ListOpenPullRequests", mock.Anything, "acme", "app", "orgops/test").
		Return([]github.PullRequest{{Number: 1, HTMLURL: "https://github.com/acme/app/pull/1"}}, nil)

	results := NewResults()
	err := NewMutator(client, nil).Apply(context.Background(), testRepo, testMutation(), results)

	require.NoError(t, err)
	assert.Equal(t, []Skip{{Repo: "acme/app", Reason: ReasonExistingPR}}, results.Skipped)
	client.AssertNotCalled(t, "ClosePullRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "CreateBranch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMutator_OverrideReplacesExistingPullRequest(t *testing.T) {
	client := &ghmock.APIClient{}
	expectReads(client, "foo baz")
	client.On("ListOpenPullRequests", mock.Anything, "acme", "app", "orgops/test").
		Return([]github.PullRequest{{Number: 1}}, nil)
	client.On("ClosePullRequest", mock.Anything, "acme", "app", 1).Return(nil).Once()
	client.On("BranchExists", mock.Anything, "acme", "app", "orgops/test").Return(true, nil)
	client.On("DeleteBranch", mock.Anything, "acme", "app", "orgops/test").Return(nil).Once()
	expectWrites(client)

	mutator := NewMutator(client, nil)
	mutator.SkipExistingPR = false

	results := NewResults()
	err := mutator.Apply(context.Background(), testRepo, testMutation(), results)

	require.NoError(t, err)
	assert.Equal(t, []Update{{Repo: "acme/app", Detail: "https://github.com/acme/app/pull/3"}}, results.Updated)
	client.AssertExpectations(t)
}

func TestMutator_DeletesStaleBranch(t *testing.T) {
	client := &ghmock.APIClient{}
	expectReads(client, "foo baz")
	client.On("ListOpenPullRequests", mock.Anything, "acme", "app", "orgops/test").Return([]github.PullRequest{}, nil)
	client.On("BranchExists", mock.Anything, "acme", "app", "orgops/test").Return(true, nil)
	client.On("DeleteBranch", mock.Anything, "acme", "app", "orgops/test").Return(nil).Once()
	expectWrites(client)

	results := NewResults()
	err := NewMutator(client, nil).Apply(context.Background(), testRepo, testMutation(), results)

	require.NoError(t, err)
	assert.Len(t, results.Updated, 1)
	client.AssertExpectations(t)
}

func TestMutator_CreatesMissingFile(t *testing.T) {
	client := &ghmock.APIClient{}
	client.On("GetBranchSHA", mock.Anything, "acme", "app", "main").Return("base-sha", nil)
	client.On("GetFile", mock.Anything, "acme", "app", "MAINTAINERS.md", "main").Return(nil, notFound())
	client.On("ListOpenPullRequests", mock.Anything, "acme", "app", "orgops/test").Return(nil, nil)
	client.On("BranchExists", mock.Anything, "acme", "app", "orgops/test").Return(false, nil)
	client.On("CreateBranch", mock.Anything, "acme", "app", "orgops/test", "base-sha").Return(nil)
	client.On("PutFile", mock.Anything, "acme", "app", mock.MatchedBy(func(u github.FileUpdate) bool {
		return u.Path == "MAINTAINERS.md" && u.SHA == "" && u.Content == "# Maintainers\n"
	})).Return(nil)
	client.On("CreatePullRequest", mock.Anything, "acme", "app", mock.Anything).
		Return(&github.PullRequest{Number: 4, HTMLURL: "https://github.com/acme/app/pull/4"}, nil)

	mutation := testMutation()
	mutation.Files = []FileTarget{{Path: "MAINTAINERS.md", CreateIfMissing: true}}
	mutation.Transform = func(_ string, content string) (string, bool) {
		return "# Maintainers\n", content != "# Maintainers\n"
	}

	results := NewResults()
	err := NewMutator(client, nil).Apply(context.Background(), testRepo, mutation, results)

	require.NoError(t, err)
	assert.Len(t, results.Updated, 1)
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "DeleteBranch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMutator_RollsBackOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(client *ghmock.APIClient)
	}{
		{
			name: "file update fails",
			setup: func(client *ghmock.APIClient) {
				client.On("PutFile", mock.Anything, "acme", "app", mock.Anything).Return(errors.New("conflict"))
			},
		},
		{
			name: "pull request creation fails",
			setup: func(client *ghmock.APIClient) {
				client.On("PutFile", mock.Anything, "acme", "app", mock.Anything).Return(nil)
				client.On("CreatePullRequest", mock.Anything, "acme", "app", mock.Anything).Return(nil, errors.New("validation failed"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &ghmock.APIClient{}
			expectReads(client, "foo baz")
			client.On("ListOpenPullRequests", mock.Anything, "acme", "app", "orgops/test").Return(nil, nil)
			client.On("BranchExists", mock.Anything, "acme", "app", "orgops/test").Return(false, nil)
			client.On("CreateBranch", mock.Anything, "acme", "app", "orgops/test", "base-sha").Return(nil)
			client.On("DeleteBranch", mock.Anything, "acme", "app", "orgops/test").Return(nil).Once()
			tt.setup(client)

			results := NewResults()
			err := NewMutator(client, nil).Apply(context.Background(), testRepo, testMutation(), results)

			require.Error(t, err)
			assert.Zero(t, results.Total())
			client.AssertExpectations(t)
		})
	}
}

func TestMutator_RollbackFailureIsReported(t *testing.T) {
	client := &ghmock.APIClient{}
	expectReads(client, "foo baz")
	client.On("ListOpenPullRequests", mock.Anything, "acme", "app", "orgops/test").Return(nil, nil)
	client.On("BranchExists", mock.Anything, "acme", "app", "orgops/test").Return(false, nil)
	client.On("CreateBranch", mock.Anything, "acme", "app", "orgops/test", "base-sha").Return(nil)
	client.On("PutFile", mock.Anything, "acme", "app", mock.Anything).Return(errors.New("conflict"))
	client.On("DeleteBranch", mock.Anything, "acme", "app", "orgops/test").Return(errors.New("forbidden"))

	err := NewMutator(client, nil).Apply(context.Background(), testRepo, testMutation(), NewResults())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict")
	assert.Contains(t, err.Error(), "forbidden")
}

func TestMutator_BranchCreationFailureNeedsNoRollback(t *testing.T) {
	client := &ghmock.APIClient{}
	expectReads(client, "foo baz")
	client.On("ListOpenPullRequests", mock.Anything, "acme", "app", "orgops/test").Return(nil, nil)
	client.On("BranchExists", mock.Anything, "acme", "app", "orgops/test").Return(false, nil)
	client.On("CreateBranch", mock.Anything, "acme", "app", "orgops/test", "base-sha").Return(errors.New("boom"))

	err := NewMutator(client, nil).Apply(context.Background(), testRepo, testMutation(), NewResults())

	require.Error(t, err)
	client.AssertNotCalled(t, "DeleteBranch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMutator_DryRunOnlyReads(t *testing.T) {
	client := &ghmock.APIClient{}
	expectReads(client, "foo baz")
	client.On("ListOpenPullRequests", mock.Anything, "acme", "app", "orgops/test").
		Return([]github.PullRequest{{Number: 9}}, nil)

	mutator := NewMutator(client, nil)
	mutator.DryRun = true
	mutator.SkipExistingPR = false

	results := NewResults()
	err := mutator.Apply(context.Background(), testRepo, testMutation(), results)

	require.NoError(t, err)
	assert.Equal(t, []Plan{{Repo: "acme/app", Changes: []string{"README.md", "replace pull request #9"}}}, results.Planned)
	client.AssertNotCalled(t, "ClosePullRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "BranchExists", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "CreateBranch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "PutFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMutator_ResolvesDefaultBranch(t *testing.T) {
	client := &ghmock.APIClient{}
	client.On("GetRepository", mock.Anything, "acme", "app").Return(&github.Repository{DefaultBranch: "main"}, nil)
	expectReads(client, "nothing")

	repo := testRepo
	repo.DefaultBranch = ""

	results := NewResults()
	err := NewMutator(client, nil).Apply(context.Background(), repo, testMutation(), results)

	require.NoError(t, err)
	assert.Equal(t, ReasonNoMatch, results.Skipped[0].Reason)
	client.AssertExpectations(t)
}

func TestMutator_ReadErrorsAbortRepository(t *testing.T) {
	client := &ghmock.APIClient{}
	client.On("GetBranchSHA", mock.Anything, "acme", "app", "main").Return("base-sha", nil)
	client.On("GetFile", mock.Anything, "acme", "app", "README.md", "main").
		Return(nil, github.NewGitHubError(github.ErrorTypePermission, "forbidden", nil))

	results := NewResults()
	err := NewMutator(client, nil).Apply(context.Background(), testRepo, testMutation(), results)

	require.Error(t, err)
	assert.Equal(t, "permission", github.Category(err))
	assert.Zero(t, results.Total())
}

func TestMutator_OverrideFailureNamesClosedPullRequest(t *testing.T) {
	client := &ghmock.APIClient{}
	expectReads(client, "foo baz")
	client.On("ListOpenPullRequests", mock.Anything, "acme", "app", "orgops/test").
		Return([]github.PullRequest{{Number: 1}}, nil)
	client.On("ClosePullRequest", mock.Anything, "acme", "app", 1).Return(nil).Once()
	client.On("BranchExists", mock.Anything, "acme", "app", "orgops/test").Return(true, nil)
	client.On("DeleteBranch", mock.Anything, "acme", "app", "orgops/test").Return(nil).Twice()
	client.On("CreateBranch", mock.Anything, "acme", "app", "orgops/test", "base-sha").Return(nil)
	client.On("PutFile", mock.Anything, "acme", "app", mock.Anything).Return(errors.New("conflict"))

	mutator := NewMutator(client, nil)
	mutator.SkipExistingPR = false

	results := NewResults()
	err := mutator.Apply(context.Background(), testRepo, testMutation(), results)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict")
	assert.Contains(t, err.Error(), "pull request #1 already closed")
	assert.Zero(t, results.Total())
	client.AssertExpectations(t)
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "abc", truncateUTF8("abc", 10))
	assert.Equal(t, "ab", truncateUTF8("abcd", 2))

	// "é" is two bytes; cutting inside it backs off to the rune start
	assert.Equal(t, "a", truncateUTF8("aé", 2))
	assert.Equal(t, "aé", truncateUTF8("aéz", 3))

	long := strings.Repeat("ü", prBodyMaxLen)
	got := truncateUTF8(long, prBodyMaxLen+1)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), prBodyMaxLen+1)
}
