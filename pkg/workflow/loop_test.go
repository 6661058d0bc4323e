package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgops/pkg/github"
)

type countingGuard struct {
	calls int
	err   error
}

func (g *countingGuard) Checkpoint(_ context.Context) error {
	g.calls++
	return g.err
}

type countingProgress struct {
	n int
}

func (p *countingProgress) Increment() { p.n++ }

func repos(names ...string) []github.Repository {
	out := make([]github.Repository, 0, len(names))
	for _, n := range names {
		out = append(out, github.Repository{Owner: "acme", Name: n, FullName: "acme/" + n})
	}
	return out
}

func TestLoop_ContinuesAfterFailure(t *testing.T) {
	guard := &countingGuard{}
	progress := &countingProgress{}
	results := NewResults()

	var visited []string
	err := NewLoop(guard, nil).WithProgress(progress).Run(context.Background(), repos("a", "b", "c"), results,
		func(_ context.Context, repo github.Repository) error {
			visited = append(visited, repo.Name)
			if repo.Name == "b" {
				return github.NewGitHubError(github.ErrorTypeNotFound, "gone", nil)
			}
			results.AddUpdated(repo.FullName, "")
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, visited)
	assert.Equal(t, 3, guard.calls)
	assert.Equal(t, 3, progress.n)
	require.Len(t, results.Errors, 1)
	assert.Equal(t, "acme/b", results.Errors[0].Repo)
	assert.Equal(t, "not_found", results.Errors[0].Category)
	assert.Len(t, results.Updated, 2)
}

func TestLoop_PollFailureDoesNotAbort(t *testing.T) {
	guard := &countingGuard{err: errors.New("rate limit endpoint unavailable")}
	results := NewResults()

	calls := 0
	err := NewLoop(guard, nil).Run(context.Background(), repos("a", "b"), results,
		func(_ context.Context, _ github.Repository) error {
			calls++
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLoop_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	results := NewResults()

	calls := 0
	err := NewLoop(nil, nil).Run(ctx, repos("a", "b", "c"), results,
		func(_ context.Context, _ github.Repository) error {
			calls++
			cancel()
			return nil
		})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestLoop_GuardCancellationStops(t *testing.T) {
	guard := &countingGuard{err: context.DeadlineExceeded}

	err := NewLoop(guard, nil).Run(context.Background(), repos("a"), NewResults(),
		func(_ context.Context, _ github.Repository) error {
			t.Fatal("repository should not be processed")
			return nil
		})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
