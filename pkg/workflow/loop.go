// Package workflow runs bulk operations over organization repositories one at a time
// and proposes file changes through pull requests.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"orgops/pkg/github"
)

// RepoFunc processes one repository. It records successes and skips itself; a returned
// error is recorded as that repository's failure.
type RepoFunc func(ctx context.Context, repo github.Repository) error

// Progress is notified after each repository
type Progress interface {
	Increment()
}

// Checkpointer pauses the loop while the API quota is low
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// Loop runs a RepoFunc over repositories strictly one after another
type Loop struct {
	guard    Checkpointer
	logger   *slog.Logger
	progress Progress
}

// NewLoop creates a loop. guard may be nil.
func NewLoop(guard Checkpointer, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loop{guard: guard, logger: logger}
}

// WithProgress reports each finished repository to p
func (l *Loop) WithProgress(p Progress) *Loop {
	l.progress = p
	return l
}

// Run calls fn for each repository, checking the rate-limit guard before the loop and
// between repositories. A repository failure is recorded and the loop continues; only
// context cancellation stops it.
func (l *Loop) Run(ctx context.Context, repos []github.Repository, results *Results, fn RepoFunc) error {
	for _, repo := range repos {
		if err := l.checkpoint(ctx); err != nil {
			return err
		}

		if err := fn(ctx, repo); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			results.AddError(repo.FullName, err)
			l.logger.Error("repository failed",
				"repo", repo.FullName,
				"category", github.Category(err),
				"error", err,
			)
		}

		if l.progress != nil {
			l.progress.Increment()
		}
	}

	return nil
}

func (l *Loop) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.guard == nil {
		return nil
	}

	err := l.guard.Checkpoint(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("waiting for rate limit reset: %w", err)
	default:
		// The guard still holds the quota seen in the last response.
		l.logger.Warn("rate limit poll failed", "error", err)
		return nil
	}
}
