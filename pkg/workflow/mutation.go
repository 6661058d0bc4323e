package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"orgops/pkg/github"
)

const prBodyMaxLen = 60000

// Transform rewrites the content of one file. It returns false when nothing matched.
type Transform func(path, content string) (string, bool)

// FileTarget is a file the mutation reads and rewrites
type FileTarget struct {
	Path string
	// CreateIfMissing passes an empty content to the transform when the file does not
	// exist, so the transform can create it.
	CreateIfMissing bool
}

// Mutation describes a file change proposed through a pull request on a fixed branch
type Mutation struct {
	Files         []FileTarget
	Transform     Transform
	Branch        string
	CommitMessage string
	Title         string
	Body          string
}

// Validate checks that the mutation can be applied
func (m Mutation) Validate() error {
	if len(m.Files) == 0 {
		return fmt.Errorf("mutation has no target files")
	}
	if m.Transform == nil {
		return fmt.Errorf("mutation has no transform")
	}
	if m.Branch == "" {
		return fmt.Errorf("mutation has no branch")
	}
	if m.Title == "" {
		return fmt.Errorf("mutation has no pull request title")
	}
	return nil
}

// Mutator applies mutations to repositories one at a time. At most one pull request is
// open per repository and branch, and a failed attempt deletes its branch.
type Mutator struct {
	client github.APIClient
	logger *slog.Logger

	// DryRun performs the reads only and records the planned changes
	DryRun bool

	// SkipExistingPR leaves repositories with an open pull request on the branch
	// alone. When false the pull request and its branch are removed before the new
	// commit; if that commit or the new pull request then fails, the repository is
	// left without one and the returned error names the closed pull requests.
	SkipExistingPR bool
}

// NewMutator creates a mutator that skips repositories with an open pull request
func NewMutator(client github.APIClient, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Mutator{
		client:         client,
		logger:         logger,
		SkipExistingPR: true,
	}
}

// pendingFile is a changed file waiting to be committed
type pendingFile struct {
	path    string
	sha     string
	content string
}

// Apply runs the mutation against one repository and records the outcome in results.
// Errors are returned, not recorded, so the caller decides how to report them.
func (m *Mutator) Apply(ctx context.Context, repo github.Repository, mutation Mutation, results *Results) error {
	if err := mutation.Validate(); err != nil {
		return err
	}

	log := m.logger.With("repo", repo.FullName, "branch", mutation.Branch)

	base := repo.DefaultBranch
	if base == "" {
		full, err := m.client.GetRepository(ctx, repo.Owner, repo.Name)
		if err != nil {
			return fmt.Errorf("resolving default branch: %w", err)
		}
		base = full.DefaultBranch
	}

	baseSHA, err := m.client.GetBranchSHA(ctx, repo.Owner, repo.Name, base)
	if err != nil {
		return fmt.Errorf("resolving head of %s: %w", base, err)
	}

	changes, err := m.collectChanges(ctx, repo, base, mutation)
	if err != nil {
		return err
	}

	if len(changes) == 0 {
		log.Debug("transform matched no file")
		results.AddSkipped(repo.FullName, ReasonNoMatch)
		return nil
	}

	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.path)
	}

	open, err := m.client.ListOpenPullRequests(ctx, repo.Owner, repo.Name, mutation.Branch)
	if err != nil {
		return fmt.Errorf("checking existing pull requests: %w", err)
	}

	if len(open) > 0 && m.SkipExistingPR {
		log.Info("open pull request exists", "pr", open[0].HTMLURL)
		results.AddSkipped(repo.FullName, ReasonExistingPR)
		return nil
	}

	if m.DryRun {
		planned := paths
		for _, pr := range open {
			planned = append(planned, fmt.Sprintf("replace pull request #%d", pr.Number))
		}
		log.Info("dry run: would open pull request", "files", paths)
		results.AddPlanned(repo.FullName, planned...)
		return nil
	}

	if err := m.clearBranch(ctx, repo, mutation.Branch, open, log); err != nil {
		return err
	}

	if err := m.client.CreateBranch(ctx, repo.Owner, repo.Name, mutation.Branch, baseSHA); err != nil {
		return fmt.Errorf("creating branch %s: %w", mutation.Branch, err)
	}

	pr, err := m.commitAndOpen(ctx, repo, base, mutation, changes)
	if err != nil {
		if len(open) > 0 {
			err = fmt.Errorf("%w (replaced %s already closed)", err, pullRequestNumbers(open))
		}
		if rbErr := m.client.DeleteBranch(ctx, repo.Owner, repo.Name, mutation.Branch); rbErr != nil && !github.IsNotFound(rbErr) {
			err = errors.Join(err, fmt.Errorf("deleting branch %s: %w", mutation.Branch, rbErr))
		} else {
			log.Warn("rolled back branch after failure")
		}
		return err
	}

	log.Info("opened pull request", "pr", pr.HTMLURL, "files", paths)
	results.AddUpdated(repo.FullName, pr.HTMLURL)
	return nil
}

// collectChanges reads every target file from the base branch and runs the transform
func (m *Mutator) collectChanges(ctx context.Context, repo github.Repository, base string, mutation Mutation) ([]pendingFile, error) {
	var changes []pendingFile

	for _, target := range mutation.Files {
		var current, sha string

		file, err := m.client.GetFile(ctx, repo.Owner, repo.Name, target.Path, base)
		switch {
		case err == nil:
			current, sha = file.Content, file.SHA
		case github.IsNotFound(err) && target.CreateIfMissing:
		case github.IsNotFound(err):
			continue
		default:
			return nil, fmt.Errorf("reading %s: %w", target.Path, err)
		}

		updated, changed := mutation.Transform(target.Path, current)
		if !changed || updated == current {
			continue
		}

		changes = append(changes, pendingFile{path: target.Path, sha: sha, content: updated})
	}

	return changes, nil
}

// clearBranch closes open pull requests on the branch and deletes the branch so it can
// be recreated from the current default branch head.
func (m *Mutator) clearBranch(ctx context.Context, repo github.Repository, branch string, open []github.PullRequest, log *slog.Logger) error {
	for _, pr := range open {
		if err := m.client.ClosePullRequest(ctx, repo.Owner, repo.Name, pr.Number); err != nil {
			return fmt.Errorf("closing pull request #%d: %w", pr.Number, err)
		}
		log.Info("closed existing pull request", "pr", pr.HTMLURL)
	}

	exists, err := m.client.BranchExists(ctx, repo.Owner, repo.Name, branch)
	if err != nil {
		return fmt.Errorf("checking branch %s: %w", branch, err)
	}
	if !exists {
		return nil
	}

	if len(open) == 0 {
		log.Info("deleting stale branch")
	}
	if err := m.client.DeleteBranch(ctx, repo.Owner, repo.Name, branch); err != nil {
		return fmt.Errorf("deleting branch %s: %w", branch, err)
	}
	return nil
}

func (m *Mutator) commitAndOpen(ctx context.Context, repo github.Repository, base string, mutation Mutation, changes []pendingFile) (*github.PullRequest, error) {
	message := mutation.CommitMessage
	if message == "" {
		message = mutation.Title
	}

	for _, c := range changes {
		update := github.FileUpdate{
			Path:    c.path,
			Content: c.content,
			SHA:     c.sha,
			Branch:  mutation.Branch,
			Message: message,
		}
		if err := m.client.PutFile(ctx, repo.Owner, repo.Name, update); err != nil {
			return nil, fmt.Errorf("committing %s: %w", c.path, err)
		}
	}

	body := truncateUTF8(mutation.Body, prBodyMaxLen)

	pr, err := m.client.CreatePullRequest(ctx, repo.Owner, repo.Name, github.PullRequestSpec{
		Title: mutation.Title,
		Body:  body,
		Head:  mutation.Branch,
		Base:  base,
	})
	if err != nil {
		return nil, fmt.Errorf("opening pull request: %w", err)
	}

	return pr, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func pullRequestNumbers(prs []github.PullRequest) string {
	numbers := make([]string, len(prs))
	for i, pr := range prs {
		numbers[i] = fmt.Sprintf("#%d", pr.Number)
	}
	return "pull request " + strings.Join(numbers, ", ")
}
