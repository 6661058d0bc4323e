package workflow

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"orgops/pkg/github"
)

// Skip reasons recorded by the bulk operations
const (
	ReasonNoMatch        = "no match"
	ReasonExistingPR     = "existing PR"
	ReasonAlreadyGranted = "already granted"
	ReasonExists         = "already exists"
	ReasonFiltered       = "filtered"
)

// Update is a repository that was changed
type Update struct {
	Repo   string `json:"repo"`
	Detail string `json:"detail,omitempty"`
}

// Skip is a repository that needed no change
type Skip struct {
	Repo   string `json:"repo"`
	Reason string `json:"reason"`
}

// Plan is a change a dry run would have made
type Plan struct {
	Repo    string   `json:"repo"`
	Changes []string `json:"changes"`
}

// Failure is a repository whose processing failed
type Failure struct {
	Repo     string `json:"repo"`
	Err      error  `json:"-"`
	Category string `json:"category"`
}

// Results accumulates the outcome of one bulk run. Every per-repository loop receives
// the same *Results and records exactly one entry per repository it touches.
type Results struct {
	mu      sync.Mutex
	Updated []Update  `json:"updated"`
	Skipped []Skip    `json:"skipped"`
	Planned []Plan    `json:"planned"`
	Errors  []Failure `json:"errors"`
}

// NewResults creates an empty accumulator
func NewResults() *Results {
	return &Results{}
}

// AddUpdated records a changed repository
func (r *Results) AddUpdated(repo, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updated = append(r.Updated, Update{Repo: repo, Detail: detail})
}

// AddSkipped records a repository that needed no change
func (r *Results) AddSkipped(repo, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, Skip{Repo: repo, Reason: reason})
}

// AddPlanned records what a dry run would have changed
func (r *Results) AddPlanned(repo string, changes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Planned = append(r.Planned, Plan{Repo: repo, Changes: changes})
}

// AddError records a failed repository with its error category
func (r *Results) AddError(repo string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, Failure{Repo: repo, Err: err, Category: github.Category(err)})
}

// HasErrors reports whether any repository failed
func (r *Results) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors) > 0
}

// Total returns the number of recorded repositories
func (r *Results) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Updated) + len(r.Skipped) + len(r.Planned) + len(r.Errors)
}

// SkipReasons counts skipped repositories by reason
func (r *Results) SkipReasons() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for _, s := range r.Skipped {
		counts[s.Reason]++
	}
	return counts
}

// Err returns nil when every repository succeeded, or a PartialFailureError listing
// the failed repositories.
func (r *Results) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Errors) == 0 {
		return nil
	}

	succeeded := make([]string, 0, len(r.Updated)+len(r.Skipped)+len(r.Planned))
	for _, u := range r.Updated {
		succeeded = append(succeeded, u.Repo)
	}
	for _, s := range r.Skipped {
		succeeded = append(succeeded, s.Repo)
	}
	for _, p := range r.Planned {
		succeeded = append(succeeded, p.Repo)
	}

	failed := make(map[string]error, len(r.Errors))
	for _, f := range r.Errors {
		failed[f.Repo] = f.Err
	}

	return github.NewPartialFailureError(succeeded, failed)
}

// FailedRepos returns the failed repositories sorted by name
func (r *Results) FailedRepos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	repos := make([]string, 0, len(r.Errors))
	for _, f := range r.Errors {
		repos = append(repos, f.Repo)
	}
	sort.Strings(repos)
	return repos
}

// String renders a one-line count summary
func (r *Results) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	parts := []string{
		fmt.Sprintf("%d updated", len(r.Updated)),
		fmt.Sprintf("%d skipped", len(r.Skipped)),
	}
	if len(r.Planned) > 0 {
		parts = append(parts, fmt.Sprintf("%d planned", len(r.Planned)))
	}
	parts = append(parts, fmt.Sprintf("%d failed", len(r.Errors)))
	return strings.Join(parts, ", ")
}
