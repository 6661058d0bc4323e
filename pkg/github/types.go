package github

import "time"

// Repository represents a GitHub repository
type Repository struct {
	ID            int64     `json:"id"`
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	DefaultBranch string    `json:"default_branch"`
	Private       bool      `json:"private"`
	Archived      bool      `json:"archived"`
	IsTemplate    bool      `json:"is_template"`
	HTMLURL       string    `json:"html_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// Organization represents a GitHub organization
type Organization struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Collaborator represents a repository collaborator
type Collaborator struct {
	Username   string `json:"username" yaml:"username"`
	Permission string `json:"permission" yaml:"permission"`
}

// TeamAccess represents team access to a repository
type TeamAccess struct {
	TeamSlug   string `json:"team_slug" yaml:"team"`
	TeamName   string `json:"team_name,omitempty" yaml:"name,omitempty"`
	Permission string `json:"permission" yaml:"permission"`
}

// Team represents an organization team
type Team struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Privacy string `json:"privacy"`
}

// FileContent is a decoded file read through the Contents API
type FileContent struct {
	Path    string `json:"path"`
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

// FileUpdate commits one file through the Contents API. An empty SHA creates the file.
type FileUpdate struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
	Message string `json:"message"`
}

// PullRequest represents an open pull request
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HeadRef string `json:"head_ref"`
	HTMLURL string `json:"html_url"`
}

// PullRequestSpec describes a pull request to open
type PullRequestSpec struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Draft bool   `json:"draft"`
}

// TemplateRequest describes a repository generated from a template
type TemplateRequest struct {
	Owner              string `json:"owner"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	Private            bool   `json:"private"`
	IncludeAllBranches bool   `json:"include_all_branches"`
}

// BranchProtectionRule defines the protection applied to a branch
type BranchProtectionRule struct {
	RequiredReviews        int  `json:"required_reviews" yaml:"required_reviews"`
	DismissStaleReviews    bool `json:"dismiss_stale_reviews" yaml:"dismiss_stale_reviews"`
	RequireCodeOwnerReview bool `json:"require_code_owner_review" yaml:"require_code_owner_review"`
	EnforceAdmins          bool `json:"enforce_admins" yaml:"enforce_admins"`
}

// Package represents an organization package
type Package struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PackageType string `json:"package_type"`
	Visibility  string `json:"visibility"`
	Repository  string `json:"repository,omitempty"`
}

// RateStatus is the core REST quota as reported by GitHub
type RateStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// User represents a GitHub user
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}
