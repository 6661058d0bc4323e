package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"syscall"

	"github.com/google/go-github/v66/github"
)

// ErrorType is the category a failed GitHub call is reported under
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// GitHubError is a classified failure of one API call. Resource names what the
// call touched, e.g. "repository acme/app" or "team acme/core".
type GitHubError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Resource  string    `json:"resource,omitempty"`
	Field     string    `json:"field,omitempty"`
	Code      string    `json:"code,omitempty"`
	Retryable bool      `json:"retryable"`
}

func (e *GitHubError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s on %s: %s", e.Type, e.Resource, e.Message)
}

func (e *GitHubError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether repeating the call may succeed
func (e *GitHubError) IsRetryable() bool {
	return e.Retryable
}

func (e *GitHubError) withResource(resource string) *GitHubError {
	e.Resource = resource
	return e
}

// NewGitHubError builds an error of the given category
func NewGitHubError(errorType ErrorType, message string, cause error) *GitHubError {
	return &GitHubError{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryableErrorType(errorType),
	}
}

// WrapGitHubError classifies err for resource. An error chain that already holds
// a *GitHubError returns that error, tagged with resource if it had none.
func WrapGitHubError(err error, resource string) *GitHubError {
	if err == nil {
		return nil
	}

	var classified *GitHubError
	if errors.As(err, &classified) {
		if classified.Resource == "" {
			classified.Resource = resource
		}
		return classified
	}

	var primary *github.RateLimitError
	if errors.As(err, &primary) {
		msg := fmt.Sprintf("primary rate limit exhausted until %s", primary.Rate.Reset.Time.Format("15:04:05"))
		return NewGitHubError(ErrorTypeRateLimit, msg, err).withResource(resource)
	}

	var secondary *github.AbuseRateLimitError
	if errors.As(err, &secondary) {
		return NewGitHubError(ErrorTypeRateLimit, "secondary rate limit hit, backing off", err).withResource(resource)
	}

	var resp *github.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		return parseGitHubAPIError(resp, resource)
	}

	if isNetworkError(err) {
		return NewGitHubError(ErrorTypeNetwork, "could not reach GitHub: "+err.Error(), err).withResource(resource)
	}

	return NewGitHubError(ErrorTypeUnknown, err.Error(), err).withResource(resource)
}

// statusClass maps an HTTP status to its category and the message shown when
// GitHub's own message is not more useful.
type statusClass struct {
	errorType ErrorType
	message   string
}

var statusClasses = map[int]statusClass{
	http.StatusUnauthorized:        {ErrorTypeAuth, "token rejected; run 'orgops auth status' or refresh GITHUB_TOKEN"},
	http.StatusForbidden:           {ErrorTypePermission, "token lacks access"},
	http.StatusNotFound:            {ErrorTypeNotFound, "does not exist or is not visible to this token"},
	http.StatusConflict:            {ErrorTypeConflict, "conflicts with the current state"},
	http.StatusUnprocessableEntity: {ErrorTypeValidation, "rejected by GitHub"},
}

// scopeHints suggest what a 403 on a resource usually means in orgops
var scopeHints = []struct {
	prefix string
	hint   string
}{
	{"package", "package deletion needs GITHUB_PAT with delete:packages"},
	{"team", "team changes need the admin:org scope"},
	{"branch protection", "branch protection needs admin rights on the repository"},
	{"branch", "the token needs the repo scope"},
	{"collaborator", "granting access needs admin rights on the repository"},
	{"organization", "the token needs the admin:org scope"},
	{"repository", "the token needs the repo scope"},
}

func parseGitHubAPIError(resp *github.ErrorResponse, resource string) *GitHubError {
	status := resp.Response.StatusCode

	class, known := statusClasses[status]
	switch {
	case status == http.StatusForbidden && strings.Contains(strings.ToLower(resp.Message), "rate limit"):
		class = statusClass{ErrorTypeRateLimit, "rate limit exceeded"}
	case status >= http.StatusInternalServerError:
		class = statusClass{ErrorTypeNetwork, fmt.Sprintf("GitHub answered %d, try again later", status)}
	case !known:
		class = statusClass{ErrorTypeUnknown, resp.Message}
	}

	e := NewGitHubError(class.errorType, class.message, resp).withResource(resource)

	switch class.errorType {
	case ErrorTypePermission:
		e.Message = withDetail(class.message, resp.Message)
		for _, h := range scopeHints {
			if strings.HasPrefix(resource, h.prefix) {
				e.Message += " (" + h.hint + ")"
				break
			}
		}
	case ErrorTypeConflict:
		e.Message = withDetail(class.message, resp.Message)
	case ErrorTypeValidation:
		e.Message = withDetail(class.message, validationDetail(resp, e))
	}
	return e
}

// validationDetail flattens the field errors of a 422 and records the first
// field and code on e
func validationDetail(resp *github.ErrorResponse, e *GitHubError) string {
	if len(resp.Errors) == 0 {
		return resp.Message
	}
	parts := make([]string, 0, len(resp.Errors))
	for _, fe := range resp.Errors {
		if fe.Field == "" {
			parts = append(parts, fe.Message)
			continue
		}
		parts = append(parts, fe.Field+": "+fe.Message)
		if e.Field == "" {
			e.Field, e.Code = fe.Field, fe.Code
		}
	}
	return strings.Join(parts, "; ")
}

func withDetail(message, detail string) string {
	if detail == "" {
		return message
	}
	return message + ": " + detail
}

// isNetworkError reports transport failures that never produced an HTTP response
func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

func isRetryableErrorType(errorType ErrorType) bool {
	return errorType == ErrorTypeRateLimit || errorType == ErrorTypeNetwork
}

// Category returns the category of err, or "generic" when err did not come
// from the GitHub API
func Category(err error) string {
	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		return string(ghErr.Type)
	}
	return "generic"
}

func IsNotFound(err error) bool  { return hasType(err, ErrorTypeNotFound) }
func IsRateLimit(err error) bool { return hasType(err, ErrorTypeRateLimit) }
func IsAuth(err error) bool      { return hasType(err, ErrorTypeAuth) }

func hasType(err error, errorType ErrorType) bool {
	var ghErr *GitHubError
	return errors.As(err, &ghErr) && ghErr.Type == errorType
}

// ValidationError is one bad input found before any API call is made
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Message)
}

// ValidationErrors collects every bad input so they can be reported together
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "invalid input"
	case 1:
		return "invalid input: " + e[0].Error()
	}
	lines := make([]string, len(e))
	for i := range e {
		lines[i] = e[i].Error()
	}
	return fmt.Sprintf("%d invalid inputs: %s", len(e), strings.Join(lines, "; "))
}

// Add records a bad input
func (e *ValidationErrors) Add(field, value, message string) {
	*e = append(*e, ValidationError{Field: field, Value: value, Message: message})
}

func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// PartialFailureError reports a batch run in which some items failed
type PartialFailureError struct {
	Succeeded []string         `json:"succeeded"`
	Failed    map[string]error `json:"failed"`
}

func NewPartialFailureError(succeeded []string, failed map[string]error) *PartialFailureError {
	return &PartialFailureError{Succeeded: succeeded, Failed: failed}
}

func (e *PartialFailureError) Error() string {
	failed := e.GetFailedOperations()
	return fmt.Sprintf("%d of %d items failed: %s",
		len(failed), len(failed)+len(e.Succeeded), strings.Join(failed, ", "))
}

// GetFailedOperations returns the failed items sorted by name
func (e *PartialFailureError) GetFailedOperations() []string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *PartialFailureError) GetSucceededOperations() []string {
	return e.Succeeded
}
