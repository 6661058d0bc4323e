// Package github wraps the GitHub REST API for organisation-wide maintenance.
//
// The package includes:
// - APIClient, the narrow interface every bulk operation is written against
// - Client, the go-github backed implementation with retries and error categories
// - RateLimitGuard, which pauses sequential loops when the core quota runs low
// - AuthManager, which resolves a token from the environment, config or gh CLI
package github
