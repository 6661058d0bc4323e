// Package packages deletes organization packages.
package packages

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"orgops/pkg/github"
	"orgops/pkg/workflow"
)

// Types accepted by the GitHub packages API
var Types = []string{"npm", "maven", "rubygems", "docker", "nuget", "container"}

// Deleter deletes packages matching a filter. Package deletion needs a token with the
// delete:packages scope, so the client should be built from GITHUB_PAT.
type Deleter struct {
	client github.APIClient
	loop   *workflow.Loop
	logger *slog.Logger

	DryRun bool
}

// NewDeleter creates a deleter. loop may be nil.
func NewDeleter(client github.APIClient, loop *workflow.Loop, logger *slog.Logger) *Deleter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loop == nil {
		loop = workflow.NewLoop(nil, logger)
	}
	return &Deleter{client: client, loop: loop, logger: logger}
}

// ValidType reports whether packageType is known to the packages API
func ValidType(packageType string) bool {
	for _, t := range Types {
		if t == packageType {
			return true
		}
	}
	return false
}

// Delete removes every package of packageType whose name matches filter. An empty filter
// matches all packages. Results are keyed org/type/name.
func (d *Deleter) Delete(ctx context.Context, org, packageType, filter string, results *workflow.Results) error {
	if !ValidType(packageType) {
		return fmt.Errorf("unknown package type %q", packageType)
	}

	var re *regexp.Regexp
	if filter != "" {
		var err error
		if re, err = regexp.Compile(filter); err != nil {
			return fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}

	pkgs, err := d.client.ListPackages(ctx, org, packageType)
	if err != nil {
		return fmt.Errorf("listing %s packages: %w", packageType, err)
	}

	var targets []github.Repository
	for _, p := range pkgs {
		key := fmt.Sprintf("%s/%s/%s", org, packageType, p.Name)
		if re != nil && !re.MatchString(p.Name) {
			results.AddSkipped(key, workflow.ReasonFiltered)
			continue
		}
		targets = append(targets, github.Repository{Owner: org, Name: p.Name, FullName: key})
	}

	d.logger.Info("packages selected", "type", packageType, "matched", len(targets), "total", len(pkgs))

	return d.loop.Run(ctx, targets, results, func(ctx context.Context, target github.Repository) error {
		if d.DryRun {
			results.AddPlanned(target.FullName, "delete package")
			return nil
		}

		if err := d.client.DeletePackage(ctx, org, packageType, target.Name); err != nil {
			return fmt.Errorf("deleting package: %w", err)
		}

		d.logger.Info("deleted package", "package", target.FullName)
		results.AddUpdated(target.FullName, "deleted")
		return nil
	})
}
