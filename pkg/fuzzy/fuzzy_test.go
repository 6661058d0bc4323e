package fuzzy

import (
	"bytes"
	"strings"
	"testing"

	"orgops/pkg/github"
)

func newTestFinder(input string) (*Finder, *bytes.Buffer) {
	var out bytes.Buffer
	finder := NewWithIO("Select repository:", strings.NewReader(input), &out)
	finder.AddOption("acme/api", "Public API")
	finder.AddOption("acme/app", "Main application")
	finder.AddOption("acme/docs", "")
	return finder, &out
}

func TestSelect(t *testing.T) {
	finder, out := newTestFinder("2\n")

	selected, err := finder.Select()
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if selected != "acme/app" {
		t.Errorf("Expected 'acme/app', got '%s'", selected)
	}
	if !strings.Contains(out.String(), "1. acme/api - Public API") {
		t.Errorf("Expected numbered list, got %q", out.String())
	}
}

func TestSelectInvalid(t *testing.T) {
	tests := map[string]string{
		"not a number": "abc\n",
		"out of range": "9\n",
		"no input":     "",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			finder, _ := newTestFinder(input)
			if _, err := finder.Select(); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestSelectNoOptions(t *testing.T) {
	finder := NewWithIO("Empty", strings.NewReader("1\n"), &bytes.Buffer{})
	if _, err := finder.Select(); err == nil {
		t.Error("Expected error with no options")
	}
	if _, err := finder.SelectWithFilter(); err == nil {
		t.Error("Expected error with no options")
	}
}

func TestSelectWithFilter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"number", "3\n", "acme/docs"},
		{"unique filter auto-selects", "docs\n", "acme/docs"},
		{"filter by description", "public\n", "acme/api"},
		{"filter then pick", "acme/ap\n2\n", "acme/app"},
		{"retry after no match", "zzz\ndocs\n", "acme/docs"},
		{"retry after out of range", "7\n1\n", "acme/api"},
		{"refilter after empty choice", "acme/ap\n\napp\n", "acme/app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder, _ := newTestFinder(tt.input)

			selected, err := finder.SelectWithFilter()
			if err != nil {
				t.Fatalf("SelectWithFilter failed: %v", err)
			}
			if selected != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, selected)
			}
		})
	}
}

func TestSelectWithFilterEOF(t *testing.T) {
	finder, _ := newTestFinder("zzz\n")
	if _, err := finder.SelectWithFilter(); err == nil {
		t.Error("Expected error when input runs out")
	}
}

func TestFilterOptions(t *testing.T) {
	finder, _ := newTestFinder("")

	if got := finder.filterOptions("ACME/A"); len(got) != 2 {
		t.Errorf("Expected 2 matches, got %d", len(got))
	}
	if got := finder.filterOptions("application"); len(got) != 1 || got[0].Value != "acme/app" {
		t.Errorf("Expected description match on acme/app, got %v", got)
	}
	if got := finder.filterOptions("missing"); len(got) != 0 {
		t.Errorf("Expected no matches, got %d", len(got))
	}
}

func TestRepositoryOptions(t *testing.T) {
	options := RepositoryOptions([]github.Repository{
		{FullName: "acme/app", Description: "Main application"},
		{FullName: "acme/docs"},
	})

	if len(options) != 2 {
		t.Fatalf("Expected 2 options, got %d", len(options))
	}
	if options[0] != (Option{Value: "acme/app", Description: "Main application"}) {
		t.Errorf("Unexpected option: %+v", options[0])
	}
}
