// Package badge rewrites maturity badges in README files.
package badge

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// badgePattern matches a badge image such as ![badge-labs](https://host/labs.svg)
var badgePattern = regexp.MustCompile(`!\[(badge-[A-Za-z0-9_-]+)\]\(([^)\s]+\.svg)\)`)

// Replacement renames a badge stage, e.g. badge-labs to badge-incubating
type Replacement struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

// Rewriter applies stage replacements and links unlinked badges to LinkURL
type Rewriter struct {
	LinkURL      string
	Replacements []Replacement
}

// New creates a rewriter after checking that applying it twice gives the same result
// as applying it once.
func New(linkURL string, replacements []Replacement) (*Rewriter, error) {
	if err := validateReplacements(replacements); err != nil {
		return nil, err
	}

	return &Rewriter{
		LinkURL:      strings.TrimSpace(linkURL),
		Replacements: replacements,
	}, nil
}

func validateReplacements(replacements []Replacement) error {
	for i, r := range replacements {
		if r.Old == "" {
			return fmt.Errorf("replacement %d: old value is empty", i+1)
		}
		if strings.Contains(r.New, r.Old) {
			return fmt.Errorf("replacement %d: %q contains %q and would be rewritten again", i+1, r.New, r.Old)
		}
		for j := 0; j < i; j++ {
			if strings.Contains(r.New, replacements[j].Old) {
				return fmt.Errorf("replacement %d: %q is rewritten by earlier replacement %q on the next run", i+1, r.New, replacements[j].Old)
			}
		}
	}
	return nil
}

// Apply rewrites content and reports whether anything changed
func (r *Rewriter) Apply(content string) (string, bool) {
	out := content

	if len(r.Replacements) > 0 {
		out = badgePattern.ReplaceAllStringFunc(out, func(badge string) string {
			for _, rep := range r.Replacements {
				badge = strings.ReplaceAll(badge, rep.Old, rep.New)
			}
			return badge
		})
	}

	if r.LinkURL != "" {
		out = r.wrap(out)
	}

	return out, out != content
}

// Transform adapts Apply to the pull request workflow
func (r *Rewriter) Transform(_ string, content string) (string, bool) {
	return r.Apply(content)
}

// wrap links every badge image that is not already the text of a link
func (r *Rewriter) wrap(content string) string {
	matches := badgePattern.FindAllStringIndex(content, -1)
	if len(matches) == 0 {
		return content
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		b.WriteString(content[last:start])

		image := content[start:end]
		if isLinked(content, start, end) {
			b.WriteString(image)
		} else {
			fmt.Fprintf(&b, "[%s](%s)", image, r.LinkURL)
		}
		last = end
	}
	b.WriteString(content[last:])

	return b.String()
}

// isLinked reports whether content[start:end] sits inside the text of a link,
// alone or next to other text. A blank line ends the search in both directions.
func isLinked(content string, start, end int) bool {
	depth := 0
	opened := false
	for i := start - 1; i >= 0 && !opened; i-- {
		switch content[i] {
		case ']':
			depth++
		case '[':
			if depth == 0 {
				opened = true
			} else {
				depth--
			}
		case '\n':
			if i > 0 && content[i-1] == '\n' {
				return false
			}
		}
	}
	if !opened {
		return false
	}

	depth = 0
	for j := end; j < len(content); j++ {
		switch content[j] {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return strings.HasPrefix(content[j+1:], "(")
			}
			depth--
		case '\n':
			if j+1 < len(content) && content[j+1] == '\n' {
				return false
			}
		}
	}
	return false
}

// Find returns the badge names present in content
func Find(content string) []string {
	var names []string
	for _, m := range badgePattern.FindAllStringSubmatch(content, -1) {
		names = append(names, m[1])
	}
	return names
}

// ReplacementsFromMap builds an ordered replacement list from a stage map, sorted by
// the old stage name.
func ReplacementsFromMap(stages map[string]string) []Replacement {
	keys := make([]string, 0, len(stages))
	for k := range stages {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	replacements := make([]Replacement, 0, len(keys))
	for _, k := range keys {
		replacements = append(replacements, Replacement{Old: k, New: stages[k]})
	}
	return replacements
}
