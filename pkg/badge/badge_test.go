package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linkURL = "https://example.org/lifecycle"

func TestRewriter_Apply(t *testing.T) {
	tests := []struct {
		name         string
		replacements []Replacement
		input        string
		expected     string
		changed      bool
	}{
		{
			name:     "wraps unlinked badge",
			input:    "# App\n![badge-labs](https://cdn.example.org/labs.svg)\n",
			expected: "# App\n[![badge-labs](https://cdn.example.org/labs.svg)](" + linkURL + ")\n",
			changed:  true,
		},
		{
			name:     "already wrapped badge is unchanged",
			input:    "[![badge-labs](https://cdn.example.org/labs.svg)](" + linkURL + ")",
			expected: "[![badge-labs](https://cdn.example.org/labs.svg)](" + linkURL + ")",
			changed:  false,
		},
		{
			name:     "badge linked elsewhere is left alone",
			input:    "[![badge-stable](https://cdn.example.org/stable.svg)](https://other.example.org)",
			expected: "[![badge-stable](https://cdn.example.org/stable.svg)](https://other.example.org)",
			changed:  false,
		},
		{
			name:     "badge beside other link text is left alone",
			input:    "[Status ![badge-labs](https://x/labs.svg)](https://other)",
			expected: "[Status ![badge-labs](https://x/labs.svg)](https://other)",
			changed:  false,
		},
		{
			name:     "badge after a closed link is wrapped",
			input:    "[docs](https://docs) ![badge-labs](x/labs.svg) [see](https://see)",
			expected: "[docs](https://docs) [![badge-labs](x/labs.svg)](" + linkURL + ") [see](https://see)",
			changed:  true,
		},
		{
			name:     "bracketed prose is not a link",
			input:    "[draft] ![badge-labs](x/labs.svg) [wip]",
			expected: "[draft] [![badge-labs](x/labs.svg)](" + linkURL + ") [wip]",
			changed:  true,
		},
		{
			name:     "blank line ends the link search",
			input:    "[intro\n\n![badge-labs](x/labs.svg)](https://other)",
			expected: "[intro\n\n[![badge-labs](x/labs.svg)](" + linkURL + ")](https://other)",
			changed:  true,
		},
		{
			name:     "no badge",
			input:    "# App\n![build](https://ci.example.org/status.svg)\n",
			expected: "# App\n![build](https://ci.example.org/status.svg)\n",
			changed:  false,
		},
		{
			name:     "non svg image is ignored",
			input:    "![badge-labs](https://cdn.example.org/labs.png)",
			expected: "![badge-labs](https://cdn.example.org/labs.png)",
			changed:  false,
		},
		{
			name:     "wraps several badges and keeps wrapped ones",
			input:    "![badge-labs](a/labs.svg) [![badge-beta](a/beta.svg)](" + linkURL + ") ![badge-ga](a/ga.svg)",
			expected: "[![badge-labs](a/labs.svg)](" + linkURL + ") [![badge-beta](a/beta.svg)](" + linkURL + ") [![badge-ga](a/ga.svg)](" + linkURL + ")",
			changed:  true,
		},
		{
			name:         "renames stage then wraps",
			replacements: []Replacement{{Old: "labs", New: "incubating"}},
			input:        "![badge-labs](https://cdn.example.org/labs.svg)",
			expected:     "[![badge-incubating](https://cdn.example.org/incubating.svg)](" + linkURL + ")",
			changed:      true,
		},
		{
			name:         "renames inside an already wrapped badge",
			replacements: []Replacement{{Old: "badge-labs", New: "badge-incubating"}},
			input:        "[![badge-labs](x/badge-labs.svg)](" + linkURL + ")",
			expected:     "[![badge-incubating](x/badge-incubating.svg)](" + linkURL + ")",
			changed:      true,
		},
		{
			name:         "replacements do not touch prose",
			replacements: []Replacement{{Old: "labs", New: "incubating"}},
			input:        "Built in the labs. [![badge-ga](x/ga.svg)](" + linkURL + ")",
			expected:     "Built in the labs. [![badge-ga](x/ga.svg)](" + linkURL + ")",
			changed:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rewriter, err := New(linkURL, tt.replacements)
			require.NoError(t, err)

			got, changed := rewriter.Apply(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.changed, changed)

			again, changedAgain := rewriter.Apply(got)
			assert.Equal(t, got, again, "applying twice must not change the output")
			assert.False(t, changedAgain)
		})
	}
}

func TestRewriter_NoLinkURLOnlyReplaces(t *testing.T) {
	rewriter, err := New("", []Replacement{{Old: "labs", New: "incubating"}})
	require.NoError(t, err)

	got, changed := rewriter.Apply("![badge-labs](x/labs.svg)")
	assert.True(t, changed)
	assert.Equal(t, "![badge-incubating](x/incubating.svg)", got)
}

func TestRewriter_Transform(t *testing.T) {
	rewriter, err := New(linkURL, nil)
	require.NoError(t, err)

	got, changed := rewriter.Transform("README.md", "![badge-labs](x/labs.svg)")
	assert.True(t, changed)
	assert.Equal(t, "[![badge-labs](x/labs.svg)]("+linkURL+")", got)
}

func TestNew_RejectsNonIdempotentReplacements(t *testing.T) {
	tests := []struct {
		name         string
		replacements []Replacement
	}{
		{"empty old", []Replacement{{Old: "", New: "x"}}},
		{"new contains old", []Replacement{{Old: "labs", New: "labs-archived"}}},
		{"later output consumed by earlier rule", []Replacement{
			{Old: "beta", New: "ga"},
			{Old: "labs", New: "beta"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(linkURL, tt.replacements)
			assert.Error(t, err)
		})
	}
}

func TestNew_AcceptsChainedReplacementsInOrder(t *testing.T) {
	rewriter, err := New(linkURL, []Replacement{
		{Old: "labs", New: "beta"},
		{Old: "beta", New: "ga"},
	})
	require.NoError(t, err)

	got, _ := rewriter.Apply("![badge-labs](x/labs.svg)")
	again, changed := rewriter.Apply(got)
	assert.Equal(t, got, again)
	assert.False(t, changed)
}

func TestFind(t *testing.T) {
	content := "![badge-labs](x/labs.svg) text [![badge-ga](x/ga.svg)](" + linkURL + ")"
	assert.Equal(t, []string{"badge-labs", "badge-ga"}, Find(content))
	assert.Empty(t, Find("no badges"))
}

func TestReplacementsFromMap(t *testing.T) {
	got := ReplacementsFromMap(map[string]string{
		"labs":       "incubating",
		"deprecated": "retired",
		"beta":       "preview",
	})

	assert.Equal(t, []Replacement{
		{Old: "beta", New: "preview"},
		{Old: "deprecated", New: "retired"},
		{Old: "labs", New: "incubating"},
	}, got)
}
