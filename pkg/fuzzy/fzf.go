// Package fuzzy picks one option interactively, with fzf when it can run and a numbered
// list otherwise.
package fuzzy

import (
	"fmt"
	"io"
	"os"
	"strings"

	fzf "github.com/junegunn/fzf/src"
)

const separator = "  │  "

// FzfRunner runs fzf. Tests replace it.
type FzfRunner interface {
	Run(opts *fzf.Options) (int, error)
}

// DefaultFzfRunner runs the embedded fzf library
type DefaultFzfRunner struct{}

// Run executes fzf with the given options
func (r *DefaultFzfRunner) Run(opts *fzf.Options) (int, error) {
	return fzf.Run(opts)
}

// Selector picks one option
type Selector interface {
	SetOptions(options []Option) error
	Select() (string, error)
}

// FzfFinder implements fuzzy finding using the fzf library
type FzfFinder struct {
	options []Option
	prompt  string
	runner  FzfRunner

	// fallback input and output for the numbered list
	in  io.Reader
	out io.Writer
}

var _ Selector = (*FzfFinder)(nil)

// NewFzf creates a new fzf-style fuzzy finder
func NewFzf(prompt string) *FzfFinder {
	return NewFzfWithRunner(prompt, &DefaultFzfRunner{})
}

// NewFzfWithRunner creates a finder with a custom runner
func NewFzfWithRunner(prompt string, runner FzfRunner) *FzfFinder {
	return &FzfFinder{
		prompt:  prompt,
		options: make([]Option, 0),
		runner:  runner,
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

// WithFallbackIO sets where the numbered fallback reads and writes
func (f *FzfFinder) WithFallbackIO(in io.Reader, out io.Writer) *FzfFinder {
	f.in = in
	f.out = out
	return f
}

// SetOptions sets the available options for selection
func (f *FzfFinder) SetOptions(options []Option) error {
	if options == nil {
		return fmt.Errorf("options cannot be nil")
	}

	f.options = make([]Option, len(options))
	copy(f.options, options)
	return nil
}

// Select runs fzf over the options and returns the chosen value. When fzf fails to
// start, the numbered list is used instead.
func (f *FzfFinder) Select() (string, error) {
	if len(f.options) == 0 {
		return "", fmt.Errorf("no options available")
	}

	opts, err := fzf.ParseOptions(true, []string{
		"--prompt=" + f.prompt + " ",
		"--height=10",
		"--no-multi",
		"--cycle",
		"--tiebreak=length",
		"--no-mouse",
		"--border=none",
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse fzf options: %w", err)
	}

	// Both channels are buffered so fzf never blocks on them and no feeder goroutine
	// outlives the call.
	input := make(chan string, len(f.options))
	for _, option := range f.options {
		input <- display(option)
	}
	close(input)

	output := make(chan string, len(f.options))
	opts.Input = input
	opts.Output = output

	exitCode, err := f.runner.Run(opts)
	if err != nil {
		return f.fallbackSelect()
	}
	if exitCode != fzf.ExitOk {
		return "", fmt.Errorf("fzf selection cancelled or failed")
	}

	var selected string
	select {
	case selected = <-output:
	default:
	}

	selected = strings.TrimSpace(selected)
	if selected == "" {
		return "", fmt.Errorf("no selection made")
	}

	value := strings.TrimSpace(strings.SplitN(selected, separator, 2)[0])
	for _, option := range f.options {
		if option.Value == value {
			return option.Value, nil
		}
	}
	return "", fmt.Errorf("fzf returned unknown option %q", value)
}

func display(option Option) string {
	if option.Description == "" {
		return option.Value
	}
	return option.Value + separator + option.Description
}

func (f *FzfFinder) fallbackSelect() (string, error) {
	finder := NewWithIO(f.prompt, f.in, f.out)
	for _, option := range f.options {
		finder.AddOption(option.Value, option.Description)
	}
	return finder.SelectWithFilter()
}
