package fuzzy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"orgops/pkg/github"
)

// Option represents a selectable option in the fuzzy finder
type Option struct {
	Value       string
	Description string
}

// RepositoryOptions turns repositories into options keyed by full name
func RepositoryOptions(repos []github.Repository) []Option {
	options := make([]Option, 0, len(repos))
	for _, r := range repos {
		options = append(options, Option{Value: r.FullName, Description: r.Description})
	}
	return options
}

// Finder is the numbered-list selector used when fzf cannot run
type Finder struct {
	prompt  string
	options []Option
	in      *bufio.Reader
	out     io.Writer
}

// New creates a finder reading from stdin and writing to stdout
func New(prompt string) *Finder {
	return NewWithIO(prompt, os.Stdin, os.Stdout)
}

// NewWithIO creates a finder with explicit input and output
func NewWithIO(prompt string, in io.Reader, out io.Writer) *Finder {
	return &Finder{
		prompt:  prompt,
		options: make([]Option, 0),
		in:      bufio.NewReader(in),
		out:     out,
	}
}

// AddOption adds an option to the fuzzy finder
func (f *Finder) AddOption(value, description string) {
	f.options = append(f.options, Option{
		Value:       value,
		Description: description,
	})
}

// Select lists the options and reads a number
func (f *Finder) Select() (string, error) {
	if len(f.options) == 0 {
		return "", fmt.Errorf("no options available")
	}

	fmt.Fprintln(f.out, f.prompt)
	fmt.Fprintln(f.out, strings.Repeat("-", len(f.prompt)))
	f.list(f.options)

	fmt.Fprintf(f.out, "\nSelect option (1-%d): ", len(f.options))

	input, err := f.readLine()
	if err != nil {
		return "", err
	}

	selection, err := strconv.Atoi(input)
	if err != nil {
		return "", fmt.Errorf("invalid selection: %s", input)
	}
	if selection < 1 || selection > len(f.options) {
		return "", fmt.Errorf("selection out of range: %d", selection)
	}

	return f.options[selection-1].Value, nil
}

// SelectWithFilter reads either a number or a filter term. A filter with one match
// selects it; otherwise the filtered list is offered.
func (f *Finder) SelectWithFilter() (string, error) {
	if len(f.options) == 0 {
		return "", fmt.Errorf("no options available")
	}

	for {
		fmt.Fprintln(f.out, f.prompt)
		fmt.Fprintln(f.out, "Type to filter options, or enter a number to select:")
		fmt.Fprint(f.out, "Filter/Select: ")

		input, err := f.readLine()
		if err != nil {
			return "", err
		}
		if input == "" {
			continue
		}

		if selection, err := strconv.Atoi(input); err == nil {
			if selection >= 1 && selection <= len(f.options) {
				return f.options[selection-1].Value, nil
			}
			fmt.Fprintf(f.out, "Selection %d is out of range (1-%d)\n\n", selection, len(f.options))
			continue
		}

		filtered := f.filterOptions(input)
		switch len(filtered) {
		case 0:
			fmt.Fprintf(f.out, "No options match filter: %s\n\n", input)
			continue
		case 1:
			fmt.Fprintf(f.out, "Auto-selecting: %s\n", filtered[0].Value)
			return filtered[0].Value, nil
		}

		fmt.Fprintf(f.out, "\nFiltered options (matching '%s'):\n", input)
		f.list(filtered)
		fmt.Fprintf(f.out, "\nSelect from filtered options (1-%d), or press Enter to filter again: ", len(filtered))

		choice, err := f.readLine()
		if err != nil {
			return "", err
		}
		if choice == "" {
			fmt.Fprintln(f.out)
			continue
		}

		selection, err := strconv.Atoi(choice)
		if err != nil || selection < 1 || selection > len(filtered) {
			fmt.Fprintf(f.out, "Invalid selection: %s\n\n", choice)
			continue
		}

		return filtered[selection-1].Value, nil
	}
}

func (f *Finder) list(options []Option) {
	for i, option := range options {
		fmt.Fprintf(f.out, "%d. %s", i+1, option.Value)
		if option.Description != "" {
			fmt.Fprintf(f.out, " - %s", option.Description)
		}
		fmt.Fprintln(f.out)
	}
}

func (f *Finder) readLine() (string, error) {
	input, err := f.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}

// filterOptions matches value or description, case-insensitively
func (f *Finder) filterOptions(filter string) []Option {
	filter = strings.ToLower(filter)
	var filtered []Option

	for _, option := range f.options {
		if strings.Contains(strings.ToLower(option.Value), filter) ||
			strings.Contains(strings.ToLower(option.Description), filter) {
			filtered = append(filtered, option)
		}
	}

	return filtered
}
