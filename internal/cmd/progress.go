package cmd

import (
	"os"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"
)

// progressBar reports repository loop progress on an interactive terminal
type progressBar struct {
	bar *pb.ProgressBar
}

// newProgress returns nil when out is not a terminal or there is nothing to count
func newProgress(total int, out *os.File) *progressBar {
	if total <= 1 || !term.IsTerminal(int(out.Fd())) {
		return nil
	}

	bar := pb.Full.New(total).SetWriter(out).Start()
	return &progressBar{bar: bar}
}

func (p *progressBar) Increment() {
	p.bar.Increment()
}

func (p *progressBar) Finish() {
	p.bar.Finish()
}
