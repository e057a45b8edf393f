package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/morozRed/tangle/internal/tangle"
)

// tangleProgress prints one status line per document on an interactive
// stderr, counting the targets each document wrote.
type tangleProgress struct {
	out     io.Writer
	root    string
	total   int
	done    int
	written int
	failed  int
	start   time.Time
	lastLen int
}

func newTangleProgress(root string, total int, asJSON bool) *tangleProgress {
	stat, err := os.Stderr.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice == 0 || asJSON || total < 2 {
		return &tangleProgress{}
	}
	return &tangleProgress{out: os.Stderr, root: root, total: total, start: time.Now()}
}

// Document records the outcome of tangling one document.
func (p *tangleProgress) Document(path string, res *tangle.Result, err error) {
	p.done++
	if p.out == nil {
		return
	}
	name := path
	if rel, relErr := filepath.Rel(p.root, path); relErr == nil && !strings.HasPrefix(rel, "..") {
		name = rel
	}

	var status string
	if err != nil {
		p.failed++
		status = fmt.Sprintf("tangle %d/%d %s: failed", p.done, p.total, name)
	} else {
		written := 0
		for _, t := range res.Targets {
			if t.Changed {
				written++
			}
		}
		p.written += written
		status = fmt.Sprintf("tangle %d/%d %s: %d/%d targets written", p.done, p.total, name, written, len(res.Targets))
	}
	p.printStatus(status)
}

func (p *tangleProgress) Done() {
	if p.out == nil {
		return
	}
	elapsed := time.Since(p.start).Round(time.Millisecond)
	status := fmt.Sprintf("tangle complete: %d documents, %d targets written", p.done, p.written)
	if p.failed > 0 {
		status += fmt.Sprintf(", %d failed", p.failed)
	}
	p.printStatus(status + " in " + elapsed.String())
	fmt.Fprintln(p.out)
}

func (p *tangleProgress) printStatus(status string) {
	if p.lastLen > len(status) {
		status = status + strings.Repeat(" ", p.lastLen-len(status))
	}
	p.lastLen = len(status)
	fmt.Fprintf(p.out, "\r%s", status)
}
