package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/MimeLyc/srt-translator/internal/service"
)

// progressPrinter renders job telemetry for the translate command. On a
// terminal it redraws a single status line; otherwise it prints one line
// per event.
type progressPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	terminal bool
	width    int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, terminal: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *progressPrinter) Progress(ev service.ProgressEvent) {
	line := formatProgress(ev)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.terminal {
		fmt.Fprintln(p.w, line)
		return
	}
	pad := max(p.width-len(line), 0)
	fmt.Fprintf(p.w, "\r%s%s", line, strings.Repeat(" ", pad))
	p.width = len(line)
}

func (p *progressPrinter) BatchStatus(ev service.BatchStatus) {
	if ev.Status != service.BatchError {
		return
	}
	p.println(fmt.Sprintf("batch %d/%d (cues %d-%d) failed: %s", ev.BatchNo+1, ev.TotalBatches, ev.CueStart, ev.CueEnd, ev.ErrorMsg))
}

func (p *progressPrinter) Warning(ev service.WarningEvent) {
	p.println("warning: " + ev.Message)
}

// finish ends a pending status line.
func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal && p.width > 0 {
		fmt.Fprintln(p.w)
		p.width = 0
	}
}

func (p *progressPrinter) println(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal && p.width > 0 {
		fmt.Fprintln(p.w)
		p.width = 0
	}
	fmt.Fprintln(p.w, msg)
}

func formatProgress(ev service.ProgressEvent) string {
	line := fmt.Sprintf("%s  %d/%d cues  %5.1f%%", ev.FileName, ev.DoneCues, ev.TotalCues, ev.Percent)
	if ev.DoneCues < ev.TotalCues && ev.ETASeconds > 0 {
		line += "  eta " + (time.Duration(ev.ETASeconds) * time.Second).String()
	}
	return line
}
