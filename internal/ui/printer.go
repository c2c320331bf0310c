package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muurk/wifiprov/internal/supervisor"
)

// Printer writes styled components to a writer. Commands print through
// it rather than to stdout directly.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer for w. If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Width returns the width components are rendered at
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details map[string]string) {
	p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
}

// PrintError prints a failure box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintNetworks prints the saved network list
func (p *Printer) PrintNetworks(ssids []string, capacity int) {
	p.Println(RenderNetworks(ssids, capacity, p.width))
}

// PrintStatus prints a supervisor snapshot
func (p *Printer) PrintStatus(st supervisor.Status) {
	p.Println(RenderStatus(st, time.Now()))
}
