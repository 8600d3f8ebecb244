package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	colorOK   = lipgloss.Color("#2CD7C7")
	colorWarn = lipgloss.Color("#F4D03F")
	colorErr  = lipgloss.Color("#E74C3C")
	colorDim  = lipgloss.Color("#6C7A89")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorOK)
	okStyle    = lipgloss.NewStyle().Foreground(colorOK)
	warnStyle  = lipgloss.NewStyle().Foreground(colorWarn)
	errStyle   = lipgloss.NewStyle().Foreground(colorErr)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// printer writes human-facing command output. Styling is dropped when the
// destination is not a terminal so output stays pipeable.
type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer) *printer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &printer{w: w, styled: styled}
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *printer) Title(text string) {
	fmt.Fprintln(p.w, p.render(titleStyle, text))
	fmt.Fprintln(p.w, strings.Repeat("─", len(text)))
}

func (p *printer) Section(text string) {
	fmt.Fprintf(p.w, "\n%s\n", p.render(titleStyle, text))
}

func (p *printer) Field(key string, value interface{}) {
	fmt.Fprintf(p.w, "  %-20s %v\n", key+":", value)
}

func (p *printer) OK(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(okStyle, "✓"), fmt.Sprintf(format, args...))
}

func (p *printer) Warn(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(warnStyle, "⚠"), fmt.Sprintf(format, args...))
}

func (p *printer) Fail(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(errStyle, "✗"), fmt.Sprintf(format, args...))
}

func (p *printer) Muted(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.render(dimStyle, fmt.Sprintf(format, args...)))
}
