package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Iron-Ham/jdecomp/internal/util"
	"github.com/charmbracelet/lipgloss"
)

// Printer renders entries as styled terminal lines.
type Printer struct {
	mu       sync.Mutex
	w        io.Writer
	catalog  *Catalog
	width    int
	minLevel Severity

	label  map[Severity]lipgloss.Style
	detail lipgloss.Style
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithWidth truncates every rendered line to width columns. Zero disables truncation.
func WithWidth(width int) PrinterOption {
	return func(p *Printer) { p.width = width }
}

// WithMinSeverity drops entries below min.
func WithMinSeverity(min Severity) PrinterOption {
	return func(p *Printer) { p.minLevel = min }
}

// NewPrinter creates a Printer writing to w. Colors are only emitted when w
// is a terminal that supports them.
func NewPrinter(w io.Writer, c *Catalog, opts ...PrinterOption) *Printer {
	r := lipgloss.NewRenderer(w)
	p := &Printer{
		w:       w,
		catalog: c,
		label: map[Severity]lipgloss.Style{
			SeverityInfo:    r.NewStyle().Foreground(lipgloss.Color("12")),
			SeverityWarning: r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
			SeverityError:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		},
		detail: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Log renders e. The first line of the message carries the severity label;
// continuation lines (such as captured stderr) are indented and dimmed.
func (p *Printer) Log(e Entry) {
	if e.Severity < p.minLevel {
		return
	}
	text := p.catalog.Render(e)
	lines := strings.Split(text, "\n")

	var sb strings.Builder
	label := p.label[e.Severity].Render(fmt.Sprintf("[%s]", e.Severity))
	sb.WriteString(p.fit(label + " " + lines[0]))
	sb.WriteByte('\n')
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sb.WriteString(p.fit(p.detail.Render("    " + line)))
		sb.WriteByte('\n')
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.w, sb.String())
}

func (p *Printer) fit(line string) string {
	if p.width <= 0 {
		return line
	}
	return util.TruncateANSI(line, p.width)
}
