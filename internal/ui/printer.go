package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/KaramelBytes/readmegen-cli/internal/github"
	"github.com/KaramelBytes/readmegen-cli/internal/readme"
)

// Printer writes user-facing lines. Colors are used only when the writer is
// a terminal.
type Printer struct {
	out   io.Writer
	quiet bool

	success lipgloss.Style
	failure lipgloss.Style
	warn    lipgloss.Style
	label   lipgloss.Style
	title   lipgloss.Style
	card    lipgloss.Style
}

// NewPrinter returns a Printer on stdout.
func NewPrinter() *Printer { return NewPrinterWithWriter(os.Stdout) }

// NewPrinterWithWriter returns a Printer on w.
func NewPrinterWithWriter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		out:     w,
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		label:   r.NewStyle().Foreground(lipgloss.Color("8")),
		title:   r.NewStyle().Bold(true),
		card: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1),
	}
}

// SetQuiet suppresses Success and Info lines. Errors are always printed.
func (p *Printer) SetQuiet(q bool) { p.quiet = q }

// Success implements workflow.Notifier.
func (p *Printer) Success(msg string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.success.Render("✓ "+msg))
}

// Error implements workflow.Notifier.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.out, p.failure.Render("✗ "+msg))
}

// Warn prints a warning line.
func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.out, p.warn.Render("⚠ "+msg))
}

// Info prints a plain line.
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// RepoCard prints the repository summary box.
func (p *Printer) RepoCard(r *github.Repository) {
	if r == nil {
		return
	}
	fmt.Fprintln(p.out, p.card.Render(p.repoCardBody(r)))
}

func (p *Printer) repoCardBody(r *github.Repository) string {
	var b strings.Builder
	b.WriteString(p.title.Render(r.FullName))
	if r.Archived {
		b.WriteString(" " + p.warn.Render("[archived]"))
	}
	b.WriteString("\n")
	b.WriteString(r.DescriptionOr("No description provided"))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"⭐ Stars", strconv.Itoa(r.StargazersCount)},
		{"🍴 Forks", strconv.Itoa(r.ForksCount)},
		{"👀 Watchers", strconv.Itoa(r.WatchersCount)},
		{"🐛 Issues", strconv.Itoa(r.OpenIssuesCount)},
		{"Language", r.LanguageOr("Not specified")},
		{"License", r.LicenseNameOr("Not specified")},
		{"Branch", r.DefaultBranch},
		{"Size", fmt.Sprintf("%d KB", r.Size)},
		{"Created", readme.HumanDate(r.CreatedAt)},
		{"Updated", readme.HumanDate(r.UpdatedAt)},
	}
	if len(r.Topics) > 0 {
		rows = append(rows, [2]string{"Topics", strings.Join(r.Topics, ", ")})
	}
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.label.Render(fmt.Sprintf("%-12s", row[0])))
		b.WriteString(" ")
		b.WriteString(row[1])
	}
	return b.String()
}
